package ocr

import "fmt"

// DecodeError reports input that could not be decoded as an image: empty or
// corrupt data, an unsupported format, or a decoder that produced no bitmap.
// A nil bitmap is always an error, never an empty success, so upstream
// decode failures are not masked.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding image: %s: %v", e.Reason, e.Err)
	}
	return "decoding image: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProvisioningError reports that the recognition model could not be made
// available: the capability is missing, or the install failed. It carries
// the underlying platform error and the model state observed at the time.
//
// Repeated failures usually indicate a persistent environment problem (no
// engine installed, no network, disk full), so callers should not retry
// more than once without backoff.
type ProvisioningError struct {
	State ModelState
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning recognition model (state %s): %v", e.State, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// RecognitionError reports a failed recognition call: a malformed input
// buffer, a cancelled context, or a fault in the underlying engine.
type RecognitionError struct {
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognizing text: %s: %v", e.Reason, e.Err)
	}
	return "recognizing text: " + e.Reason
}

func (e *RecognitionError) Unwrap() error { return e.Err }
