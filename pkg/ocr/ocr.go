/*
Package ocr contains the core model and orchestration for on-device text
recognition: image buffers, structured results (lines, words, bounding
quads, confidence scores) and the Recognizer that produces them by driving
an interchangeable recognition engine.

The recognition engine itself is an opaque capability. Implementations live
in pkg/tessocr and are selected by build tags.
*/
package ocr

// ModelState describes the installation state of the recognition model on
// this machine. It is queried before first use and cached for the lifetime
// of the process.
type ModelState int

const (
	// ModelNotAvailable means the model is not installed. Recognition
	// requires a provisioning step first.
	ModelNotAvailable ModelState = iota
	// ModelInstalling means a provisioning operation is in flight.
	ModelInstalling
	// ModelAvailable means the model is installed and a Recognizer can be
	// handed out.
	ModelAvailable
)

func (s ModelState) String() string {
	switch s {
	case ModelInstalling:
		return "installing"
	case ModelAvailable:
		return "available"
	default:
		return "not-available"
	}
}
