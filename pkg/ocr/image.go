package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	// Decoders consulted by image.DecodeConfig. The stdlib covers png, jpeg
	// and gif; golang.org/x/image adds the scanner-typical formats.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"
)

// ImageBuffer is an opaque handle to validated image data. It is owned by
// the caller for its lifetime, passed by reference into recognition calls
// and never mutated by them.
type ImageBuffer struct {
	data   []byte
	mime   string
	width  int
	height int
}

// ImageFromBytes validates data and wraps it in an ImageBuffer. It fails
// with a *DecodeError when data is empty, is not an image, or cannot be
// decoded by the registered codecs.
func ImageFromBytes(data []byte) (*ImageBuffer, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "zero-length data can not be decoded"}
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, &DecodeError{Reason: fmt.Sprintf("not an image: detected %s", mtype)}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("no bitmap decodable from %s data", mtype), Err: err}
	}
	return &ImageBuffer{data: data, mime: mtype.String(), width: cfg.Width, height: cfg.Height}, nil
}

// LoadImage reads the file at path and validates it like ImageFromBytes.
func LoadImage(path string) (*ImageBuffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Reason: "reading " + path, Err: err}
	}
	return ImageFromBytes(data)
}

// ImageFromImage wraps an already-decoded bitmap. The pixels are encoded as
// PNG so that recognition backends see the same byte-oriented input as file
// uploads.
func ImageFromImage(img image.Image) (*ImageBuffer, error) {
	if img == nil {
		return nil, &DecodeError{Reason: "nil bitmap can not be encoded"}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &DecodeError{Reason: "encoding bitmap as png", Err: err}
	}
	bounds := img.Bounds()
	return &ImageBuffer{data: buf.Bytes(), mime: "image/png", width: bounds.Dx(), height: bounds.Dy()}, nil
}

// Bytes returns the encoded image data. Callers must not modify it.
func (b *ImageBuffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// MimeType returns the detected media type, e.g. "image/png".
func (b *ImageBuffer) MimeType() string {
	if b == nil {
		return ""
	}
	return b.mime
}

// Width returns the pixel width of the decoded image.
func (b *ImageBuffer) Width() int {
	if b == nil {
		return 0
	}
	return b.width
}

// Height returns the pixel height of the decoded image.
func (b *ImageBuffer) Height() int {
	if b == nil {
		return 0
	}
	return b.height
}
