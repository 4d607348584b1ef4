//go:build !fitz

package scandoc

import (
	"errors"
	"io"
)

const RendererAvailable bool = false

func renderPage(_ io.ReadSeeker, _ int) ([]byte, error) {
	return nil, errors.New("page has no embedded images and this build carries no renderer")
}
