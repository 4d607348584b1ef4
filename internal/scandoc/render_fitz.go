//go:build fitz

package scandoc

import (
	"io"

	"github.com/gen2brain/go-fitz"
)

const RendererAvailable bool = true

// renderPage rasterizes one page with MuPDF. Used for pages that carry no
// embedded image, e.g. vector-only scans or mixed documents.
func renderPage(rs io.ReadSeeker, pageIndex int) ([]byte, error) {
	doc, err := fitz.NewFromReader(rs)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.ImagePNG(pageIndex, 150)
}
