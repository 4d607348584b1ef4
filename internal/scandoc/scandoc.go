// Package scandoc recognizes text in scanned documents. The images embedded
// in a PDF's pages are pulled out one by one and fed to the recognizer; a
// page without embedded images can be rasterized instead when the build
// carries a renderer.
package scandoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	pdfcpuapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/pkg/ocr"
	"github.com/textrec/text-recognition-service/pkg/pdfdate"
)

var pdfConf *model.Configuration

func init() {
	pdfConf = model.NewDefaultConfiguration()
}

// Info carries the document properties relevant for result metadata.
type Info struct {
	Author, Title, Subject string
	Created, Modified      time.Time
	PageCount              int
}

// PageResult is the recognition outcome of a single page.
type PageResult struct {
	Page   int                 `json:"page"`
	Result *ocr.RecognizedText `json:"result"`
}

type Processor struct {
	maxPages int
	log      *slog.Logger
}

func New(cfg *config.TrsConfig, logger *slog.Logger) *Processor {
	p := &Processor{
		maxPages: cfg.MaxPages,
		log:      logger,
	}
	if logger == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	return p
}

// Recognize runs rec over every page of the PDF in data. Pages that yield no
// usable image are logged and skipped; the document as a whole fails only
// when not a single page could be processed.
func (p *Processor) Recognize(ctx context.Context, rec *ocr.Recognizer, data []byte, origin string) ([]PageResult, error) {
	rs := bytes.NewReader(data)
	info, err := GetInfo(rs)
	if err != nil {
		return nil, fmt.Errorf("reading PDF structure: %w", err)
	}
	pages := info.PageCount
	if p.maxPages > 0 && pages > p.maxPages {
		p.log.Info("Limiting recognized pages", "origin", origin, "pages", pages, "limit", p.maxPages)
		pages = p.maxPages
	}
	results := make([]PageResult, 0, pages)
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rt, err := p.recognizePage(ctx, rec, rs, i)
		if err != nil {
			p.log.Warn("Skipping page", "origin", origin, "page", i+1, "err", err)
			continue
		}
		results = append(results, PageResult{Page: i + 1, Result: rt})
	}
	if len(results) == 0 && pages > 0 {
		return nil, fmt.Errorf("no page of %s could be recognized", origin)
	}
	return results, nil
}

// recognizePage collects the page's embedded images and merges their
// recognition results in extraction order.
func (p *Processor) recognizePage(ctx context.Context, rec *ocr.Recognizer, rs io.ReadSeeker, pageIndex int) (*ocr.RecognizedText, error) {
	var imgs [][]byte
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	err := ExtractImages(rs, pageIndex, func(img model.Image) {
		data, readErr := io.ReadAll(img)
		if readErr != nil {
			p.log.Warn("Reading embedded image failed", "page", pageIndex+1, "img", img.Name, "err", readErr)
			return
		}
		imgs = append(imgs, data)
	})
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		rendered, err := renderPage(rs, pageIndex)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, rendered)
	}
	merged := &ocr.RecognizedText{}
	recognized := 0
	for _, data := range imgs {
		buf, err := ocr.ImageFromBytes(data)
		if err != nil {
			// e.g. an image filter Go has no decoder for
			p.log.Warn("Skipping embedded image", "page", pageIndex+1, "err", err)
			continue
		}
		rt, err := rec.Recognize(ctx, buf)
		if err != nil {
			return nil, err
		}
		merged.Lines = append(merged.Lines, rt.Lines...)
		recognized++
	}
	if recognized == 0 {
		return nil, fmt.Errorf("none of the page's %d images could be decoded", len(imgs))
	}
	return merged, nil
}

// ExtractImages streams every image embedded on the page with index
// pageIndex to readFunc.
func ExtractImages(rs io.ReadSeeker, pageIndex int, readFunc func(model.Image)) error {
	pageStr := []string{strconv.Itoa(pageIndex + 1)}
	return pdfcpuapi.ExtractImages(rs, pageStr, func(img model.Image, singleImgPerPage bool, maxPageDigits int) error {
		readFunc(img)
		return nil
	}, pdfConf)
}

// GetInfo reads the document properties.
func GetInfo(rs io.ReadSeeker) (Info, error) {
	info, err := pdfcpuapi.PDFInfo(rs, "", nil, nil)
	if err != nil {
		return Info{}, err
	}
	meta := Info{Author: info.Author, Title: info.Title, Subject: info.Subject, PageCount: info.PageCount}
	meta.Modified = pdfdate.ParseOrZero(info.ModificationDate)
	meta.Created = pdfdate.ParseOrZero(info.CreationDate)
	return meta, nil
}
