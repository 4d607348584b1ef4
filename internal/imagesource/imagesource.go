// Package imagesource turns byte streams from uploads, files and URLs into
// recognizer input, deciding by content type whether the bytes are a single
// image or a scanned document.
package imagesource

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/pkg/ocr"
)

var (
	ErrZeroSize = errors.New("zero-length data can not be decoded")
	ErrTooLarge = errors.New("file too large")
)

// Kind says what a piece of input turned out to be.
type Kind int

const (
	KindImage Kind = iota
	KindPDF
)

// Input is one classified piece of recognizer input.
type Input struct {
	Kind   Kind
	Image  *ocr.ImageBuffer // set for KindImage
	Data   []byte           // the raw bytes as read
	Origin string
	Mime   string
}

// Source builds Inputs while enforcing the configured size limit.
type Source struct {
	MaxFileSizeBytes uint64
	log              *slog.Logger
}

func New(cfg *config.TrsConfig, logger *slog.Logger) *Source {
	s := &Source{
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
		log:              logger,
	}
	if logger == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// FromBytes classifies data and validates it as recognizer input.
func (s *Source) FromBytes(data []byte, origin string) (*Input, error) {
	if len(data) == 0 {
		return nil, ErrZeroSize
	}
	mtype := mimetype.Detect(data)
	s.log.Debug("Detected", "mimetype", mtype.String(), "ext", mtype.Extension(), "origin", origin)
	if mtype.Is("application/pdf") {
		return &Input{Kind: KindPDF, Data: data, Origin: origin, Mime: mtype.String()}, nil
	}
	if strings.HasPrefix(mtype.String(), "image/") {
		img, err := ocr.ImageFromBytes(data)
		if err != nil {
			return nil, err
		}
		return &Input{Kind: KindImage, Image: img, Data: data, Origin: origin, Mime: mtype.String()}, nil
	}
	// returning a part of the content in case of errors helps with debugging
	// webservers that return 2xx with an error message in the body
	return nil, fmt.Errorf("no suitable recognizer input for mimetype %s. content started with: %s", mtype.String(), preview(data))
}

// FromStream reads at most the configured maximum from r. A negative size
// means the length is unknown (chunked encoding or stdin); the stream is
// then read up to the limit and rejected if it exceeds it.
func (s *Source) FromStream(r io.Reader, size int64, origin string) (*Input, error) {
	if size > int64(s.MaxFileSizeBytes) {
		return nil, ErrTooLarge
	}
	if size == 0 {
		return nil, ErrZeroSize
	}
	if size < 0 {
		s.log.Debug("Reading stream of unknown size", "origin", origin)
		data, err := io.ReadAll(io.LimitReader(r, int64(s.MaxFileSizeBytes)+1))
		if err != nil {
			return nil, err
		}
		if uint64(len(data)) > s.MaxFileSizeBytes {
			return nil, ErrTooLarge
		}
		return s.FromBytes(data, origin)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return s.FromBytes(data, origin)
}

// FromPath loads a local file.
func (s *Source) FromPath(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return s.FromStream(f, fi.Size(), path)
}

func preview(data []byte) string {
	if len(data) > 70 {
		data = data[:70]
	}
	return string(data)
}
