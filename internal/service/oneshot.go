package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/textrec/text-recognition-service/internal/imagesource"
	"github.com/textrec/text-recognition-service/pkg/textnorm"
)

// PrintResultToStdout prints a file's result metadata (as JSON) on the first
// line, followed by the recognized text.
// The file can be local or remote (http/https). When path is "-", the file
// will be read from Stdin
func (s *Service) PrintResultToStdout(path string) {
	var in *imagesource.Input
	var err error

	isHttp := strings.HasPrefix(path, "http")
	isStdIn := path == "-"
	switch {
	case isHttp:
		resp, httpErr := http.Get(path)
		if httpErr != nil {
			s.log.Error("HTTP error", "url", path, "err", httpErr)
			os.Exit(1)
		}
		if resp.StatusCode >= 400 {
			s.log.Error("HTTP error", "url", path, "status", resp.Status)
			os.Exit(1)
		}
		in, err = s.source.FromStream(resp.Body, resp.ContentLength, path)
		resp.Body.Close()
	case isStdIn:
		in, err = s.source.FromStream(os.Stdin, -1, path)
	default:
		in, err = s.source.FromPath(path)
	}
	if err != nil {
		s.log.Error("Could not process file", "path", path, "err", err)
		os.Exit(2)
	}

	res, err := s.recognizeInput(context.Background(), in, RequestParams{})
	if err != nil {
		s.log.Error("Recognition failed", "path", path, "err", err)
		os.Exit(2)
	}
	meta, err := json.Marshal(resultMetadata(res, nil))
	if err != nil {
		s.log.Error("Could not print metadata", "err", err)
		os.Exit(1)
	}
	os.Stdout.Write(meta)
	fmt.Println()
	text := res.Text
	if s.trsConfig.Dehyphenate {
		if fixed, dehyphErr := textnorm.DehyphenateString(text); dehyphErr == nil {
			text = fixed
		}
	}
	os.Stdout.WriteString(text)
	fmt.Println()
}
