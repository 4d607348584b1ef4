//go:build tesseract_wasm

package tessocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/danlock/gogosseract"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

var (
	tess *gogosseract.Tesseract
	lock sync.Mutex
)

type engineImpl struct{}

func (engineImpl) Name() string {
	return "tesseract-wasm"
}

func (engineImpl) Available() bool {
	return Initialized && len(missingDataFiles()) == 0
}

// Recognize runs the WASM build of tesseract in-process. The interpreter is
// compiled and the trained model loaded on first use, so provisioning has a
// chance to fetch the model file beforehand. The instance is kept for the
// lifetime of the process and serializes recognitions.
func (engineImpl) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	lock.Lock()
	defer lock.Unlock()
	if tess == nil {
		if err := initWasm(ctx); err != nil {
			return ocr.EngineResult{}, err
		}
	}
	if err := tess.LoadImage(ctx, bytes.NewReader(img), gogosseract.LoadImageOptions{}); err != nil {
		return ocr.EngineResult{}, err
	}
	hocr, err := tess.GetHOCR(ctx, func(progress int32) {})
	if err != nil {
		return ocr.EngineResult{}, err
	}
	words, err := ParseHOCR(hocr)
	if err != nil {
		return ocr.EngineResult{}, err
	}
	return ocr.EngineResult{Words: words}, nil
}

// initWasm compiles the tesseract WASM and loads the trained model for the
// first configured language. gogosseract instances are bound to a single
// model.
func initWasm(ctx context.Context) error {
	lang := ConfiguredLangs()[0]
	trainingData, err := os.Open(TraineddataPath(lang))
	if err != nil {
		return fmt.Errorf("loading trained model for %s: %w", lang, err)
	}
	defer trainingData.Close()
	cfg := gogosseract.Config{
		Language:     lang,
		TrainingData: trainingData,
	}
	// While tesseract's output is very useful for debugging, silence it here
	cfg.Stderr = io.Discard
	cfg.Stdout = io.Discard
	tess, err = gogosseract.New(ctx, cfg)
	return err
}

func IsConfigOk() (ok bool, reason string) {
	if missing := missingDataFiles(); len(missing) > 0 {
		return false, fmt.Sprintf("missing trained models %v", missing)
	}
	return Initialized, ""
}

func MissingLangs() []string {
	return missingDataFiles()
}

func RefreshLangs() {}
