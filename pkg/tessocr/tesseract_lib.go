//go:build tesseract_lib

package tessocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/raff/go-tesseract"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

func init() {
	Version = tesseract.Version()
	Initialized = true
}

type engineImpl struct{}

func (engineImpl) Name() string {
	return "tesseract-lib"
}

func (engineImpl) Available() bool {
	return Initialized && len(missingDataFiles()) == 0
}

// Recognize links against libtesseract through FFI. This backend yields
// plain text only, so results carry lines without word geometry.
func (engineImpl) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return ocr.EngineResult{}, err
	}
	tess := tesseract.BaseAPICreate()
	defer tess.Clear()

	if ret := tess.Init3(DataPrefix, Languages); ret != 0 {
		return ocr.EngineResult{}, errors.New("could not init tesseract")
	}
	tess.SetDebugVariable("debug_file", "/dev/null")
	tess.SetPageSegMode(tesseract.PSM_AUTO_OSD)
	tess.SetImageBytes(img)
	return ocr.EngineResult{Text: tess.GetUTF8Text()}, nil
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
