//go:build gosseract

package tessocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

func init() {
	Version = gosseract.Version()
	Initialized = true
}

type engineImpl struct{}

func (engineImpl) Name() string {
	return "gosseract"
}

func (engineImpl) Available() bool {
	return Initialized && len(missingDataFiles()) == 0
}

func (engineImpl) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return ocr.EngineResult{}, err
	}
	goss := gosseract.NewClient()
	defer goss.Close()
	if DataPrefix != "" {
		goss.TessdataPrefix = DataPrefix
	}
	// This option doesn't seem to work
	goss.SetPageSegMode(gosseract.PSM_AUTO_OSD)
	goss.DisableOutput()
	goss.SetLanguage(ConfiguredLangs()...)
	if err := goss.SetImageFromBytes(img); err != nil {
		return ocr.EngineResult{}, err
	}
	boxes, err := goss.GetBoundingBoxesVerbose()
	if err != nil {
		return ocr.EngineResult{}, err
	}
	words := make([]ocr.WordBox, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.WordBox{
			Text:   b.Word,
			Left:   b.Box.Min.X,
			Top:    b.Box.Min.Y,
			Width:  b.Box.Dx(),
			Height: b.Box.Dy(),
			Conf:   b.Confidence,
			Block:  b.BlockNum,
			Par:    b.ParNum,
			Line:   b.LineNum,
			Word:   b.WordNum,
		})
	}
	return ocr.EngineResult{Words: words}, nil
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
