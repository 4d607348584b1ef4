/*
Package tessocr drives Tesseract OCR v5 and exposes it as an ocr.Engine.
It defaults to invoking the CLI.
Alternative interfaces/implementations can be selected by supplying build tags.
*/
package tessocr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

var (
	// Initialized indicates if this package is usable
	Initialized bool = true
	// Languages tesseract shall take into consideration when recognizing text
	Languages string = "eng"
	// DataPrefix is the directory tesseract loads trained models from.
	// When empty the backend falls back to its system default.
	DataPrefix string
	// Version of the backend in use, when it can be determined
	Version string
)

// Engine returns the backend selected at build time.
func Engine() ocr.Engine {
	return engineImpl{}
}

// ConfiguredLangs returns the individual languages making up Languages.
func ConfiguredLangs() []string {
	return strings.Split(Languages, "+")
}

// TraineddataPath returns the path of the trained model for lang under
// DataPrefix.
func TraineddataPath(lang string) string {
	return filepath.Join(DataPrefix, lang+".traineddata")
}

// missingDataFiles lists configured languages without a trained model file
// under DataPrefix. With no DataPrefix set we trust the system install.
func missingDataFiles() []string {
	if DataPrefix == "" {
		return nil
	}
	var missing []string
	for _, lang := range ConfiguredLangs() {
		if _, err := os.Stat(TraineddataPath(lang)); err != nil {
			missing = append(missing, lang)
		}
	}
	return missing
}
