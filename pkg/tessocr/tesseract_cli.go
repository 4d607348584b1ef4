//go:build !gosseract && !tesseract_wasm && !tesseract_lib && !tesseract_ffi

// This is the default implementation
package tessocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

var LangsAvailable []string

func init() {
	if _, err := exec.LookPath("tesseract"); err != nil {
		Initialized = false
		return
	}
	Version = cliVersion()
	RefreshLangs()
}

type engineImpl struct{}

func (engineImpl) Name() string {
	return "tesseract-cli"
}

func (engineImpl) Available() bool {
	return Initialized
}

// Recognize pipes the image through the tesseract binary and parses its TSV
// output. Stdin and stdout are used so no temp files are involved.
func (engineImpl) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	cmd := exec.CommandContext(ctx, "tesseract", "-l", Languages, "-", "-", "tsv")
	cmd.Stdin = bytes.NewReader(img)
	cmd.Env = tessEnv()
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return ocr.EngineResult{}, fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return ocr.EngineResult{}, err
	}
	return ocr.EngineResult{Words: ParseTSV(string(out))}, nil
}

// IsConfigOk returns true and an empty string if tesseract is installed in
// PATH and the configured languages have trained data models.
// If not, false and a reason phrase reporting the first missing language are
// returned.
func IsConfigOk() (ok bool, reason string) {
	if !Initialized {
		return false, "tesseract not found in PATH"
	}
	for _, lang := range ConfiguredLangs() {
		if !slices.Contains(LangsAvailable, lang) {
			return false, fmt.Sprintf("'%s' is not among the installed languages %v", lang, LangsAvailable)
		}
	}
	return true, ""
}

// MissingLangs lists configured languages tesseract does not know yet.
func MissingLangs() []string {
	var missing []string
	for _, lang := range ConfiguredLangs() {
		if !slices.Contains(LangsAvailable, lang) {
			missing = append(missing, lang)
		}
	}
	return missing
}

// RefreshLangs re-reads the language list, e.g. after trained models have
// been installed under DataPrefix.
func RefreshLangs() {
	LangsAvailable = listLangs()
}

func listLangs() []string {
	cmd := exec.Command("tesseract", "--list-langs")
	cmd.Env = tessEnv()
	output, err := cmd.Output()
	if err != nil {
		return []string{}
	}
	outputLines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(outputLines) > 1 {
		// first line is a heading
		return outputLines[1:]
	}
	return []string{}
}

func cliVersion() string {
	cmd := exec.Command("tesseract", "--version")
	// older versions print the banner on stderr
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(strings.TrimPrefix(first, "tesseract"))
}

func tessEnv() []string {
	if DataPrefix == "" {
		return nil
	}
	return append(os.Environ(), "TESSDATA_PREFIX="+DataPrefix)
}
