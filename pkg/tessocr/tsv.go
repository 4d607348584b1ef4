package tessocr

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

// Column indexes of tesseract's TSV output. The word text is always the last
// column.
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	colCount
)

// Rows with this level carry a recognized word. Lower levels describe pages,
// blocks, paragraphs and lines and carry no text.
const levelWord = 5

// ParseTSV extracts word observations from tesseract's TSV output format.
// Header rows, structural rows and rows without usable text are skipped, so
// a blank page parses to an empty slice, not an error.
func ParseTSV(tsv string) []ocr.WordBox {
	var words []ocr.WordBox
	s := bufio.NewScanner(strings.NewReader(tsv))
	for s.Scan() {
		line := s.Text()
		if line == "" || strings.HasPrefix(line, "level\t") {
			continue
		}
		fields := strings.SplitN(line, "\t", colCount)
		if len(fields) < colCount {
			continue
		}
		if level, err := strconv.Atoi(fields[colLevel]); err != nil || level != levelWord {
			continue
		}
		conf, err := strconv.ParseFloat(fields[colConf], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := fields[colText]
		if strings.TrimSpace(text) == "" {
			continue
		}
		nums := make([]int, colConf)
		ok := true
		for i := colPage; i < colConf; i++ {
			if nums[i], err = strconv.Atoi(fields[i]); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		words = append(words, ocr.WordBox{
			Text:   text,
			Left:   nums[colLeft],
			Top:    nums[colTop],
			Width:  nums[colWidth],
			Height: nums[colHeight],
			Conf:   conf,
			Block:  nums[colBlock],
			Par:    nums[colPar],
			Line:   nums[colLine],
			Word:   nums[colWord],
		})
	}
	return words
}
