package tessocr

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

// ParseHOCR extracts word observations from tesseract's hOCR output.
// Geometry and confidence live in the title attribute of each word span,
// e.g. title='bbox 36 92 96 116; x_wconf 94'.
func ParseHOCR(src string) ([]ocr.WordBox, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	w := &hocrWalker{}
	w.walk(doc)
	return w.words, nil
}

type hocrWalker struct {
	words                  []ocr.WordBox
	block, par, line, word int
}

func (w *hocrWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch attrVal(n, "class") {
		case "ocr_carea":
			w.block++
			w.par, w.line = 0, 0
		case "ocr_par":
			w.par++
			w.line = 0
		case "ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat":
			w.line++
			w.word = 0
		case "ocrx_word":
			w.word++
			w.addWord(n)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *hocrWalker) addWord(n *html.Node) {
	text := strings.TrimSpace(textContent(n))
	if text == "" {
		return
	}
	left, top, width, height, conf, ok := parseWordTitle(attrVal(n, "title"))
	if !ok {
		return
	}
	w.words = append(w.words, ocr.WordBox{
		Text:   text,
		Left:   left,
		Top:    top,
		Width:  width,
		Height: height,
		Conf:   conf,
		Block:  w.block,
		Par:    w.par,
		Line:   w.line,
		Word:   w.word,
	})
}

// parseWordTitle reads the bbox corners and x_wconf value out of an hOCR
// title attribute. hOCR encodes boxes as two corners, not width and height.
func parseWordTitle(title string) (left, top, width, height int, conf float64, ok bool) {
	var haveBox bool
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "bbox":
			if len(fields) < 5 {
				return 0, 0, 0, 0, 0, false
			}
			var c [4]int
			for i := 0; i < 4; i++ {
				v, err := strconv.Atoi(fields[i+1])
				if err != nil {
					return 0, 0, 0, 0, 0, false
				}
				c[i] = v
			}
			left, top, width, height = c[0], c[1], c[2]-c[0], c[3]-c[1]
			haveBox = true
		case "x_wconf":
			if len(fields) < 2 {
				continue
			}
			if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
				conf = v
			}
		}
	}
	return left, top, width, height, conf, haveBox
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
