package tessocr

import (
	"testing"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

const sampleHocr = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title></title>
  <meta name='ocr-system' content='tesseract 5.3.4' />
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "-"; bbox 0 0 640 480; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 36 92 618 156">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 36 92 618 156">
     <span class='ocr_line' id='line_1_1' title="bbox 36 92 618 116; baseline 0 -5">
      <span class='ocrx_word' id='word_1_1' title='bbox 36 92 96 116; x_wconf 96'>The</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 104 92 188 116; x_wconf 95'><strong>quick</strong></span>
     </span>
     <span class='ocr_line' id='line_1_2' title="bbox 36 132 618 156; baseline 0 -5">
      <span class='ocrx_word' id='word_1_3' title='bbox 36 132 132 156; x_wconf 91'>brown</span>
      <span class='ocrx_word' id='word_1_4' title='bbox 140 132 170 156; x_wconf 40'> </span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>
`

func TestParseHOCR(t *testing.T) {
	words, err := ParseHOCR(sampleHocr)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d: %v", len(words), words)
	}
	want := ocr.WordBox{Text: "The", Left: 36, Top: 92, Width: 60, Height: 24, Conf: 96, Block: 1, Par: 1, Line: 1, Word: 1}
	if words[0] != want {
		t.Errorf("words[0] = %+v, want %+v", words[0], want)
	}
	// word text inside nested markup
	if words[1].Text != "quick" || words[1].Word != 2 {
		t.Errorf("words[1] = %+v", words[1])
	}
	if words[2].Text != "brown" || words[2].Line != 2 || words[2].Word != 1 {
		t.Errorf("words[2] = %+v", words[2])
	}
}

func TestParseHOCRWithoutWords(t *testing.T) {
	words, err := ParseHOCR("")
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 0 {
		t.Errorf("expected no words, got %v", words)
	}
	// a word span without geometry must be dropped
	words, err = ParseHOCR(`<span class='ocrx_word' title='x_wconf 50'>orphan</span>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 0 {
		t.Errorf("expected no words without a bbox, got %v", words)
	}
}
