//go:build tesseract_ffi

package tessocr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

var (
	TessVersion       func() *byte
	TessBaseAPICreate func() uintptr
	TessBaseAPIDelete func(handle uintptr)
	TessBaseAPIInit3  func(baseApiHandle uintptr, datapath *byte, lang *byte) int
	/*
		Close down tesseract and free up all memory. End() is equivalent to destructing and reconstructing
		your TessBaseAPI. Once End() has been used, none of the other API functions may be used other than Init.
	*/
	TessBaseAPIEnd            func(handle uintptr)
	TessBaseAPISetImage2      func(handle uintptr, pix uintptr)
	TessBaseAPIGetUTF8Text    func(handle uintptr) *byte
	TessBaseAPIGetTsvText     func(handle uintptr, pageNumber int32) *byte
	TessBaseAPISetPageSegMode func(handle uintptr, mode uint32)
	/*
		Free up recognition results and any stored image data,
		without actually freeing any recognition data that would be time-consuming to reload.
		Afterwards, you must call SetImage before doing any Recognize or Get* operation.
	*/
	TessBaseAPIClear func(handle uintptr)

	pixReadMem  func(data *byte, length uint64) uintptr
	pixFreeData func(data uintptr)
	free        func(*byte)
	lock        sync.Mutex
	handle      uintptr
)

func init() {
	lib, err := purego.Dlopen("libtesseract.so", purego.RTLD_LAZY)
	if err != nil {
		Initialized = false
		return
	}
	purego.RegisterLibFunc(&TessBaseAPICreate, lib, "TessBaseAPICreate")
	purego.RegisterLibFunc(&TessBaseAPIDelete, lib, "TessBaseAPIDelete")
	purego.RegisterLibFunc(&TessBaseAPIInit3, lib, "TessBaseAPIInit3")
	purego.RegisterLibFunc(&TessBaseAPIEnd, lib, "TessBaseAPIEnd")

	purego.RegisterLibFunc(&TessVersion, lib, "TessVersion")
	purego.RegisterLibFunc(&TessBaseAPISetImage2, lib, "TessBaseAPISetImage2")
	purego.RegisterLibFunc(&TessBaseAPIGetUTF8Text, lib, "TessBaseAPIGetUTF8Text")
	purego.RegisterLibFunc(&TessBaseAPIGetTsvText, lib, "TessBaseAPIGetTsvText")
	purego.RegisterLibFunc(&free, lib, "free")
	purego.RegisterLibFunc(&pixReadMem, lib, "pixReadMem")
	purego.RegisterLibFunc(&pixFreeData, lib, "pixFreeData")
	purego.RegisterLibFunc(&TessBaseAPISetPageSegMode, lib, "TessBaseAPISetPageSegMode")
	purego.RegisterLibFunc(&TessBaseAPIClear, lib, "TessBaseAPIClear")

	Version = unix.BytePtrToString(TessVersion())
	Initialized = true
}

// initLib creates and initializes the base API handle. Called lazily so
// trained models provisioned after process start are picked up.
func initLib() error {
	handle = TessBaseAPICreate()
	var datapath *byte
	if DataPrefix != "" {
		datapath, _ = unix.BytePtrFromString(DataPrefix)
	}
	lang, _ := unix.BytePtrFromString(Languages)
	if ret := TessBaseAPIInit3(handle, datapath, lang); ret != 0 {
		TessBaseAPIDelete(handle)
		handle = 0
		return errors.New("could not init tesseract")
	}
	return nil
}

type engineImpl struct{}

func (engineImpl) Name() string {
	return "tesseract-ffi"
}

func (engineImpl) Available() bool {
	return Initialized && len(missingDataFiles()) == 0
}

func (engineImpl) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return ocr.EngineResult{}, err
	}
	if len(img) == 0 {
		return ocr.EngineResult{}, errors.New("empty image")
	}
	lock.Lock()
	defer lock.Unlock()
	if !Initialized {
		return ocr.EngineResult{}, errors.New("libtesseract could not be loaded")
	}
	if handle == 0 {
		// start the tesseract lib if it hasn't been already
		if err := initLib(); err != nil {
			return ocr.EngineResult{}, err
		}
	}
	defer TessBaseAPIClear(handle)

	TessBaseAPISetPageSegMode(handle, 1) // PSM_AUTO_OSD
	pix := pixReadMem(&img[0], uint64(len(img)))
	if pix == 0 {
		return ocr.EngineResult{}, errors.New("not an image")
	}
	defer pixFreeData(pix)
	TessBaseAPISetImage2(handle, pix)
	tsv := TessBaseAPIGetTsvText(handle, 0)
	if tsv == nil {
		return ocr.EngineResult{}, errors.New("recognition produced no output")
	}
	result := unix.BytePtrToString(tsv)
	free(tsv)
	return ocr.EngineResult{Words: ParseTSV(result)}, nil
}

func IsConfigOk() (ok bool, reason string) {
	if !Initialized {
		return false, "libtesseract could not be loaded"
	}
	if missing := missingDataFiles(); len(missing) > 0 {
		return false, fmt.Sprintf("missing trained models %v", missing)
	}
	return true, ""
}

func MissingLangs() []string {
	return missingDataFiles()
}

func RefreshLangs() {}
