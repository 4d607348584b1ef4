package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/internal/imagesource"
	"github.com/textrec/text-recognition-service/internal/provision"
	"github.com/textrec/text-recognition-service/internal/resultcache"
	"github.com/textrec/text-recognition-service/internal/scandoc"
	"github.com/textrec/text-recognition-service/pkg/ocr"
	"github.com/textrec/text-recognition-service/pkg/overlay"
)

type fakeEngine struct{}

func (fakeEngine) Name() string    { return "fake" }
func (fakeEngine) Available() bool { return true }
func (fakeEngine) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	return ocr.EngineResult{Words: []ocr.WordBox{
		{Text: "Hello", Left: 10, Top: 10, Width: 40, Height: 12, Conf: 95, Block: 1, Par: 1, Line: 1, Word: 1},
		{Text: "world", Left: 60, Top: 10, Width: 40, Height: 12, Conf: 40, Block: 1, Par: 1, Line: 1, Word: 2},
	}}, nil
}

type readyBackend struct{}

func (readyBackend) Engine() ocr.Engine    { return fakeEngine{} }
func (readyBackend) Ready() (bool, string) { return true, "" }
func (readyBackend) Missing() []string     { return nil }
func (readyBackend) Refresh()              {}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 100, 40))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T) (*Service, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.TrsConfig{
		MaxFileSizeBytes: 1 << 20,
		JobWorkers:       1,
		TesseractLangs:   "eng",
	}
	source := imagesource.New(cfg, nil)
	docs := scandoc.New(cfg, nil)
	models := provision.New(cfg, readyBackend{}, nil, nil)
	svc := New(cfg, source, docs, models, &resultcache.NopCache{}, nil, nil)
	router := gin.New()
	router.POST("/", svc.RecognizeBody)
	router.GET("/", svc.RecognizeRemote)
	router.GET("/healthz", svc.Health)
	router.POST("/jobs", svc.SubmitJob)
	router.GET("/jobs/:id", svc.JobStatus)
	router.GET("/jobs/:id/result", svc.JobResult)
	router.DELETE("/jobs/:id", svc.CancelJob)
	return svc, router
}

func TestRecognizeBody(t *testing.T) {
	_, router := newTestService(t)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(pngBytes(t)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var res RecognitionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Text != "Hello world" {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Pages) != 1 || res.Pages[0].Result.WordCount() != 2 {
		t.Errorf("pages = %+v", res.Pages)
	}
	if res.Engine != "fake" || res.Mime != "image/png" {
		t.Errorf("engine = %s, mime = %s", res.Engine, res.Mime)
	}
}

func TestRecognizeBodyPlainText(t *testing.T) {
	_, router := newTestService(t)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(pngBytes(t)))
	req.Header.Set("Accept", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "Hello world" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRecognizeBodyWithOverlay(t *testing.T) {
	_, router := newTestService(t)
	req := httptest.NewRequest(http.MethodPost, "/?overlay=1", bytes.NewReader(pngBytes(t)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var res RecognitionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	shapes := res.Pages[0].Shapes
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}
	if shapes[0].Tier != overlay.TierHigh || shapes[1].Tier != overlay.TierMedium {
		t.Errorf("tiers = %s, %s", shapes[0].Tier, shapes[1].Tier)
	}
}

func TestRecognizeBodyEmpty(t *testing.T) {
	_, router := newTestService(t)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestRecognizeRemote(t *testing.T) {
	_, router := newTestService(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes(t))
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodGet, "/?url="+upstream.URL, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var res RecognitionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Text != "Hello world" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Origin != upstream.URL {
		t.Errorf("origin = %s, want %s", res.Origin, upstream.URL)
	}
}

func TestRecognizeRemoteRejectsBadUrl(t *testing.T) {
	_, router := newTestService(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?url=ftp://example.com/file", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "too_large", err: imagesource.ErrTooLarge, want: http.StatusRequestEntityTooLarge},
		{name: "zero_size", err: imagesource.ErrZeroSize, want: http.StatusUnprocessableEntity},
		{name: "provisioning", err: &ocr.ProvisioningError{State: ocr.ModelNotAvailable, Err: errors.New("no network")}, want: http.StatusServiceUnavailable},
		{name: "decode", err: &ocr.DecodeError{Reason: "junk"}, want: http.StatusUnprocessableEntity},
		{name: "client_gone", err: fmt.Errorf("fetching: %w", context.Canceled), want: 499},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestResultMetadata(t *testing.T) {
	res := &RecognitionResponse{
		Mime:   "image/png",
		Engine: "fake",
		Pages: []PageResponse{
			{Page: 1, Result: &ocr.RecognizedText{Lines: []ocr.Line{{Words: []ocr.Word{{Text: "a"}, {Text: "b"}}}}}},
			{Page: 2, Result: &ocr.RecognizedText{Lines: []ocr.Line{{Words: []ocr.Word{{Text: "c"}}}}}},
		},
	}
	response := &http.Response{Header: make(http.Header), ContentLength: 123}
	response.Header.Set("Etag", `"abc"`)
	response.Header.Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")

	metadata := resultMetadata(res, response)
	want := map[string]string{
		"x-mimetype":          "image/png",
		"x-engine":            "fake",
		"x-pages":             "2",
		"x-words":             "3",
		"etag":                `"abc"`,
		"http-last-modified":  "Wed, 21 Oct 2015 07:28:00 GMT",
		"http-content-length": "123",
	}
	for k, v := range want {
		if metadata[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, metadata[k], v)
		}
	}
}

func TestHealth(t *testing.T) {
	_, router := newTestService(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status struct {
		Status string `json:"status"`
		Model  string `json:"model"`
		Engine string `json:"engine"`
		Cache  bool   `json:"cache"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "ok" || status.Engine != "fake" {
		t.Errorf("health = %+v", status)
	}
	if status.Model != "not-available" {
		t.Errorf("model state = %s, want not-available before the first request", status.Model)
	}
	if status.Cache {
		t.Error("expected cache to be off with a NopCache")
	}
}
