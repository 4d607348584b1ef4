package provision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/pkg/ocr"
)

type fakeEngine struct{}

func (fakeEngine) Name() string    { return "fake" }
func (fakeEngine) Available() bool { return true }
func (fakeEngine) Recognize(ctx context.Context, img []byte) (ocr.EngineResult, error) {
	return ocr.EngineResult{}, nil
}

// fakeBackend considers a language installed once its model file exists in
// dataDir, like the real backends after a Refresh.
type fakeBackend struct {
	langs     []string
	dataDir   string
	installed map[string]bool
	refreshes int
}

func (b *fakeBackend) Engine() ocr.Engine { return fakeEngine{} }

func (b *fakeBackend) Ready() (bool, string) {
	if missing := b.Missing(); len(missing) > 0 {
		return false, "missing trained models: " + strings.Join(missing, ", ")
	}
	return true, ""
}

func (b *fakeBackend) Missing() []string {
	var missing []string
	for _, lang := range b.langs {
		if !b.installed[lang] {
			missing = append(missing, lang)
		}
	}
	return missing
}

func (b *fakeBackend) Refresh() {
	b.refreshes++
	for _, lang := range b.langs {
		if _, err := os.Stat(filepath.Join(b.dataDir, lang+".traineddata")); err == nil {
			b.installed[lang] = true
		}
	}
}

func modelServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, "/none.traineddata") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("model bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.TrsConfig {
	t.Helper()
	return &config.TrsConfig{
		ModelBaseURL: baseURL,
		DataDir:      t.TempDir(),
		ModelTimeout: 10 * time.Second,
	}
}

func TestEnsureReadyInstallsMissingModels(t *testing.T) {
	var hits atomic.Int32
	srv := modelServer(t, &hits)
	cfg := testConfig(t, srv.URL)
	backend := &fakeBackend{langs: []string{"eng"}, dataDir: cfg.DataDir, installed: map[string]bool{}}
	m := New(cfg, backend, nil, nil)
	if m.State() != ocr.ModelNotAvailable {
		t.Errorf("initial state = %s", m.State())
	}
	rec, err := m.EnsureReady(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("no recognizer returned")
	}
	if m.State() != ocr.ModelAvailable {
		t.Errorf("state after install = %s", m.State())
	}
	data, err := os.ReadFile(filepath.Join(cfg.DataDir, "eng.traineddata"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "model bytes" {
		t.Errorf("installed model content = %q", data)
	}
	if backend.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", backend.refreshes)
	}

	// the second call must reuse the memoized recognizer
	again, err := m.EnsureReady(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again != rec {
		t.Error("expected the memoized recognizer on the second call")
	}
	if hits.Load() != 1 {
		t.Errorf("downloads = %d, want 1", hits.Load())
	}
}

func TestEnsureReadyWithReadyBackend(t *testing.T) {
	var hits atomic.Int32
	srv := modelServer(t, &hits)
	cfg := testConfig(t, srv.URL)
	backend := &fakeBackend{langs: []string{"eng"}, dataDir: cfg.DataDir, installed: map[string]bool{"eng": true}}
	m := New(cfg, backend, nil, nil)
	if _, err := m.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no downloads for a ready backend, got %d", hits.Load())
	}
	if m.State() != ocr.ModelAvailable {
		t.Errorf("state = %s", m.State())
	}
}

func TestEnsureReadyFailureIsNotSticky(t *testing.T) {
	var hits atomic.Int32
	srv := modelServer(t, &hits)
	cfg := testConfig(t, srv.URL)
	backend := &fakeBackend{langs: []string{"none"}, dataDir: cfg.DataDir, installed: map[string]bool{}}
	m := New(cfg, backend, nil, nil)

	var provErr *ocr.ProvisioningError
	_, err := m.EnsureReady(context.Background())
	if !errors.As(err, &provErr) {
		t.Fatalf("expected a ProvisioningError, got %v", err)
	}
	if m.State() != ocr.ModelNotAvailable {
		t.Errorf("state after failure = %s", m.State())
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, "none.traineddata")); err == nil {
		t.Error("a failed download must not leave a model file behind")
	}

	// the next call starts over instead of returning the old error
	if _, err := m.EnsureReady(context.Background()); err == nil {
		t.Fatal("expected the retry to fail as well")
	}
	if hits.Load() != 2 {
		t.Errorf("downloads = %d, want 2", hits.Load())
	}
}

func TestWarm(t *testing.T) {
	var hits atomic.Int32
	srv := modelServer(t, &hits)
	cfg := testConfig(t, srv.URL)
	backend := &fakeBackend{langs: []string{"eng"}, dataDir: cfg.DataDir, installed: map[string]bool{}}
	m := New(cfg, backend, nil, nil)
	m.Warm(context.Background())
	deadline := time.Now().Add(5 * time.Second)
	for m.State() != ocr.ModelAvailable && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.State() != ocr.ModelAvailable {
		t.Fatalf("model not available after warm-up, state = %s", m.State())
	}
}
