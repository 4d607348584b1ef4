// Package provision installs trained models on demand and hands out a
// recognizer once the engine is ready to use.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/pkg/ocr"
	"github.com/textrec/text-recognition-service/pkg/tessocr"
)

// Backend is the provisioner's view of an OCR engine: the engine itself plus
// what it knows about installed trained models.
type Backend interface {
	Engine() ocr.Engine
	// Ready reports whether the engine could recognize right now and a
	// reason when it can't.
	Ready() (ok bool, reason string)
	// Missing lists language codes whose trained models are not installed.
	Missing() []string
	// Refresh makes the backend re-read its model inventory after an install.
	Refresh()
}

// TessBackend adapts pkg/tessocr, whichever build of it is compiled in.
type TessBackend struct{}

func (TessBackend) Engine() ocr.Engine    { return tessocr.Engine() }
func (TessBackend) Ready() (bool, string) { return tessocr.IsConfigOk() }
func (TessBackend) Missing() []string     { return tessocr.MissingLangs() }
func (TessBackend) Refresh()              { tessocr.RefreshLangs() }

// Manager guards access to the recognition capability. It knows whether the
// engine is usable, fetches missing trained models when asked for a
// recognizer, and memoizes the recognizer once provisioning succeeded.
type Manager struct {
	backend    Backend
	httpClient *http.Client
	log        *slog.Logger
	baseURL    string
	dataDir    string
	timeout    time.Duration

	group singleflight.Group
	mu    sync.Mutex
	state ocr.ModelState
	rec   *ocr.Recognizer
}

// New returns a Manager for the engine behind backend. A nil backend means
// the compiled-in tesseract backend, nil httpClient the default client and a
// nil logger discards all output.
func New(cfg *config.TrsConfig, backend Backend, httpClient *http.Client, logger *slog.Logger) *Manager {
	m := &Manager{
		backend:    backend,
		httpClient: httpClient,
		log:        logger,
		baseURL:    strings.TrimSuffix(cfg.ModelBaseURL, "/"),
		dataDir:    cfg.DataDir,
		timeout:    cfg.ModelTimeout,
		state:      ocr.ModelNotAvailable,
	}
	if backend == nil {
		m.backend = TessBackend{}
	}
	if httpClient == nil {
		m.httpClient = http.DefaultClient
	}
	if logger == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	return m
}

// State reports the current provisioning state.
func (m *Manager) State() ocr.ModelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EngineName reports which engine this manager provisions for.
func (m *Manager) EngineName() string {
	return m.backend.Engine().Name()
}

// EnsureReady returns a recognizer backed by a ready engine, installing
// missing trained models first. The first success decides the recognizer for
// the process lifetime. Failures are not sticky: the next call starts
// provisioning over. Concurrent callers share a single provisioning run,
// bound to the context of the caller that started it.
func (m *Manager) EnsureReady(ctx context.Context) (*ocr.Recognizer, error) {
	m.mu.Lock()
	if m.rec != nil {
		rec := m.rec
		m.mu.Unlock()
		return rec, nil
	}
	m.mu.Unlock()
	res, err, _ := m.group.Do("provision", func() (any, error) {
		if err := m.provision(ctx); err != nil {
			return nil, err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.rec, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*ocr.Recognizer), nil
}

// Warm provisions in the background so the first recognition does not pay
// the install cost. Failures are logged only; the next EnsureReady retries.
func (m *Manager) Warm(ctx context.Context) {
	go func() {
		if _, err := m.EnsureReady(ctx); err != nil {
			m.log.Warn("Model warm-up failed", "err", err)
			return
		}
		m.log.Info("Model ready", "engine", m.backend.Engine().Name())
	}()
}

func (m *Manager) provision(ctx context.Context) error {
	if ok, _ := m.backend.Ready(); ok {
		m.adopt()
		return nil
	}
	m.setState(ocr.ModelInstalling)
	if err := m.install(ctx); err != nil {
		m.setState(ocr.ModelNotAvailable)
		return &ocr.ProvisioningError{State: ocr.ModelNotAvailable, Err: err}
	}
	m.backend.Refresh()
	if ok, reason := m.backend.Ready(); !ok {
		m.setState(ocr.ModelNotAvailable)
		return &ocr.ProvisioningError{State: ocr.ModelNotAvailable, Err: errors.New(reason)}
	}
	m.adopt()
	return nil
}

func (m *Manager) setState(s ocr.ModelState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// adopt memoizes the recognizer and flips the state to available.
func (m *Manager) adopt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ocr.ModelAvailable
	if m.rec == nil {
		m.rec = ocr.NewRecognizer(m.backend.Engine())
	}
}

// install downloads all missing trained models into the data dir.
func (m *Manager) install(ctx context.Context) error {
	missing := m.backend.Missing()
	if len(missing) == 0 {
		// the engine is unhappy for some other reason than missing models,
		// e.g. no tesseract binary in PATH
		_, reason := m.backend.Ready()
		return errors.New(reason)
	}
	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating model dir: %w", err)
	}
	for _, lang := range missing {
		if err := m.download(ctx, lang); err != nil {
			return err
		}
	}
	return nil
}

// download fetches one trained model. The file is written next to its final
// location and renamed into place, so an aborted download never leaves a
// half-written model behind.
func (m *Manager) download(ctx context.Context, lang string) error {
	url := m.baseURL + "/" + lang + ".traineddata"
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	m.log.Info("Downloading trained model", "lang", lang, "url", url)
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	tmp, err := os.CreateTemp(m.dataDir, lang+".traineddata.download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	dest := filepath.Join(m.dataDir, lang+".traineddata")
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	m.log.Info("Trained model installed", "lang", lang, "path", dest, "size", n)
	return nil
}
