package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"go-simpler.org/env"
)

// TrsConfig represents the configuration of this service
type TrsConfig struct {
	// Name of the object store bucket in NATS holding recognition results.
	// Default: TRS_RESULTS
	Bucket string `env:"TRS_BUCKET" default:"TRS_RESULTS"`
	// wether to expose embedded NATS server to other clients. Default: false
	ExposeNats bool `env:"TRS_EXPOSE_NATS" default:"false"`
	// Add source info to log statements. Default: false
	Debug bool `env:"TRS_DEBUG" default:"false"`
	// If true the service will exit with an error if NATS or JetStream can't be connected
	FailWithoutJetstream bool `env:"TRS_FAIL_WITHOUT_JS" default:"true"`
	// If true plain text responses are run through the dehyphenator
	Dehyphenate bool `env:"TRS_DEHYPHENATE" default:"false"`
	// if true, dehyphenated text will be compacted by replacing newlines with whitespace
	RemoveNewlines bool `env:"TRS_REMOVE_NEWLINES" default:"false"`
	// Disable Accept-Encoding=gzip header in outgoing HTTP Requests
	HttpClientDisableCompression bool `env:"TRS_HTTP_CLIENT_DISABLE_COMPRESSION" default:"false"`
	// Log level (DEBUG, INFO, WARN, ERROR)
	LogLevelStr string `env:"TRS_LOG_LEVEL" default:"INFO"`
	LogLevel    slog.Level
	// Maximum size an image or document may have; processing is aborted if a requested file is bigger
	MaxFileSize      string `env:"TRS_MAX_FILE_SIZE" default:"50MiB"`
	MaxFileSizeBytes uint64
	// Maximum number of pages recognized per document; 0 means no limit
	MaxPages int `env:"TRS_MAX_PAGES" default:"0" validate:"gte=0"`
	// Base URL trained models are downloaded from during provisioning
	ModelBaseURL string `env:"TRS_MODEL_BASE_URL" default:"https://github.com/tesseract-ocr/tessdata_fast/raw/main" validate:"omitempty,url"`
	// Timeout for a single trained model download
	ModelTimeout time.Duration `env:"TRS_MODEL_TIMEOUT" default:"120s"`
	// Directory trained models are stored in. Default: <tmp>/trs/tessdata
	DataDir string `env:"TRS_DATA_DIR"`
	// NATS max msg size (embedded server only)
	NatsMaxPayload int32 `env:"TRS_MAX_PAYLOAD" default:"8388608"`
	// embedded NATS server storage location. Default: /tmp/nats
	NatsStoreDir string `env:"TRS_NATS_STORE_DIR"`
	// embedded NATS server host/ip address, if exposed. Default: localhost
	NatsHost string `env:"TRS_NATS_HOST" default:"localhost"`
	// embedded NATS server port, if exposed. Default: 4222
	NatsPort int `env:"TRS_NATS_PORT" default:"4222" validate:"gte=0,lte=65535"`
	// External NATS URL, e.g. nats://localhost:4222
	NatsUrl string `env:"TRS_NATS_URL"`
	// Timeout for the external NATS connection
	NatsTimeout time.Duration `env:"TRS_NATS_TIMEOUT" default:"15s"`
	// NatsConnectRetries is the number of attempts to connect to external NATS server(s)
	NatsConnectRetries int `env:"TRS_NATS_CONNECT_RETRIES" default:"10"`
	// if true, disable HTTP Server in favor of NATS Microservice interface
	NoHttp bool `env:"TRS_NO_HTTP" default:"false"`
	// Number of workers draining the async recognition job queue
	JobWorkers int `env:"TRS_JOB_WORKERS" default:"2" validate:"gte=1"`
	// How many replicas of the bucket to create. Default: 1
	Replicas int `env:"TRS_REPLICAS" default:"1" validate:"gte=1"`
	// HTTP listen address and/or port. Default: ':8080'
	SrvAddr string `env:"TRS_HOST_PORT" default:":8080"`
	// List of language codes, separated by `+`, to be passed to Tesseract
	// when recognizing text. Models missing locally are provisioned on demand.
	TesseractLangs string `env:"TRS_TESSERACT_LANGS" default:"eng" validate:"required"`
	// if true, trained models are provisioned in the background right after startup
	WarmOnStart bool `env:"TRS_WARM_MODEL" default:"false"`
}

// NewTrsConfigFromEnv returns a service config object
// populated with defaults and values from environment vars
func NewTrsConfigFromEnv() (*TrsConfig, error) {
	var cfg TrsConfig
	if err := env.Load(&cfg, nil); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(cfg.LogLevelStr)); err != nil {
		return nil, fmt.Errorf("parsing log level from env: %w", err)
	}
	maxSize, err := humanize.ParseBytes(cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("parsing max file size from env: %w", err)
	}
	cfg.MaxFileSizeBytes = maxSize
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(os.TempDir(), "trs", "tessdata")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
