package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gin-contrib/expvar"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	sloggin "github.com/samber/slog-gin"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/internal/imagesource"
	"github.com/textrec/text-recognition-service/internal/natsconn"
	"github.com/textrec/text-recognition-service/internal/provision"
	"github.com/textrec/text-recognition-service/internal/resultcache"
	"github.com/textrec/text-recognition-service/internal/scandoc"
	"github.com/textrec/text-recognition-service/internal/service"
	"github.com/textrec/text-recognition-service/pkg/tessocr"
	"github.com/textrec/text-recognition-service/pkg/textnorm"
)

var (
	logger *slog.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	srv    http.Server
)

func main() {
	_ = godotenv.Load()
	trsConfig, err := config.NewTrsConfigFromEnv()
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: trsConfig.Debug, Level: trsConfig.LogLevel}))

	tessocr.Languages = trsConfig.TesseractLangs
	tessocr.DataPrefix = trsConfig.DataDir
	textnorm.FoldNewlines = trsConfig.RemoveNewlines

	httpClient := &http.Client{Transport: &http.Transport{DisableCompression: trsConfig.HttpClientDisableCompression}}
	source := imagesource.New(trsConfig, logger)
	docs := scandoc.New(trsConfig, logger)
	models := provision.New(trsConfig, nil, httpClient, logger)

	// one shot mode: don't start a server, just process a single file provided on the command line
	if len(os.Args) > 1 {
		svc := service.New(trsConfig, source, docs, models, &resultcache.NopCache{}, logger, httpClient)
		svc.PrintResultToStdout(os.Args[1])
		return
	}

	nc, err := natsconn.Setup(*trsConfig, logger)
	if err != nil {
		logger.Warn("NATS not connected", "err", err)
	}
	var cache resultcache.Cache = &resultcache.NopCache{}
	if nc != nil {
		store, err := resultcache.New(*trsConfig, logger, nc)
		if err != nil {
			if trsConfig.FailWithoutJetstream {
				logger.Error("FATAL: JetStream not available", "err", err)
				os.Exit(1)
			}
			logger.Warn("Results will not be cached", "err", err)
		} else {
			cache = store
		}
		defer nc.Drain()
	}
	svc := service.New(trsConfig, source, docs, models, cache, logger, httpClient)
	if nc != nil {
		svc.RegisterNatsService(nc)
	}
	if trsConfig.WarmOnStart {
		models.Warm(context.Background())
	}

	router := gin.New()
	router.Use(sloggin.New(logger), gin.Recovery())
	router.POST("/", svc.RecognizeBody)
	router.GET("/", svc.RecognizeRemote)
	router.HEAD("/", svc.RecognizeRemote)
	router.GET("/healthz", svc.Health)
	router.POST("/jobs", svc.SubmitJob)
	router.GET("/jobs/:id", svc.JobStatus)
	router.GET("/jobs/:id/result", svc.JobResult)
	router.DELETE("/jobs/:id", svc.CancelJob)
	router.GET("/debug/vars", expvar.Handler())

	srv.Addr = trsConfig.SrvAddr
	srv.Handler = router

	if os.Getenv("GOMEMLIMIT") != "" {
		logger.Info("GOMEMLIMIT", "Bytes", debug.SetMemoryLimit(-1), "MBytes", debug.SetMemoryLimit(-1)/1024/1024)
	}
	buildinfo, _ := debug.ReadBuildInfo()
	logger.Debug("Info", "buildinfo", buildinfo)

	if ok, reason := tessocr.IsConfigOk(); !ok {
		logger.Warn("OCR engine not ready yet. Trained models will be provisioned on demand.", "reason", reason)
	}
	logger.Info("Using OCR engine", "engine", models.EngineName(), "version", tessocr.Version, "langs", tessocr.Languages, "renderer", scandoc.RendererAvailable)

	if trsConfig.NoHttp {
		if nc == nil {
			logger.Error("Fatal: NATS not connected and HTTP disabled.")
			os.Exit(1)
		}
		wait := make(chan bool, 1)
		logger.Info("Service started with no HTTP endpoints. Waiting for interrupt.")
		<-wait
	}
	logger.Info("Service started", "address", srv.Addr)
	defer logger.Info("HTTP Server stopped.")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		// Error starting or closing listener:
		logger.Error("Webserver failed", "err", err)
	}
}
