package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nijaru/vid-text/config"
	"github.com/nijaru/vid-text/db"
	"github.com/nijaru/vid-text/handlers"
	"github.com/nijaru/vid-text/logger"
	"github.com/nijaru/vid-text/media"
	"github.com/nijaru/vid-text/middleware"
	"github.com/nijaru/vid-text/pipeline"
	"github.com/nijaru/vid-text/process"
	"github.com/nijaru/vid-text/storage"
	"github.com/nijaru/vid-text/transcription"
	"github.com/nijaru/vid-text/upload"
	"github.com/nijaru/vid-text/validation"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logCloser, err := logger.Setup(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	handler, closers, err := buildHandler(context.Background(), cfg, process.NewExecInvoker())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}
	defer closeAll(closers)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port": cfg.ServerPort,
			"mode": cfg.Mode,
		}).Info("Listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Could not listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}

type closer interface {
	Close() error
}

func closeAll(closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logrus.WithError(err).Error("Failed to release resource")
		}
	}
}

// buildHandler wires the pipeline and returns the root handler together with
// everything that must be closed on shutdown.
func buildHandler(ctx context.Context, cfg *config.Config, invoker process.Invoker) (http.Handler, []closer, error) {
	var closers []closer

	store, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}

	engineOpts := transcription.Options{
		Model:    cfg.Engine.Model,
		Language: cfg.Engine.Language,
		BeamSize: cfg.Engine.BeamSize,
	}
	whisperDir := filepath.Join(cfg.TempDir, "whisper")
	if err := os.MkdirAll(whisperDir, 0755); err != nil {
		return nil, nil, errors.Wrap(err, "create whisper output directory")
	}

	runner := transcription.NewRunner(cfg.Engine.TranscribeTimeout,
		transcription.NewFasterWhisper(invoker, cfg.Engine.PythonPath, cfg.TempDir, engineOpts),
		transcription.NewWhisperCLI(invoker, cfg.Engine.WhisperPath, whisperDir, engineOpts),
	)
	closers = append(closers, runner)

	var transcriber transcription.Transcriber = runner
	if cfg.CacheDBPath != "" {
		cache, err := db.Open(cfg.CacheDBPath)
		if err != nil {
			closeAll(closers)
			return nil, nil, errors.Wrap(err, "open transcript cache")
		}
		closers = append(closers, cache)
		transcriber = transcription.NewCachedTranscriber(runner, cache, engineOpts)
	}

	var opts []pipeline.Option
	if cfg.Spaces.Enabled() {
		archive, err := storage.NewSpacesClient(ctx, cfg.Spaces, cfg.Engine.Model)
		if err != nil {
			closeAll(closers)
			return nil, nil, errors.Wrap(err, "create transcript archive")
		}
		opts = append(opts, pipeline.WithArchiver(archive))
	}

	coordinator := pipeline.NewCoordinator(
		media.NewExtractor(invoker, cfg.Engine.FFmpegPath, cfg.Engine.ExtractTimeout),
		transcriber,
		opts...,
	)

	var guards []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		guards = append(guards, middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize).Middleware)
	}

	mux := http.NewServeMux()
	handlers.New(validation.NewValidator(cfg.MaxUploadBytes), store, coordinator, cfg.Mode).Routes(mux, guards...)

	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	} else {
		logrus.WithField("static_dir", cfg.StaticDir).Info("Static directory not found, serving API only")
	}

	handler := middleware.Chain(mux,
		middleware.RequestID(logrus.StandardLogger()),
		middleware.Recovery(),
		middleware.Logging(),
		middleware.CORS(cfg.CORS),
	)
	return handler, closers, nil
}
