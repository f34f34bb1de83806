package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/speechgen/speechgen"
)

//go:embed web
var webFS embed.FS

func main() {
	cfg, err := loadConfig()
	if err != nil {
		// Logger is not configured yet
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogPretty)

	registry := speechgen.NewRegistryFromEnv(speechgen.RegistryOptions{
		Logger: func(event string, fields map[string]any) {
			logger.Warn().Fields(fields).Msg(event)
		},
	})
	if registry.Len() == 0 {
		logger.Fatal().Msg("no models discovered; set ENDPOINT_<X>, API_KEY_<X>, API_VERSION_<X>, DEPLOYMENT_NAME_<X> and API_TYPE_<X> for at least one model")
	}
	for _, m := range registry.List() {
		logger.Info().Str("model", m.ID).Str("display_name", m.DisplayName).Msg("model discovered")
	}

	srv := newServer(cfg, registry, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/models", srv.handleModels)
	mux.HandleFunc("/ws/generate", srv.handleGenerate)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("prometheus metrics enabled at /metrics")
	}

	webRoot, err := fs.Sub(webFS, "web")
	if err != nil {
		logger.Fatal().Err(err).Msg("embedded web assets missing")
	}
	mux.Handle("/", http.FileServer(http.FS(webRoot)))

	// No blanket write timeout: /ws/generate holds the connection open for
	// the duration of a generation.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Int("models", registry.Len()).
			Msg("speechgen server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server exited")
}

// newLogger builds the process logger: pretty console output for
// development, JSON otherwise.
func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out = zerolog.New(os.Stdout)
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return out.Level(lvl).With().Timestamp().Logger()
}
