package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/config"
	"github.com/mindhaven/livesession/internal/httpapi"
	"github.com/mindhaven/livesession/internal/links"
	"github.com/mindhaven/livesession/internal/observability"
	"github.com/mindhaven/livesession/internal/rooms"
	"github.com/mindhaven/livesession/internal/session"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := session.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}
	defer store.Close()

	provider := buildRoomsProvider(cfg, log)

	linkBuilder, err := links.NewBuilder(cfg.LinkBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("link builder init failed")
	}

	service := session.NewService(store, provider, linkBuilder, cfg.RoomExpiry, log)
	server := httpapi.New(cfg, service, metrics, log)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("stopped")
}

func buildRoomsProvider(cfg config.Config, log zerolog.Logger) rooms.Provider {
	mode := strings.ToLower(strings.TrimSpace(cfg.RoomsProvider))
	switch mode {
	case "mock":
		log.Info().Msg("rooms provider: mock")
		return rooms.NewMock()
	case "http":
		log.Info().Str("url", cfg.RoomsAPIURL).Msg("rooms provider: http")
		return rooms.NewClient(cfg.RoomsAPIURL, cfg.RoomsAPIKey, log)
	default:
		if cfg.RoomsAPIKey == "" {
			log.Info().Msg("rooms provider: mock (no ROOMS_API_KEY set)")
			return rooms.NewMock()
		}
		log.Info().Str("url", cfg.RoomsAPIURL).Msg("rooms provider: http")
		return rooms.NewClient(cfg.RoomsAPIURL, cfg.RoomsAPIKey, log)
	}
}
