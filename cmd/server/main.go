package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/DarkRoom/internal/adapters/http"
	"github.com/dkeye/DarkRoom/internal/app/orch"
	"github.com/dkeye/DarkRoom/internal/config"
	"github.com/dkeye/DarkRoom/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.RedisURL == "" {
		log.Info().Str("module", "main").Msg("using in-memory store")
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "main").Msg("using redis store")
	return s, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	o := orch.New(st, orch.Options{
		HistoryLimit: cfg.HistoryLimit,
		GracePeriod:  cfg.GracePeriod,
	})
	if err := o.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to restore state")
	}
	go o.Run(ctx, cfg.SweepInterval, cfg.StaleAfter)

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("DarkRoom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	o.Lifecycle.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
