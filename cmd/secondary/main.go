// cmd/secondary runs a replica node. It stores entries the primary pushes
// over /internal/append, answers heartbeats, and serves the contiguous
// prefix of its log on the public read API.
//
// Configuration comes from the environment (HTTP_PORT,
// REPLICA_DELAY_SECONDS), with flags overriding:
//
//	./secondary --port 8001 --delay 10s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"replicated-log/internal/api"
	"replicated-log/internal/config"
	"replicated-log/internal/secondary"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("role", "secondary").Logger()

	cfg, err := config.SecondaryFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid environment")
	}

	port := flag.Int("port", cfg.HTTPPort, "HTTP listen port")
	delay := flag.Duration("delay", cfg.Delay,
		"Artificial delay applied before storing each replicated entry")
	flag.Parse()

	store := secondary.NewStorage()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(logger), api.Recovery(logger))
	api.NewSecondaryHandler(store, *delay, logger).Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
		// No write timeout: the artificial delay may hold an append
		// open for longer than any sensible fixed limit.
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Int("port", *port).Dur("delay", *delay).Msg("secondary listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("secondary exited with error")
	}
}
