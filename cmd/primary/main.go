// cmd/primary runs the primary node: the single writer of the replicated
// log. It accepts client appends over HTTP, assigns sequence ids, and fans
// entries out to the configured secondaries.
//
// Configuration comes from the environment (SECONDARY_HOSTS, HTTP_PORT,
// RPC_TIMEOUT_SECONDS), with flags overriding:
//
//	./primary --secondaries localhost:8001,localhost:8002 --port 8000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"replicated-log/internal/api"
	"replicated-log/internal/cluster"
	"replicated-log/internal/config"
	"replicated-log/internal/primary"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("role", "primary").Logger()

	cfg, err := config.PrimaryFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid environment")
	}

	secondaries := flag.String("secondaries", strings.Join(cfg.SecondaryHosts, ","),
		"Comma-separated secondary list (host:port)")
	port := flag.Int("port", cfg.HTTPPort, "HTTP listen port")
	rpcTimeout := flag.Duration("rpc-timeout", cfg.RPCTimeout,
		"Per-call timeout for append RPCs to secondaries")
	flag.Parse()

	hosts := config.SplitHosts(*secondaries)

	rep := cluster.NewReplicator(hosts, *rpcTimeout, cluster.NewHTTPTransport(), logger)
	node := primary.NewNode(rep, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(logger), api.Recovery(logger))
	api.NewPrimaryHandler(node).Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
		// No write timeout: an append legitimately blocks for as long
		// as slow replicas take to ACK the requested write concern.
		ReadHeaderTimeout: 10 * time.Second,
	}

	rep.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Int("port", *port).
			Strs("secondaries", hosts).
			Msg("primary listening")
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
		err := srv.Shutdown(drainCtx)

		rep.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("primary exited with error")
	}
}
