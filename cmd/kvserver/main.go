package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"matchmesh/internal/config"
	"matchmesh/internal/logging"
	"matchmesh/internal/store"
	httptransport "matchmesh/internal/transport/http"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("store ping failed")
	}

	router := httptransport.NewRouter(st, cfg)
	httptransport.LogRoutes("kvserver", router)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.Backend).Msg("kv server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("kv server stopped")
}
