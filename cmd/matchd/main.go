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

	"matchmesh/internal/app/duel"
	"matchmesh/internal/config"
	"matchmesh/internal/gateway"
	"matchmesh/internal/logging"
	"matchmesh/internal/mcpserver"
	httptransport "matchmesh/internal/transport/http"
	"matchmesh/internal/ws"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	match := cfg.Match

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := duel.NewRegistry(match.NodeID, duel.OptionsFromConfig(match), gatewayOptions(match), func() gateway.Client {
		return ws.NewClient(match.StoreURL)
	})
	reg.StartCycler(ctx, match.CycleInterval())

	router := httptransport.NewNodeRouter(reg, mcpserver.New(reg).Handler())
	httptransport.LogRoutes("matchd", router)
	server := &http.Server{
		Addr:              match.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", match.HTTPAddr).Str("node_id", match.NodeID).Str("store_url", match.StoreURL).Msg("node listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reg.CloseAll(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("node stopped")
	}
	log.Info().Msg("node stopped")
}

func gatewayOptions(cfg config.MatchConfig) gateway.Options {
	return gateway.Options{
		Scope:          cfg.StoreScope,
		ConnectTimeout: cfg.ConnectTimeout(),
		OpTimeout:      cfg.OpTimeout(),
		ReconnectAfter: cfg.ReconnectAfter(),
	}
}
