package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/app/duel"
	"matchmesh/internal/challenge"
	"matchmesh/internal/config"
	"matchmesh/internal/gateway"
	"matchmesh/internal/logging"
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
	botCfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	match := cfg.Match

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := gateway.New(ws.NewClient(match.StoreURL), gateway.Options{
		Scope:          match.StoreScope,
		ConnectTimeout: match.ConnectTimeout(),
		OpTimeout:      match.OpTimeout(),
		ReconnectAfter: match.ReconnectAfter(),
	})
	svc := duel.NewService(gw, duel.Profile{
		NodeID:      match.NodeID,
		LocalUser:   botCfg.LocalUser,
		DisplayName: botCfg.Name,
		Stakes:      challenge.Stakes{Cash: botCfg.Cash, Rep: botCfg.Rep},
	}, duel.OptionsFromConfig(match))
	b := newBot(svc, botCfg)

	log.Info().Str("global_id", string(svc.GlobalID())).Str("target", botCfg.Target).Msg("bot started")
	ticker := time.NewTicker(match.CycleInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = svc.Disconnect(shutdownCtx)
			cancel()
			log.Info().Msg("bot stopped")
			return
		case <-ticker.C:
			if err := b.step(ctx); err != nil {
				log.Warn().Err(err).Msg("bot step failed")
			}
		}
	}
}
