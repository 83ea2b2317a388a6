package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/app/duel"
	"matchmesh/internal/challenge"
	"matchmesh/internal/config"
	"matchmesh/internal/cycle"
)

// bot accepts every invitation, opens and locks a wager at half the ceiling,
// agrees to whatever the other side proposes, then marks ready.
type bot struct {
	svc        *duel.Service
	cfg        config.BotConfig
	challenged bool
	started    []string
}

func newBot(svc *duel.Service, cfg config.BotConfig) *bot {
	return &bot{svc: svc, cfg: cfg}
}

// opponentStakes is what the configured target declared it can pay. The
// bot has no channel to learn an inviter's stakes, so it only opens wagers
// on its own outgoing challenges.
func (b *bot) opponentStakes() challenge.Stakes {
	return challenge.Stakes{Cash: b.cfg.TargetCash, Rep: b.cfg.TargetRep}
}

func (b *bot) step(ctx context.Context) error {
	cyc, err := b.svc.Cycle(ctx)
	if err != nil {
		return err
	}
	if cyc.Degraded {
		return nil
	}
	for _, ev := range cyc.Events {
		if ev.Kind == string(cycle.KindStarted) {
			b.started = append(b.started, ev.ChallengeID)
			log.Info().Str("challenge_id", ev.ChallengeID).Msg("match started")
		}
	}

	list, err := b.svc.ListChallenges(ctx)
	if err != nil {
		return err
	}
	if b.cfg.Target != "" && !b.challenged && len(list.Outgoing) == 0 {
		if err := b.challenge(ctx); err != nil {
			return err
		}
	}
	var errs []error
	for _, item := range list.Incoming {
		errs = append(errs, b.advance(ctx, item))
	}
	for _, item := range list.Outgoing {
		errs = append(errs, b.advance(ctx, item))
	}
	return errors.Join(errs...)
}

func (b *bot) challenge(ctx context.Context) error {
	online, err := b.svc.IsPlayerOnline(ctx, b.cfg.Target)
	if err != nil || !online {
		return err
	}
	item, err := b.svc.CreateChallenge(ctx, b.cfg.Target, "", b.cfg.Mode)
	if err != nil {
		return err
	}
	b.challenged = true
	log.Info().Str("challenge_id", item.ID).Str("target", b.cfg.Target).Msg("challenge sent")
	return nil
}

func (b *bot) advance(ctx context.Context, item duel.ChallengeItem) error {
	var err error
	switch {
	case item.Status == "pending" && item.Direction == "incoming":
		_, err = b.svc.Accept(ctx, item.ID)
	case item.Status != "accepted":
	case !item.Wager.Present:
		if item.Direction == "outgoing" {
			_, err = b.svc.NegotiateWager(ctx, item.ID, b.opponentStakes())
		}
	case item.Wager.Revision >= 2:
		if !item.ReadyMe {
			_, err = b.svc.MarkReady(ctx, item.ID, true)
		}
	case item.Wager.Revision == 0 && item.Direction == "outgoing":
		_, err = b.svc.ProposeWager(ctx, item.ID, item.Wager.CeilingCash/2, item.Wager.CeilingRep/2, true)
	case item.MyTurn:
		_, err = b.svc.ProposeWager(ctx, item.ID, item.Wager.Cash, item.Wager.Rep, true)
	}
	if errors.Is(err, duel.ErrChallengeNotFound) {
		return nil
	}
	return err
}
