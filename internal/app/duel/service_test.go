package duel

import (
	"context"
	"errors"
	"testing"
	"time"

	"matchmesh/internal/challenge"
	"matchmesh/internal/gateway"
	"matchmesh/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newRegistries(t *testing.T) (*Registry, *Registry, *clock) {
	t.Helper()
	st := store.NewMemory()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	opts := Options{
		PresenceTTL:       30 * time.Second,
		ChallengeTimeout:  2 * time.Minute,
		HeartbeatInterval: 10 * time.Second,
		Now:               c.Now,
	}
	gwOpts := gateway.Options{Scope: "mm", Now: c.Now}
	newClient := func() gateway.Client { return gateway.Local(st) }
	return NewRegistry("eu1", opts, gwOpts, newClient), NewRegistry("us1", opts, gwOpts, newClient), c
}

func mustOpen(t *testing.T, r *Registry, user int, name string, stakes challenge.Stakes) *Service {
	t.Helper()
	s, err := r.Open(user, name, stakes)
	if err != nil {
		t.Fatalf("Open(%d) error = %v", user, err)
	}
	return s
}

func eventKinds(resp *CycleResponse) []string {
	out := make([]string, 0, len(resp.Events))
	for _, ev := range resp.Events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestDuelEndToEnd(t *testing.T) {
	eu, us, _ := newRegistries(t)
	ctx := context.Background()
	ann := mustOpen(t, eu, 1, "Ann", challenge.Stakes{Cash: 100, Rep: 50})
	bo := mustOpen(t, us, 2, "Bo", challenge.Stakes{Cash: 80, Rep: 100})

	if err := ann.SetPresence(ctx); err != nil {
		t.Fatalf("SetPresence error = %v", err)
	}
	if err := bo.SetPresence(ctx); err != nil {
		t.Fatalf("SetPresence error = %v", err)
	}
	players, err := ann.OnlinePlayers(ctx)
	if err != nil {
		t.Fatalf("OnlinePlayers error = %v", err)
	}
	if len(players.Items) != 2 || !players.Items[0].Self || players.Items[1].DisplayName != "Bo" {
		t.Fatalf("unexpected online players: %+v", players.Items)
	}

	created, err := ann.CreateChallenge(ctx, "us1_2", "", "sprint")
	if err != nil {
		t.Fatalf("CreateChallenge error = %v", err)
	}
	if created.ToName != "Bo" || created.Direction != "outgoing" {
		t.Fatalf("unexpected created challenge: %+v", created)
	}

	cyc, err := bo.Cycle(ctx)
	if err != nil {
		t.Fatalf("Cycle error = %v", err)
	}
	if kinds := eventKinds(cyc); len(kinds) != 1 || kinds[0] != "incoming" {
		t.Fatalf("bo events = %v, want [incoming]", kinds)
	}
	if cyc.Events[0].Challenge.Direction != "incoming" {
		t.Fatalf("direction = %q, want incoming", cyc.Events[0].Challenge.Direction)
	}

	if _, err := bo.Accept(ctx, created.ID); err != nil {
		t.Fatalf("Accept error = %v", err)
	}
	if _, err := ann.NegotiateWager(ctx, created.ID, challenge.Stakes{Cash: 80, Rep: 100}); err != nil {
		t.Fatalf("NegotiateWager error = %v", err)
	}
	item, err := ann.ProposeWager(ctx, created.ID, 50, 10, false)
	if err != nil {
		t.Fatalf("ProposeWager error = %v", err)
	}
	if item.Wager.Revision != 1 || item.Wager.CeilingCash != 80 || item.Wager.CeilingRep != 50 {
		t.Fatalf("unexpected wager: %+v", item.Wager)
	}

	view, err := bo.GetChallenge(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetChallenge error = %v", err)
	}
	if !view.MyTurn {
		t.Fatal("bo MyTurn = false, want true")
	}
	if _, err := bo.ProposeWager(ctx, created.ID, 45, 10, true); err != nil {
		t.Fatalf("counter ProposeWager error = %v", err)
	}

	if _, err := ann.MarkReady(ctx, created.ID, true); err != nil {
		t.Fatalf("MarkReady error = %v", err)
	}
	last, err := bo.MarkReady(ctx, created.ID, true)
	if err != nil {
		t.Fatalf("MarkReady error = %v", err)
	}
	if last.Status != "started" || !last.ReadyMe || !last.ReadyPeer {
		t.Fatalf("unexpected final challenge: %+v", last)
	}

	lists, err := ann.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("ListChallenges error = %v", err)
	}
	if len(lists.Outgoing) != 0 || len(lists.Incoming) != 0 {
		t.Fatalf("started challenge still listed: %+v", lists)
	}
}

func TestDuelErrorMapping(t *testing.T) {
	eu, us, _ := newRegistries(t)
	ctx := context.Background()
	ann := mustOpen(t, eu, 1, "Ann", challenge.Stakes{Cash: 10, Rep: 10})
	bo := mustOpen(t, us, 2, "Bo", challenge.Stakes{Cash: 10, Rep: 10})

	if _, err := ann.CreateChallenge(ctx, "nonsense", "", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("CreateChallenge(bad id) error = %v, want invalid_request", err)
	}
	if _, err := ann.CreateChallenge(ctx, "eu1_1", "", ""); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("self challenge error = %v, want protocol_violation", err)
	}
	if _, err := bo.Accept(ctx, "01HMISSING"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("Accept(missing) error = %v, want challenge_not_found", err)
	}
	if _, err := bo.Accept(ctx, " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Accept(blank) error = %v, want invalid_request", err)
	}

	ch, err := ann.CreateChallenge(ctx, "us1_2", "Bo", "")
	if err != nil {
		t.Fatalf("CreateChallenge error = %v", err)
	}
	_, err = ann.Accept(ctx, ch.ID)
	if !errors.Is(err, ErrProtocolViolation) || !errors.Is(err, challenge.ErrNotRecipient) {
		t.Fatalf("Accept by initiator error = %v, want protocol_violation/not_recipient", err)
	}
	if err := ann.Dismiss(ctx, ch.ID); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("Dismiss(open) error = %v, want protocol_violation", err)
	}
	if _, err := bo.Decline(ctx, ch.ID); err != nil {
		t.Fatalf("Decline error = %v", err)
	}
	if err := ann.Dismiss(ctx, ch.ID); err != nil {
		t.Fatalf("Dismiss(declined) error = %v", err)
	}
	if _, err := ann.GetChallenge(ctx, ch.ID); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("GetChallenge(dismissed) error = %v, want challenge_not_found", err)
	}
}

func TestDuelPresenceExpiry(t *testing.T) {
	eu, us, c := newRegistries(t)
	ctx := context.Background()
	ann := mustOpen(t, eu, 1, "Ann", challenge.Stakes{})
	bo := mustOpen(t, us, 2, "Bo", challenge.Stakes{})

	if err := bo.SetPresence(ctx); err != nil {
		t.Fatalf("SetPresence error = %v", err)
	}
	online, err := ann.IsPlayerOnline(ctx, "us1_2")
	if err != nil || !online {
		t.Fatalf("IsPlayerOnline = %v, %v; want true", online, err)
	}
	c.Advance(30 * time.Second)
	online, err = ann.IsPlayerOnline(ctx, "us1_2")
	if err != nil || online {
		t.Fatalf("IsPlayerOnline after TTL = %v, %v; want false", online, err)
	}
	if _, err := ann.IsPlayerOnline(ctx, "us1"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("IsPlayerOnline(bad id) error = %v, want invalid_request", err)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	eu, _, _ := newRegistries(t)
	ctx := context.Background()

	if _, err := eu.Open(1, " ", challenge.Stakes{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Open(blank name) error = %v, want invalid_request", err)
	}
	a := mustOpen(t, eu, 1, "Ann", challenge.Stakes{})
	again := mustOpen(t, eu, 1, "Ann", challenge.Stakes{})
	if a != again {
		t.Fatal("Open returned a second session for the same user")
	}
	mustOpen(t, eu, 3, "Cy", challenge.Stakes{})
	sessions := eu.Sessions()
	if len(sessions) != 2 || sessions[0].Info().LocalUser != 1 {
		t.Fatalf("unexpected sessions: %d", len(sessions))
	}
	if got := a.Info().GlobalID; got != "eu1_1" {
		t.Fatalf("GlobalID = %q, want eu1_1", got)
	}

	if err := a.SetPresence(ctx); err != nil {
		t.Fatalf("SetPresence error = %v", err)
	}
	if err := eu.Close(ctx, 1); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if _, err := eu.Get(1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after Close error = %v, want session_not_found", err)
	}
	if err := a.SetPresence(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("SetPresence after Close error = %v, want session_closed", err)
	}
	cy, _ := eu.Get(3)
	online, err := cy.IsPlayerOnline(ctx, "eu1_1")
	if err != nil || online {
		t.Fatalf("disconnected player online = %v, %v; want false", online, err)
	}

	eu.CloseAll(ctx)
	if len(eu.Sessions()) != 0 {
		t.Fatal("CloseAll left sessions behind")
	}
}

func TestRegistryRejectsUnaddressableNode(t *testing.T) {
	st := store.NewMemory()
	for _, node := range []string{"node_a", "eu.west"} {
		reg := NewRegistry(node, Options{}, gateway.Options{Scope: "mm"}, func() gateway.Client { return gateway.Local(st) })
		if _, err := reg.Open(1, "Ann", challenge.Stakes{}); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("Open on node %q error = %v, want invalid_request", node, err)
		}
	}
}

func TestRegistryCycleAllHeartbeats(t *testing.T) {
	eu, us, _ := newRegistries(t)
	ctx := context.Background()
	mustOpen(t, eu, 1, "Ann", challenge.Stakes{})
	bo := mustOpen(t, us, 2, "Bo", challenge.Stakes{})

	online, err := bo.IsPlayerOnline(ctx, "eu1_1")
	if err != nil || online {
		t.Fatalf("online before cycle = %v, %v; want false", online, err)
	}
	eu.cycleAll(ctx)
	online, err = bo.IsPlayerOnline(ctx, "eu1_1")
	if err != nil || !online {
		t.Fatalf("online after cycle = %v, %v; want true", online, err)
	}
}
