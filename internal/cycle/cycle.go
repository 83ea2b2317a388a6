// Package cycle is the polling reconciliation pass a host runs on its own
// tick. It owns no goroutines: each Cycle call refreshes presence when due,
// re-reads the player's mailbox and reports what changed since the last call.
package cycle

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/challenge"
	"matchmesh/internal/presence"
)

type Kind string

const (
	KindIncoming     Kind = "incoming"
	KindAccepted     Kind = "accepted"
	KindDeclined     Kind = "declined"
	KindCancelled    Kind = "cancelled"
	KindTimeout      Kind = "timeout"
	KindStarted      Kind = "started"
	KindWagerUpdated Kind = "wager_updated"
	KindReadyChanged Kind = "ready_changed"
	KindRemoved      Kind = "removed"
)

var statusKinds = map[challenge.Status]Kind{
	challenge.StatusAccepted:  KindAccepted,
	challenge.StatusDeclined:  KindDeclined,
	challenge.StatusCancelled: KindCancelled,
	challenge.StatusTimeout:   KindTimeout,
	challenge.StatusStarted:   KindStarted,
}

type Delta struct {
	Kind        Kind                 `json:"kind"`
	ChallengeID string               `json:"challenge_id"`
	Challenge   *challenge.Challenge `json:"challenge,omitempty"`
}

type Summary struct {
	Deltas      []Delta `json:"deltas"`
	OnlineCount int     `json:"online_count"`
	Heartbeat   bool    `json:"heartbeat"`
	Degraded    bool    `json:"degraded"`
	Repaired    int     `json:"repaired"`
}

type Driver struct {
	me         presence.Player
	presence   *presence.Registry
	heartbeat  *presence.Heartbeat
	challenges *challenge.Manager
	revisions  *challenge.RevisionTracker

	prev      map[string]challenge.Challenge
	wantReady map[string]bool
}

func New(me presence.Player, reg *presence.Registry, hb *presence.Heartbeat, mgr *challenge.Manager) *Driver {
	return &Driver{
		me:         me,
		presence:   reg,
		heartbeat:  hb,
		challenges: mgr,
		revisions:  challenge.NewRevisionTracker(),
		prev:       map[string]challenge.Challenge{},
		wantReady:  map[string]bool{},
	}
}

// WantReady records the player's intent for a lobby flag. Cycle re-asserts it
// if a concurrent peer write drops the flag from the player's copy.
func (d *Driver) WantReady(id string, ready bool) {
	d.wantReady[id] = ready
}

// Challenges returns the mailbox as of the last cycle, oldest first.
func (d *Driver) Challenges() []challenge.Challenge {
	out := make([]challenge.Challenge, 0, len(d.prev))
	for _, ch := range d.prev {
		out = append(out, ch)
	}
	sortByAge(out)
	return out
}

func (d *Driver) Cycle(ctx context.Context) Summary {
	var sum Summary
	me := d.me.GlobalID

	if d.heartbeat.Due(d.challenges.Now()) {
		sum.Heartbeat = d.heartbeat.Beat(ctx, d.me)
	}

	// Owed peer writes go first so the snapshot reflects any outcome taken
	// from the peer.
	sum.Repaired = d.challenges.RepairMirrors(ctx, me)
	snap, err := d.challenges.Snapshot(ctx, me)
	if err != nil {
		if !errors.Is(err, challenge.ErrUnavailable) {
			log.Error().Err(err).Str("global_id", string(me)).Msg("cycle snapshot failed")
		}
		sum.Degraded = true
		return sum
	}

	current := make([]challenge.Challenge, 0, len(snap))
	for _, ch := range snap {
		current = append(current, ch)
	}
	sortByAge(current)

	next := make(map[string]challenge.Challenge, len(current))
	for _, cur := range current {
		old, seen := d.prev[cur.ID]
		cur = d.guardWager(cur, old, seen, &sum)
		cur = d.repairReady(ctx, cur)

		switch {
		case !seen:
			if cur.Status == challenge.StatusPending && cur.To.GlobalID == me {
				sum.add(KindIncoming, cur)
			}
		case old.Status != cur.Status:
			if kind, ok := statusKinds[cur.Status]; ok {
				sum.add(kind, cur)
			}
		case !sameReady(old, cur):
			sum.add(KindReadyChanged, cur)
		}
		if cur.Status.Terminal() {
			delete(d.wantReady, cur.ID)
		}
		next[cur.ID] = cur
	}

	removed := make([]challenge.Challenge, 0)
	for id, old := range d.prev {
		if _, ok := next[id]; !ok {
			removed = append(removed, old)
		}
	}
	sortByAge(removed)
	for _, old := range removed {
		sum.Deltas = append(sum.Deltas, Delta{Kind: KindRemoved, ChallengeID: old.ID})
		d.revisions.Forget(old.ID)
		delete(d.wantReady, old.ID)
	}
	d.prev = next

	sum.OnlineCount = len(d.presence.GetOnlinePlayers(ctx))
	return sum
}

// guardWager keeps the previously applied wager when the copy just read
// carries an older revision.
func (d *Driver) guardWager(cur, old challenge.Challenge, seen bool, sum *Summary) challenge.Challenge {
	if cur.Wager != nil && d.revisions.Accept(cur) {
		if seen {
			sum.add(KindWagerUpdated, cur)
		}
		return cur
	}
	if !seen || old.Wager == nil {
		return cur
	}
	if cur.Wager == nil || cur.Wager.Revision < old.Wager.Revision {
		w := *old.Wager
		cur.Wager = &w
		log.Debug().Str("challenge_id", cur.ID).Msg("ignore stale wager revision")
	}
	return cur
}

func (d *Driver) repairReady(ctx context.Context, cur challenge.Challenge) challenge.Challenge {
	want, ok := d.wantReady[cur.ID]
	if !ok || cur.Status != challenge.StatusAccepted {
		return cur
	}
	me := d.me.GlobalID
	if cur.Lobby.Ready[me] == want {
		return cur
	}
	fixed, err := d.challenges.MarkReady(ctx, cur.ID, me, want)
	if err != nil || fixed == nil {
		log.Debug().Err(err).Str("challenge_id", cur.ID).Msg("ready repair deferred")
		return cur
	}
	log.Info().Str("challenge_id", cur.ID).Bool("ready", want).Msg("ready flag re-asserted")
	fixed.Wager = cur.Wager
	return *fixed
}

func (s *Summary) add(kind Kind, ch challenge.Challenge) {
	c := ch
	s.Deltas = append(s.Deltas, Delta{Kind: kind, ChallengeID: ch.ID, Challenge: &c})
}

func sameReady(a, b challenge.Challenge) bool {
	for k, v := range a.Lobby.Ready {
		if b.Lobby.Ready[k] != v {
			return false
		}
	}
	for k, v := range b.Lobby.Ready {
		if a.Lobby.Ready[k] != v {
			return false
		}
	}
	return true
}

func sortByAge(list []challenge.Challenge) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
}
