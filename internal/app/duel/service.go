// Package duel is the host-facing surface of a node: one Service per local
// player, each returning plain data so callers hold no live handles.
package duel

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/challenge"
	"matchmesh/internal/config"
	"matchmesh/internal/cycle"
	"matchmesh/internal/gateway"
	"matchmesh/internal/identity"
	"matchmesh/internal/presence"
)

type Options struct {
	PresenceTTL       time.Duration
	ChallengeTimeout  time.Duration
	HeartbeatInterval time.Duration
	Now               func() time.Time
}

func OptionsFromConfig(cfg config.MatchConfig) Options {
	return Options{
		PresenceTTL:       cfg.PresenceTTL(),
		ChallengeTimeout:  cfg.ChallengeTimeout(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
	}
}

func (o Options) withDefaults() Options {
	if o.PresenceTTL <= 0 {
		o.PresenceTTL = 30 * time.Second
	}
	if o.ChallengeTimeout <= 0 {
		o.ChallengeTimeout = 2 * time.Minute
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Profile struct {
	NodeID      string
	LocalUser   int
	DisplayName string
	Stakes      challenge.Stakes
}

// Service serializes every call for one player so the host's cycler and
// interactive calls never interleave.
type Service struct {
	mu sync.Mutex

	profile    Profile
	me         presence.Player
	gw         *gateway.Gateway
	presence   *presence.Registry
	challenges *challenge.Manager
	driver     *cycle.Driver
	closed     bool
}

func NewService(gw *gateway.Gateway, profile Profile, opts Options) *Service {
	opts = opts.withDefaults()
	me := presence.Player{
		GlobalID:    identity.ComputeGlobalID(profile.NodeID, profile.LocalUser),
		DisplayName: profile.DisplayName,
	}
	reg := presence.NewRegistry(gw, opts.PresenceTTL, opts.Now)
	mgr := challenge.NewManager(gw, challenge.Options{PendingTimeout: opts.ChallengeTimeout, Now: opts.Now})
	return &Service{
		profile:    profile,
		me:         me,
		gw:         gw,
		presence:   reg,
		challenges: mgr,
		driver:     cycle.New(me, reg, presence.NewHeartbeat(reg, opts.HeartbeatInterval), mgr),
	}
}

func (s *Service) GlobalID() identity.GlobalID { return s.me.GlobalID }

func (s *Service) Info() SessionInfo {
	return SessionInfo{
		GlobalID:    string(s.me.GlobalID),
		LocalUser:   s.profile.LocalUser,
		DisplayName: s.profile.DisplayName,
		Gateway:     s.gw.Status(),
	}
}

func (s *Service) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	return nil
}

func (s *Service) SetPresence(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if !s.presence.SetPresence(ctx, s.me) {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *Service) ClearPresence(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if !s.presence.ClearPresence(ctx, s.me) {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *Service) IsPlayerOnline(ctx context.Context, globalID string) (bool, error) {
	id, err := parseID(globalID)
	if err != nil {
		return false, err
	}
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	return s.presence.IsPlayerOnline(ctx, id), nil
}

func (s *Service) OnlinePlayers(ctx context.Context) (*OnlinePlayersResponse, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	entries := s.presence.GetOnlinePlayers(ctx)
	items := make([]PlayerItem, 0, len(entries))
	for id, e := range entries {
		items = append(items, PlayerItem{
			GlobalID:    string(id),
			DisplayName: e.DisplayName,
			LastSeenMS:  e.Timestamp,
			Self:        id == s.me.GlobalID,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].GlobalID < items[j].GlobalID })
	return &OnlinePlayersResponse{Items: items}, nil
}

// CreateChallenge invites target. When targetName is empty the name is taken
// from the target's presence entry, if any.
func (s *Service) CreateChallenge(ctx context.Context, target, targetName, mode string) (*ChallengeItem, error) {
	id, err := parseID(target)
	if err != nil {
		return nil, err
	}
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if targetName == "" {
		if e, ok := s.presence.GetOnlinePlayers(ctx)[id]; ok {
			targetName = e.DisplayName
		}
	}
	ch, err := s.challenges.CreateChallenge(ctx,
		challenge.Party{GlobalID: s.me.GlobalID, Name: s.me.DisplayName},
		challenge.Party{GlobalID: id, Name: targetName},
		challenge.CreateOptions{Mode: mode},
	)
	if err != nil {
		return nil, mapError(err)
	}
	item := toItem(*ch, s.me.GlobalID)
	return &item, nil
}

func (s *Service) ListChallenges(ctx context.Context) (*ChallengesResponse, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	out, err := s.challenges.ListOutgoing(ctx, s.me.GlobalID)
	if err != nil {
		return nil, mapError(err)
	}
	in, err := s.challenges.ListIncoming(ctx, s.me.GlobalID)
	if err != nil {
		return nil, mapError(err)
	}
	return &ChallengesResponse{
		Outgoing: toItems(out, s.me.GlobalID),
		Incoming: toItems(in, s.me.GlobalID),
	}, nil
}

func (s *Service) GetChallenge(ctx context.Context, id string) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		return s.challenges.Get(ctx, s.me.GlobalID, id)
	})
}

// Accept returns ErrChallengeNotFound while the invitation has not reached
// this player's mailbox; the host retries on a later cycle.
func (s *Service) Accept(ctx context.Context, id string) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		return s.challenges.MarkAccepted(ctx, id, s.me.GlobalID)
	})
}

func (s *Service) Decline(ctx context.Context, id string) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		return s.challenges.Decline(ctx, id, s.me.GlobalID)
	})
}

func (s *Service) Cancel(ctx context.Context, id string) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		return s.challenges.Cancel(ctx, id, s.me.GlobalID)
	})
}

func (s *Service) Dismiss(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidRequest
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return mapError(s.challenges.Dismiss(ctx, id, s.me.GlobalID))
}

// NegotiateWager opens the wager bounded by this player's stakes and the
// opponent's.
func (s *Service) NegotiateWager(ctx context.Context, id string, opponent challenge.Stakes) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		return s.challenges.NegotiateWager(ctx, id, s.me.GlobalID, s.profile.Stakes, opponent)
	})
}

func (s *Service) ProposeWager(ctx context.Context, id string, cash, rep int64, lock bool) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		return s.challenges.SubmitWager(ctx, id, s.me.GlobalID, cash, rep, lock)
	})
}

func (s *Service) MarkReady(ctx context.Context, id string, ready bool) (*ChallengeItem, error) {
	return s.apply(ctx, id, func(ctx context.Context) (*challenge.Challenge, error) {
		ch, err := s.challenges.MarkReady(ctx, id, s.me.GlobalID, ready)
		if err == nil && ch != nil {
			s.driver.WantReady(id, ready)
		}
		return ch, err
	})
}

func (s *Service) Cycle(ctx context.Context) (*CycleResponse, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	sum := s.driver.Cycle(ctx)
	for _, d := range sum.Deltas {
		log.Info().
			Str("global_id", string(s.me.GlobalID)).
			Str("challenge_id", d.ChallengeID).
			Str("kind", string(d.Kind)).
			Msg("challenge update")
	}
	return toCycleResponse(sum, s.me.GlobalID), nil
}

// Disconnect clears presence and releases the store session. The service is
// unusable afterwards.
func (s *Service) Disconnect(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.presence.ClearPresence(ctx, s.me)
	s.closed = true
	return s.gw.Close()
}

func (s *Service) apply(ctx context.Context, id string, fn func(context.Context) (*challenge.Challenge, error)) (*ChallengeItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidRequest
	}
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	ch, err := fn(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if ch == nil {
		return nil, ErrChallengeNotFound
	}
	item := toItem(*ch, s.me.GlobalID)
	return &item, nil
}

func parseID(raw string) (identity.GlobalID, error) {
	id := identity.GlobalID(strings.TrimSpace(raw))
	if !id.Valid() {
		return "", ErrInvalidRequest
	}
	return id, nil
}
