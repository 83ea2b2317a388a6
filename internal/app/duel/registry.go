package duel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/challenge"
	"matchmesh/internal/gateway"
	"matchmesh/internal/identity"
)

// Registry holds the live sessions of one node, keyed by local user number.
// Each session gets its own store client.
type Registry struct {
	nodeID    string
	opts      Options
	gwOpts    gateway.Options
	newClient func() gateway.Client

	mu       sync.RWMutex
	sessions map[int]*Service
}

func NewRegistry(nodeID string, opts Options, gwOpts gateway.Options, newClient func() gateway.Client) *Registry {
	return &Registry{
		nodeID:    nodeID,
		opts:      opts,
		gwOpts:    gwOpts,
		newClient: newClient,
		sessions:  map[int]*Service{},
	}
}

func (r *Registry) NodeID() string { return r.nodeID }

// Open returns the session for localUser, creating it on first use.
func (r *Registry) Open(localUser int, name string, stakes challenge.Stakes) (*Service, error) {
	if localUser < 0 || strings.TrimSpace(name) == "" {
		return nil, ErrInvalidRequest
	}
	if err := identity.ValidateNodeID(r.nodeID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[localUser]; ok {
		return s, nil
	}
	gw := gateway.New(r.newClient(), r.gwOpts)
	s := NewService(gw, Profile{
		NodeID:      r.nodeID,
		LocalUser:   localUser,
		DisplayName: name,
		Stakes:      stakes,
	}, r.opts)
	r.sessions[localUser] = s
	return s, nil
}

func (r *Registry) Get(localUser int) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[localUser]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Sessions returns the open sessions ordered by local user.
func (r *Registry) Sessions() []*Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Service, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].profile.LocalUser < out[j].profile.LocalUser })
	return out
}

// Close disconnects and forgets one session.
func (r *Registry) Close(ctx context.Context, localUser int) error {
	r.mu.Lock()
	s, ok := r.sessions[localUser]
	delete(r.sessions, localUser)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.Disconnect(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
		return err
	}
	return nil
}

func (r *Registry) CloseAll(ctx context.Context) {
	for _, s := range r.Sessions() {
		_ = r.Close(ctx, s.profile.LocalUser)
	}
}

// StartCycler runs Cycle for every open session on each tick until ctx is
// done. Deltas are logged by the sessions themselves.
func (r *Registry) StartCycler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.cycleAll(ctx)
			}
		}
	}()
}

func (r *Registry) cycleAll(ctx context.Context) {
	for _, s := range r.Sessions() {
		if _, err := s.Cycle(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			log.Warn().Err(err).Str("global_id", string(s.GlobalID())).Msg("cycle failed")
		}
	}
}
