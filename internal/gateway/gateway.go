// Package gateway wraps a keyed-store client so that callers never see a
// transport error: an unreachable store turns every operation into a no-op
// until a reconnect succeeds.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/store"
)

// Client is the network client for the keyed store. Read returns
// store.ErrNotFound for a missing path. Connect may be called again after a
// failure and must re-establish the session.
type Client interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context, scope, path string) (json.RawMessage, error)
	Write(ctx context.Context, scope, path string, value json.RawMessage) error
	Remove(ctx context.Context, scope, path string) error
	Close() error
}

type Options struct {
	Scope          string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
	ReconnectAfter time.Duration
	Now            func() time.Time
}

const (
	StatusIdle      = "idle"
	StatusConnected = "connected"
	StatusDegraded  = "degraded"
	StatusClosed    = "closed"
)

type Gateway struct {
	client Client
	opts   Options

	mu        sync.Mutex
	connected bool
	closed    bool
	openUntil time.Time
}

func New(client Client, opts Options) *Gateway {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 3 * time.Second
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{client: client, opts: opts}
}

func (g *Gateway) Scope() string { return g.opts.Scope }

// Read returns the value at path. ok is false when the store is unreachable;
// a missing path is ok with a nil value.
func (g *Gateway) Read(ctx context.Context, path string) (json.RawMessage, bool) {
	if !g.ready(ctx) {
		return nil, false
	}
	metricOpsTotal.Add(1)
	opCtx, cancel := context.WithTimeout(ctx, g.opts.OpTimeout)
	defer cancel()
	raw, err := g.client.Read(opCtx, g.opts.Scope, path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, true
	}
	if err != nil {
		g.fail("read", path, err)
		return nil, false
	}
	return raw, true
}

func (g *Gateway) Write(ctx context.Context, path string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("encode store value")
		return false
	}
	if !g.ready(ctx) {
		return false
	}
	metricOpsTotal.Add(1)
	opCtx, cancel := context.WithTimeout(ctx, g.opts.OpTimeout)
	defer cancel()
	if err := g.client.Write(opCtx, g.opts.Scope, path, raw); err != nil {
		g.fail("write", path, err)
		return false
	}
	return true
}

func (g *Gateway) Remove(ctx context.Context, path string) bool {
	if !g.ready(ctx) {
		return false
	}
	metricOpsTotal.Add(1)
	opCtx, cancel := context.WithTimeout(ctx, g.opts.OpTimeout)
	defer cancel()
	if err := g.client.Remove(opCtx, g.opts.Scope, path); err != nil {
		g.fail("remove", path, err)
		return false
	}
	return true
}

// Available attempts the lazy connect if needed and reports whether
// operations will reach the store.
func (g *Gateway) Available(ctx context.Context) bool {
	return g.ready(ctx)
}

func (g *Gateway) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.closed:
		return StatusClosed
	case g.connected:
		return StatusConnected
	case !g.openUntil.IsZero():
		return StatusDegraded
	default:
		return StatusIdle
	}
}

// Close releases the client. Later operations are no-ops.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	g.connected = false
	return g.client.Close()
}

func (g *Gateway) ready(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	if g.connected {
		return true
	}
	now := g.opts.Now()
	if !g.openUntil.IsZero() && now.Before(g.openUntil) {
		return false
	}
	metricConnectsTotal.Add(1)
	connCtx, cancel := context.WithTimeout(ctx, g.opts.ConnectTimeout)
	defer cancel()
	if err := g.client.Connect(connCtx); err != nil {
		g.openUntil = now.Add(g.opts.ReconnectAfter)
		metricDegradedTotal.Add(1)
		log.Warn().Err(err).Str("scope", g.opts.Scope).Msg("store gateway degraded")
		return false
	}
	g.connected = true
	g.openUntil = time.Time{}
	return true
}

func (g *Gateway) fail(op, path string, err error) {
	metricOpFailuresTotal.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return
	}
	g.connected = false
	g.openUntil = g.opts.Now().Add(g.opts.ReconnectAfter)
	metricDegradedTotal.Add(1)
	log.Warn().Err(err).Str("op", op).Str("scope", g.opts.Scope).Str("path", path).Msg("store operation failed")
}
