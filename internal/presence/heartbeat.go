package presence

import (
	"context"
	"time"
)

// Heartbeat rate-limits presence refreshes for a host that ticks more often
// than it needs to publish.
type Heartbeat struct {
	reg      *Registry
	interval time.Duration
	last     time.Time
}

func NewHeartbeat(reg *Registry, interval time.Duration) *Heartbeat {
	return &Heartbeat{reg: reg, interval: interval}
}

func (h *Heartbeat) Due(now time.Time) bool {
	return h.last.IsZero() || now.Sub(h.last) >= h.interval
}

// Beat publishes presence and records the time only if the write landed, so a
// degraded store is retried on the next tick.
func (h *Heartbeat) Beat(ctx context.Context, p Player) bool {
	if !h.reg.SetPresence(ctx, p) {
		return false
	}
	h.last = h.reg.now()
	return true
}

// Reset forces the next Due to report true.
func (h *Heartbeat) Reset() { h.last = time.Time{} }
