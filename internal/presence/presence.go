// Package presence publishes and reads "I am online" heartbeats. Each player
// owns exactly one path, presence.<globalId>, so writers never race.
package presence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/gateway"
	"matchmesh/internal/identity"
	"matchmesh/internal/schema"
)

const namespace = "presence"

type Player struct {
	GlobalID    identity.GlobalID
	DisplayName string
}

type Entry struct {
	GlobalID    identity.GlobalID `json:"globalId"`
	DisplayName string            `json:"displayName"`
	Timestamp   int64             `json:"timestamp"`
}

type Registry struct {
	gw  *gateway.Gateway
	ttl time.Duration
	now func() time.Time
}

func NewRegistry(gw *gateway.Gateway, ttl time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{gw: gw, ttl: ttl, now: now}
}

func path(id identity.GlobalID) string {
	return namespace + "." + string(id)
}

// SetPresence overwrites the caller's entry with the current time. It returns
// false when the store is unreachable.
func (r *Registry) SetPresence(ctx context.Context, p Player) bool {
	if !p.GlobalID.Valid() {
		return false
	}
	return r.gw.Write(ctx, path(p.GlobalID), Entry{
		GlobalID:    p.GlobalID,
		DisplayName: p.DisplayName,
		Timestamp:   r.now().UnixMilli(),
	})
}

// ClearPresence is best effort; a missed clear expires via the TTL.
func (r *Registry) ClearPresence(ctx context.Context, p Player) bool {
	if !p.GlobalID.Valid() {
		return false
	}
	return r.gw.Remove(ctx, path(p.GlobalID))
}

func (r *Registry) IsPlayerOnline(ctx context.Context, id identity.GlobalID) bool {
	if !id.Valid() {
		return false
	}
	raw, ok := r.gw.Read(ctx, path(id))
	if !ok || raw == nil {
		return false
	}
	e, ok := decodeEntry(id, raw)
	return ok && r.live(e)
}

// GetOnlinePlayers scans the whole namespace. Stale and malformed entries are
// skipped, not deleted.
func (r *Registry) GetOnlinePlayers(ctx context.Context) map[identity.GlobalID]Entry {
	out := map[identity.GlobalID]Entry{}
	raw, ok := r.gw.Read(ctx, namespace)
	if !ok || raw == nil {
		return out
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		log.Debug().Err(err).Msg("presence namespace is not an object")
		return out
	}
	for key, v := range all {
		e, ok := decodeEntry(identity.GlobalID(key), v)
		if !ok || !r.live(e) {
			continue
		}
		out[e.GlobalID] = e
	}
	return out
}

func (r *Registry) live(e Entry) bool {
	return r.now().UnixMilli()-e.Timestamp < r.ttl.Milliseconds()
}

func decodeEntry(key identity.GlobalID, raw json.RawMessage) (Entry, bool) {
	if err := schema.Validate(schema.Presence, raw); err != nil {
		log.Debug().Err(err).Str("global_id", string(key)).Msg("drop malformed presence entry")
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false
	}
	if e.GlobalID != key {
		return Entry{}, false
	}
	return e, true
}
