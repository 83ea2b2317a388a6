package presence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"matchmesh/internal/gateway"
	"matchmesh/internal/identity"
	"matchmesh/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newRegistry(t *testing.T, st store.Store, c *clock) *Registry {
	t.Helper()
	gw := gateway.New(gateway.Local(st), gateway.Options{Scope: "mm", Now: c.Now})
	return NewRegistry(gw, 30*time.Second, c.Now)
}

func TestSetPresenceIdempotentLaterTimestamp(t *testing.T) {
	st := store.NewMemory()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	reg := newRegistry(t, st, c)
	ann := Player{GlobalID: identity.ComputeGlobalID("eu1", 1), DisplayName: "Ann"}

	if !reg.SetPresence(context.Background(), ann) {
		t.Fatal("SetPresence = false, want true")
	}
	c.Advance(5 * time.Millisecond)
	if !reg.SetPresence(context.Background(), ann) {
		t.Fatal("second SetPresence = false, want true")
	}

	online := reg.GetOnlinePlayers(context.Background())
	if len(online) != 1 {
		t.Fatalf("online = %d entries, want 1", len(online))
	}
	if got := online[ann.GlobalID].Timestamp; got != 1_700_000_000_005 {
		t.Fatalf("timestamp = %d, want 1700000000005", got)
	}
}

func TestIsPlayerOnlineFlipsAtTTL(t *testing.T) {
	st := store.NewMemory()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	reg := newRegistry(t, st, c)
	ann := Player{GlobalID: "eu1_1", DisplayName: "Ann"}

	reg.SetPresence(context.Background(), ann)
	c.Advance(30*time.Second - time.Millisecond)
	if !reg.IsPlayerOnline(context.Background(), ann.GlobalID) {
		t.Fatal("IsPlayerOnline just before TTL = false, want true")
	}
	c.Advance(time.Millisecond)
	if reg.IsPlayerOnline(context.Background(), ann.GlobalID) {
		t.Fatal("IsPlayerOnline at TTL = true, want false")
	}
	if len(reg.GetOnlinePlayers(context.Background())) != 0 {
		t.Fatal("GetOnlinePlayers at TTL not empty")
	}
	if _, err := st.Read(context.Background(), "mm", "presence.eu1_1"); err != nil {
		t.Fatalf("stale entry was deleted: %v", err)
	}
}

func TestClearPresence(t *testing.T) {
	st := store.NewMemory()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	reg := newRegistry(t, st, c)
	ann := Player{GlobalID: "eu1_1", DisplayName: "Ann"}
	bo := Player{GlobalID: "us1_2", DisplayName: "Bo"}

	reg.SetPresence(context.Background(), ann)
	reg.SetPresence(context.Background(), bo)
	if !reg.ClearPresence(context.Background(), ann) {
		t.Fatal("ClearPresence = false, want true")
	}
	if reg.IsPlayerOnline(context.Background(), ann.GlobalID) {
		t.Fatal("cleared player still online")
	}
	if !reg.IsPlayerOnline(context.Background(), bo.GlobalID) {
		t.Fatal("other player went offline")
	}
}

func TestMalformedEntriesAreSkipped(t *testing.T) {
	st := store.NewMemory()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	reg := newRegistry(t, st, c)
	ctx := context.Background()
	now := c.Now().UnixMilli()

	writes := map[string]string{
		"presence.eu1_1": `{"globalId":"eu1_1","displayName":"Ann","timestamp":` + jsonInt(now) + `}`,
		"presence.eu1_2": `{"globalId":"eu1_9","displayName":"Liar","timestamp":` + jsonInt(now) + `}`,
		"presence.eu1_3": `{"globalId":"eu1_3","timestamp":"now"}`,
		"presence.eu1_4": `"online"`,
	}
	for p, v := range writes {
		if err := st.Write(ctx, "mm", p, json.RawMessage(v)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}

	online := reg.GetOnlinePlayers(ctx)
	if len(online) != 1 {
		t.Fatalf("online = %v, want only eu1_1", online)
	}
	if _, ok := online["eu1_1"]; !ok {
		t.Fatal("eu1_1 missing from online players")
	}
	if reg.IsPlayerOnline(ctx, "eu1_3") {
		t.Fatal("malformed entry reported online")
	}
	if reg.IsPlayerOnline(ctx, "not-an-id") {
		t.Fatal("invalid id reported online")
	}
}

type downClient struct{}

func (downClient) Connect(context.Context) error { return errors.New("unreachable") }
func (downClient) Read(context.Context, string, string) (json.RawMessage, error) {
	return nil, errors.New("unreachable")
}
func (downClient) Write(context.Context, string, string, json.RawMessage) error {
	return errors.New("unreachable")
}
func (downClient) Remove(context.Context, string, string) error { return errors.New("unreachable") }
func (downClient) Close() error                                 { return nil }

func TestDegradedRegistry(t *testing.T) {
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	gw := gateway.New(downClient{}, gateway.Options{Scope: "mm", Now: c.Now, ReconnectAfter: time.Minute})
	reg := NewRegistry(gw, 30*time.Second, c.Now)
	ann := Player{GlobalID: "eu1_1", DisplayName: "Ann"}

	if reg.SetPresence(context.Background(), ann) {
		t.Fatal("SetPresence on degraded store = true, want false")
	}
	if reg.IsPlayerOnline(context.Background(), ann.GlobalID) {
		t.Fatal("IsPlayerOnline on degraded store = true")
	}
	if got := reg.GetOnlinePlayers(context.Background()); len(got) != 0 {
		t.Fatalf("GetOnlinePlayers on degraded store = %v, want empty", got)
	}
}

func TestHeartbeatDue(t *testing.T) {
	st := store.NewMemory()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	reg := newRegistry(t, st, c)
	hb := NewHeartbeat(reg, 10*time.Second)
	ann := Player{GlobalID: "eu1_1", DisplayName: "Ann"}

	if !hb.Due(c.Now()) {
		t.Fatal("fresh heartbeat not due")
	}
	if !hb.Beat(context.Background(), ann) {
		t.Fatal("Beat = false, want true")
	}
	c.Advance(9 * time.Second)
	if hb.Due(c.Now()) {
		t.Fatal("heartbeat due before interval")
	}
	c.Advance(time.Second)
	if !hb.Due(c.Now()) {
		t.Fatal("heartbeat not due at interval")
	}
	hb.Beat(context.Background(), ann)
	hb.Reset()
	if !hb.Due(c.Now()) {
		t.Fatal("heartbeat not due after Reset")
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
