package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"matchmesh/internal/gateway"
	"matchmesh/internal/identity"
	"matchmesh/internal/store"
)

const testTimeout = 2 * time.Minute

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.UnixMilli(1_700_000_000_000)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var (
	ann = Party{GlobalID: identity.ComputeGlobalID("eu1", 1), Name: "Ann"}
	bo  = Party{GlobalID: identity.ComputeGlobalID("us1", 2), Name: "Bo"}
	cy  = Party{GlobalID: identity.ComputeGlobalID("ap1", 3), Name: "Cy"}
)

type node struct {
	st  store.Store
	gw  *gateway.Gateway
	mgr *Manager
}

func newNode(st store.Store, client gateway.Client, c *clock) *node {
	gw := gateway.New(client, gateway.Options{Scope: "mm", Now: c.Now, ReconnectAfter: time.Second})
	return &node{
		st:  st,
		gw:  gw,
		mgr: NewManager(gw, Options{PendingTimeout: testTimeout, Now: c.Now}),
	}
}

// twoNodes returns managers for two hosting nodes sharing one store.
func twoNodes(t *testing.T) (*node, *node, *clock) {
	t.Helper()
	st := store.NewMemory()
	c := newClock()
	return newNode(st, gateway.Local(st), c), newNode(st, gateway.Local(st), c), c
}

func readCopy(t *testing.T, st store.Store, owner identity.GlobalID, id string) (Challenge, bool) {
	t.Helper()
	raw, err := st.Read(context.Background(), "mm", mailboxPath(owner, id))
	if errors.Is(err, store.ErrNotFound) {
		return Challenge{}, false
	}
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	var ch Challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		t.Fatalf("decode copy: %v", err)
	}
	return ch, true
}

// peerFailClient fails writes into one mailbox, emulating a lost peer write.
type peerFailClient struct {
	gateway.Client
	mu      sync.Mutex
	blocked string
}

func (c *peerFailClient) block(prefix string) {
	c.mu.Lock()
	c.blocked = prefix
	c.mu.Unlock()
}

func (c *peerFailClient) Write(ctx context.Context, scope, path string, value json.RawMessage) error {
	c.mu.Lock()
	blocked := c.blocked
	c.mu.Unlock()
	if blocked != "" && len(path) >= len(blocked) && path[:len(blocked)] == blocked {
		return errors.New("write timed out")
	}
	return c.Client.Write(ctx, scope, path, value)
}
