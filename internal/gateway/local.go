package gateway

import (
	"context"
	"encoding/json"

	"matchmesh/internal/store"
)

type localClient struct {
	st store.Store
}

// Local serves a Gateway from an in-process store. Closing the client leaves
// the store open; it may be shared by other gateways.
func Local(st store.Store) Client {
	return &localClient{st: st}
}

func (c *localClient) Connect(ctx context.Context) error { return c.st.Ping(ctx) }

func (c *localClient) Read(ctx context.Context, scope, path string) (json.RawMessage, error) {
	return c.st.Read(ctx, scope, path)
}

func (c *localClient) Write(ctx context.Context, scope, path string, value json.RawMessage) error {
	return c.st.Write(ctx, scope, path, value)
}

func (c *localClient) Remove(ctx context.Context, scope, path string) error {
	return c.st.Remove(ctx, scope, path)
}

func (c *localClient) Close() error { return nil }
