package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps every scope document in process. Used for tests and
// single-node development.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]any
	closed bool
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]any{}}
}

func (m *Memory) Read(ctx context.Context, scope, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := checkAddress(scope, path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	doc, ok := m.docs[scope]
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := lookup(doc, segs)
	if !ok {
		return nil, ErrNotFound
	}
	return json.Marshal(v)
}

func (m *Memory) Write(ctx context.Context, scope, path string, value json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segs, err := checkAddress(scope, path)
	if err != nil {
		return err
	}
	v, err := decodeValue(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.docs[scope] = assign(m.docs[scope], segs, v)
	return nil
}

func (m *Memory) Remove(ctx context.Context, scope, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segs, err := checkAddress(scope, path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if len(segs) == 0 {
		delete(m.docs, scope)
		return nil
	}
	if doc, ok := m.docs[scope]; ok {
		prune(doc, segs)
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func checkAddress(scope, path string) ([]string, error) {
	if scope == "" {
		return nil, ErrInvalidPath
	}
	return splitPath(path)
}
