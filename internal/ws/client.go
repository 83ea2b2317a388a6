package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"matchmesh/internal/gateway"
	"matchmesh/internal/store"
)

var (
	ErrNotConnected   = errors.New("ws: not connected")
	ErrConnectionLost = errors.New("ws: connection lost")
)

// RemoteError is a result the server answered with ok=false.
type RemoteError struct {
	Code string
}

func (e *RemoteError) Error() string { return "ws: remote error: " + e.Code }

var _ gateway.Client = (*Client)(nil)

// Client speaks the store protocol over one websocket. Requests may be issued
// concurrently; results are matched back by request id.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan Result
	seq     uint64
	closed  bool

	writeMu sync.Mutex
}

func NewClient(url string) *Client {
	return &Client{
		url:     url,
		dialer:  websocket.DefaultDialer,
		pending: make(map[string]chan Result),
	}
}

// Dial connects a new client, bounded by timeout.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	c := NewClient(url)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect drops any current connection and dials a fresh one.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return store.ErrClosed
	}
	old := c.conn
	c.conn = nil
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return store.ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.drop(conn)
			return
		}
		var res Result
		if err := json.Unmarshal(msg, &res); err != nil || res.Type != TypeResult {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[res.RequestID]
		delete(c.pending, res.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- res
		}
	}
}

// drop forgets conn and fails every call still waiting on it.
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	waiting := c.pending
	c.pending = make(map[string]chan Result)
	c.mu.Unlock()

	_ = conn.Close()
	for _, ch := range waiting {
		close(ch)
	}
}

func (c *Client) call(ctx context.Context, req Request) (Result, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return Result{}, ErrNotConnected
	}
	c.seq++
	req.RequestID = "r" + strconv.FormatUint(c.seq, 10)
	ch := make(chan Result, 1)
	c.pending[req.RequestID] = ch
	c.mu.Unlock()

	frame, err := json.Marshal(req)
	if err != nil {
		c.forget(req.RequestID)
		return Result{}, err
	}

	c.writeMu.Lock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	_ = conn.SetWriteDeadline(deadline)
	err = conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.drop(conn)
		return Result{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return Result{}, ErrConnectionLost
		}
		return res, nil
	case <-ctx.Done():
		c.forget(req.RequestID)
		return Result{}, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, req Request) (json.RawMessage, error) {
	res, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		if res.Error == CodeNotFound {
			return nil, store.ErrNotFound
		}
		return nil, &RemoteError{Code: res.Error}
	}
	return res.Value, nil
}

func (c *Client) Read(ctx context.Context, scope, path string) (json.RawMessage, error) {
	return c.do(ctx, Request{Type: TypeRead, Scope: scope, Path: path})
}

func (c *Client) Write(ctx context.Context, scope, path string, value json.RawMessage) error {
	_, err := c.do(ctx, Request{Type: TypeWrite, Scope: scope, Path: path, Value: value})
	return err
}

func (c *Client) Remove(ctx context.Context, scope, path string) error {
	_, err := c.do(ctx, Request{Type: TypeRemove, Scope: scope, Path: path})
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, Request{Type: TypePing})
	return err
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.drop(conn)
	return nil
}
