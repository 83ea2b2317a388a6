// Package ws carries the keyed-store protocol over websockets: a server that
// dispatches frames to a store.Store and a client that nodes use to reach it.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"matchmesh/internal/schema"
	"matchmesh/internal/store"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

type peer struct {
	conn *websocket.Conn
	send chan []byte
	// done is closed when writeLoop stops; nothing drains send after that.
	done chan struct{}
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// enqueue hands msg to the writer. It reports false once the writer is gone.
func (p *peer) enqueue(msg []byte) bool {
	select {
	case p.send <- msg:
		return true
	case <-p.done:
		return false
	}
}

type Server struct {
	store    store.Store
	upgrader websocket.Upgrader
	maxFrame int64
}

func NewServer(st store.Store, maxFrameBytes int64) *Server {
	if maxFrameBytes <= 0 {
		maxFrameBytes = 1 << 20
	}
	return &Server{
		store:    st,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		maxFrame: maxFrameBytes,
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := newPeer(conn)
	metricConnections.Add(1)

	go s.writeLoop(p)
	s.readLoop(r.Context(), p)
}

func (s *Server) readLoop(ctx context.Context, p *peer) {
	defer func() {
		close(p.send)
		metricConnections.Add(-1)
	}()
	p.conn.SetReadLimit(s.maxFrame)

	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("store ws read failed")
			}
			return
		}
		metricFramesIn.Add(1)
		out, err := json.Marshal(s.handle(ctx, msg))
		if err != nil {
			continue
		}
		if !p.enqueue(out) {
			return
		}
	}
}

func (s *Server) writeLoop(p *peer) {
	defer func() {
		close(p.done)
		_ = p.conn.Close()
	}()
	for msg := range p.send {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		metricFramesOut.Add(1)
	}
	_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) handle(ctx context.Context, msg []byte) Result {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		metricRequestErrors.Add(1)
		return errResult("", CodeInvalidRequest)
	}
	if req.RequestID == "" || len(req.RequestID) > maxRequestIDLen {
		metricRequestErrors.Add(1)
		return errResult("", CodeInvalidRequestID)
	}
	if err := schema.Validate(schema.StoreWS, msg); err != nil {
		metricRequestErrors.Add(1)
		return errResult(req.RequestID, CodeInvalidRequest)
	}

	var (
		value json.RawMessage
		err   error
	)
	switch req.Type {
	case TypePing:
		err = s.store.Ping(ctx)
	case TypeRead:
		value, err = s.store.Read(ctx, req.Scope, req.Path)
	case TypeWrite:
		if len(req.Value) == 0 {
			metricRequestErrors.Add(1)
			return errResult(req.RequestID, CodeInvalidRequest)
		}
		err = s.store.Write(ctx, req.Scope, req.Path, req.Value)
	case TypeRemove:
		err = s.store.Remove(ctx, req.Scope, req.Path)
	default:
		metricRequestErrors.Add(1)
		return errResult(req.RequestID, CodeUnknownType)
	}

	switch {
	case err == nil:
		return okResult(req.RequestID, value)
	case errors.Is(err, store.ErrNotFound):
		return errResult(req.RequestID, CodeNotFound)
	case errors.Is(err, store.ErrInvalidPath):
		metricRequestErrors.Add(1)
		return errResult(req.RequestID, CodeInvalidPath)
	default:
		metricRequestErrors.Add(1)
		log.Error().Err(err).Str("type", req.Type).Str("scope", req.Scope).Str("path", req.Path).Msg("store request failed")
		return errResult(req.RequestID, CodeInternal)
	}
}
