package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"matchmesh/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// APILogMiddleware writes one JSON line per request to the shared log sink.
// Store routes also carry the scope and key path they touched.
func APILogMiddleware() func(http.Handler) http.Handler {
	logger := slog.New(slog.NewJSONHandler(logging.Writer(), nil))
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:              slog.LevelInfo,
		Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
		LogRequestBody:     func(*http.Request) bool { return false },
		LogResponseBody:    func(*http.Request) bool { return false },
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		LogExtraAttrs:      requestAttrs,
	})
}

func requestAttrs(req *http.Request, _ string, _ int) []slog.Attr {
	route := req.URL.Path
	if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	attrs := []slog.Attr{
		slog.String("request_id", chimw.GetReqID(req.Context())),
		slog.String("method", req.Method),
		slog.String("route", route),
	}
	if scope := chi.URLParam(req, "scope"); scope != "" {
		attrs = append(attrs,
			slog.String("scope", scope),
			slog.String("key_path", req.URL.Query().Get("path")),
		)
	}
	return attrs
}

// BodyCaptureMiddleware attaches up to limit bytes of the request and response
// bodies to the request log line. Websocket upgrades pass straight through.
func BodyCaptureMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUpgradeRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			in, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(in))

			out := &captureWriter{ResponseWriter: w, limit: limit}
			next.ServeHTTP(out, r)

			reqBody, reqCut := clip(in, limit)
			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", reqBody),
				slog.Bool("request_body_truncated", reqCut),
				slog.Any("response_body", decodeLogged(out.buf.Bytes())),
				slog.Bool("response_body_truncated", out.cut),
			)
		})
	}
}

// captureWriter tees the first limit bytes of a response.
type captureWriter struct {
	http.ResponseWriter
	buf   bytes.Buffer
	limit int
	cut   bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room < len(p) {
		c.cut = true
		if room > 0 {
			c.buf.Write(p[:room])
		}
	} else {
		c.buf.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clip(b []byte, limit int) (any, bool) {
	if len(b) > limit {
		return decodeLogged(b[:limit]), true
	}
	return decodeLogged(b), false
}

// decodeLogged logs JSON bodies as structured values and anything else as
// text.
func decodeLogged(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var v any
	if json.Unmarshal(b, &v) != nil {
		return string(b)
	}
	return v
}

// WriteHTTPError writes {"error": code} with the given status.
func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{code})
}

func isUpgradeRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
