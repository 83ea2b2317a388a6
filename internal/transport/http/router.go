package httptransport

import (
	"expvar"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"matchmesh/internal/app/duel"
	"matchmesh/internal/config"
	"matchmesh/internal/store"
	"matchmesh/internal/ws"
)

// NewRouter serves the keyed store: the websocket protocol nodes use and a
// small REST surface for inspection.
func NewRouter(st store.Store, cfg config.ServerConfig) *chi.Mux {
	kv := NewKVHandlers(st, cfg.MaxFrameBytes)
	wsSrv := ws.NewServer(st, cfg.MaxFrameBytes)

	r := newBaseRouter()
	r.With(APILogMiddleware()).Get("/healthz", kv.Health())
	r.Get("/ws", wsSrv.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Group(func(r chi.Router) {
			r.Use(BodyCaptureMiddleware(4096))
			r.Get("/kv/{scope}", kv.Get())
			r.Put("/kv/{scope}", kv.Put())
			r.Delete("/kv/{scope}", kv.Delete())
		})
		r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	})
	return r
}

// NewNodeRouter serves a node host: the MCP tool surface and health.
func NewNodeRouter(reg *duel.Registry, mcpHandler http.Handler) *chi.Mux {
	node := NewNodeHandlers(reg)

	r := newBaseRouter()
	r.With(APILogMiddleware()).Get("/healthz", node.Health())
	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpHandler)
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpHandler)
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpHandler)
	r.With(APILogMiddleware()).Get("/api/debug/vars", expvar.Handler().ServeHTTP)
	return r
}

func newBaseRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	return r
}

// LogRoutes logs the method and pattern of every registered route, sorted by
// pattern, under the given service name.
func LogRoutes(service string, r chi.Routes) {
	var routes []string
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, route+" "+method)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("service", service).Msg("walk routes failed")
		return
	}
	sort.Strings(routes)
	for i, rt := range routes {
		pattern, method, _ := strings.Cut(rt, " ")
		routes[i] = method + " " + pattern
	}
	log.Info().Str("service", service).Int("count", len(routes)).Strs("routes", routes).Msg("routes registered")
}
