package httptransport

import (
	"encoding/json"
	"net/http"

	"matchmesh/internal/app/duel"
)

type NodeHandlers struct {
	registry *duel.Registry
}

func NewNodeHandlers(reg *duel.Registry) *NodeHandlers {
	return &NodeHandlers{registry: reg}
}

// Health reports the node and each local session's gateway status. A node
// with degraded sessions is still healthy; the store is an external
// dependency.
func (h *NodeHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := h.registry.Sessions()
		infos := make([]duel.SessionInfo, 0, len(sessions))
		for _, s := range sessions {
			infos = append(infos, s.Info())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":       true,
			"node_id":  h.registry.NodeID(),
			"sessions": infos,
		})
	}
}
