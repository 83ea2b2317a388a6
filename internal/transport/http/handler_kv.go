package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"matchmesh/internal/store"
)

type KVHandlers struct {
	store    store.Store
	maxBytes int64
}

func NewKVHandlers(st store.Store, maxBytes int64) *KVHandlers {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &KVHandlers{store: st, maxBytes: maxBytes}
}

func (h *KVHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := h.store.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "store_unavailable")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func (h *KVHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricKVReadTotal.Add(1)
		raw, err := h.store.Read(r.Context(), chi.URLParam(r, "scope"), r.URL.Query().Get("path"))
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": raw})
	}
}

func (h *KVHandlers) Put() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricKVWriteTotal.Add(1)
		body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBytes+1))
		if err != nil || int64(len(body)) > h.maxBytes || !json.Valid(body) {
			metricKVErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if err := h.store.Write(r.Context(), chi.URLParam(r, "scope"), r.URL.Query().Get("path"), body); err != nil {
			h.writeStoreError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func (h *KVHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricKVRemoveTotal.Add(1)
		if err := h.store.Remove(r.Context(), chi.URLParam(r, "scope"), r.URL.Query().Get("path")); err != nil {
			h.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *KVHandlers) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, store.ErrInvalidPath):
		metricKVErrors.Add(1)
		WriteHTTPError(w, http.StatusBadRequest, "invalid_path")
	default:
		metricKVErrors.Add(1)
		log.Error().Err(err).Msg("kv request failed")
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
