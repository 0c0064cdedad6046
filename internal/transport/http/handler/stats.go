package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fcl-miniapp/internal/application/stats"
)

// StatsHandler serves the operator stats rollup.
type StatsHandler struct {
	svc          stats.Service
	defaultLimit int
	logger       *slog.Logger
}

func NewStatsHandler(svc stats.Service, defaultLimit int, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, defaultLimit: defaultLimit, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	snap, err := h.svc.Snapshot(r.Context(), limit)
	if err != nil {
		httpError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
