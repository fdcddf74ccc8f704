package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"jobtrail/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	owner := r.URL.Query().Get("email")
	if owner == "" {
		h.writeError(ctx, w, "INVALID_REQUEST", "email query parameter is required", http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "listing applications", "owner", owner, "correlationId", correlationID)

	recs, err := h.service.List(ctx, owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list applications", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if recs == nil {
		recs = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": recs,
		"meta": map[string]int{"count": len(recs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
