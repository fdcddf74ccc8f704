package notes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"jobtrail/internal/middleware"
)

type Handler struct {
	service *Service
	owners  OwnerLister
}

func NewHandler(s *Service, owners OwnerLister) *Handler {
	return &Handler{service: s, owners: owners}
}

// Sync runs a sync pass for one owner (?email=) or, with no email, a full
// sweep over every registered owner.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	owner := r.URL.Query().Get("email")
	slog.InfoContext(ctx, "starting notes sync", "owner", owner, "correlationId", correlationID)

	var (
		report *SyncReport
		err    error
	)
	if owner == "" {
		report, err = h.service.SyncAll(ctx, h.owners)
	} else {
		report, err = h.service.Sync(ctx, owner)
	}
	if err != nil {
		slog.ErrorContext(ctx, "notes sync failed", "owner", owner, "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": report}); err != nil {
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
