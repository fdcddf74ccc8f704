package mail

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"jobtrail/internal/middleware"
)

type Handler struct {
	service *Service
	owners  UserLister
}

func NewHandler(s *Service, owners UserLister) *Handler {
	return &Handler{service: s, owners: owners}
}

// notification is the decoded Gmail push payload. The push arrives wrapped in
// a Pub/Sub envelope whose data field is base64 of this JSON; a bare payload
// is also accepted for manual triggers.
type notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

type pubsubEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

func decodeNotification(body []byte) (*notification, error) {
	var env pubsubEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Message.Data) > 0 {
		// encoding/json already base64-decoded the []byte field.
		var n notification
		if err := json.Unmarshal(env.Message.Data, &n); err != nil {
			return nil, err
		}
		return &n, nil
	}

	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Notify handles POST /gmail/notifications: one push means "this mailbox
// changed", the history window fetch does the rest.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	n, err := decodeNotification(raw)
	if err != nil || n.EmailAddress == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "notification payload missing emailAddress", http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "gmail notification received",
		"owner", n.EmailAddress, "historyId", n.HistoryID, "correlationId", correlationID)

	queued, err := h.service.SyncOwner(ctx, n.EmailAddress)
	if err != nil {
		slog.ErrorContext(ctx, "mailbox sync failed", "owner", n.EmailAddress, "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]int{"queued": queued},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Sweep handles POST /mail/sync: a full pass over every registered mailbox,
// the fallback for missed push notifications.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "starting mailbox sweep", "correlationId", correlationID)

	queued, err := h.service.SyncAll(ctx, h.owners)
	if err != nil {
		slog.ErrorContext(ctx, "mailbox sweep failed", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]int{"queued": queued},
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
