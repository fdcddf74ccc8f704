package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"jobtrail/internal/middleware"
)

type UserRepo interface {
	Count(ctx context.Context) (int, error)
}

type ApplicationRepo interface {
	Count(ctx context.Context) (int, error)
}

type PageRepo interface {
	Count(ctx context.Context) (int, error)
}

type JobRepo interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	userRepo    UserRepo
	appRepo     ApplicationRepo
	pageRepo    PageRepo
	jobRepo     JobRepo
	vectorStore VectorStore
}

func NewHandler(u UserRepo, a ApplicationRepo, p PageRepo, j JobRepo, v VectorStore) *Handler {
	return &Handler{userRepo: u, appRepo: a, pageRepo: p, jobRepo: j, vectorStore: v}
}

type StatsResponse struct {
	Users        int `json:"users"`
	Applications int `json:"applications"`
	NotePages    int `json:"note_pages"`
	NoteChunks   int `json:"note_chunks"`
	FailedJobs   int `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	uCount, err := h.userRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count users", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count users", http.StatusInternalServerError)
		return
	}

	aCount, err := h.appRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count applications", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count applications", http.StatusInternalServerError)
		return
	}

	pCount, err := h.pageRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count note pages", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count note pages", http.StatusInternalServerError)
		return
	}

	jCount, err := h.jobRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	// The chunk count lives in the vector store, not Postgres. A cold or
	// unreachable index should not take the whole stats page down.
	cCount, err := h.vectorStore.CountChunks(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to count chunks", "error", err, "correlationId", correlationID)
		cCount = 0
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": StatsResponse{
			Users:        uCount,
			Applications: aCount,
			NotePages:    pCount,
			NoteChunks:   cCount,
			FailedJobs:   jCount,
		},
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
