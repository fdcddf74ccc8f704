package logger

import (
	"context"
	"log/slog"

	"jobtrail/internal/middleware"
)

// ContextHandler decorates a slog.Handler so that every record carries the
// correlation id of the request or worker cycle that produced it.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
