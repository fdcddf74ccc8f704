package worker

import (
	"time"

	"jobtrail/features/application"
)

// NSQ topics. Extraction and application of mail changes are separate hops so
// a slow LLM call never blocks the status resolution queue, mirroring the
// two-stage layout of the mail pipeline.
const (
	TopicExtract = "mail.extract"
	TopicApply   = "mail.apply"
	TopicEmbed   = "notes.embed"
	TopicAlert   = "alerts.email"
)

// ExtractEvent carries one new email to the extraction consumer.
type ExtractEvent struct {
	Email         string `json:"email"`
	MessageID     string `json:"message_id"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	CorrelationID string `json:"correlation_id"`
}

// ApplyEvent carries a validated extraction to the status resolver.
type ApplyEvent struct {
	Email         string                 `json:"email"`
	MessageID     string                 `json:"message_id"`
	Extraction    application.Extraction `json:"extraction"`
	CorrelationID string                 `json:"correlation_id"`
}

// EmbedEvent asks the embed consumer to re-read and re-index one note page.
type EmbedEvent struct {
	Email         string    `json:"email"`
	PageID        string    `json:"page_id"`
	Title         string    `json:"title"`
	LastEdited    time.Time `json:"last_edited"`
	CorrelationID string    `json:"correlation_id"`
}
