package job

import (
	"encoding/json"
	"time"
)

// Job is a dead-lettered queue message. Topic records where the payload was
// consumed from so a retry can republish it verbatim.
type Job struct {
	ID        string          `json:"id"`
	RefID     string          `json:"ref_id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
