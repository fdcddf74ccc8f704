package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrExtraction marks a per-item failure: the model returned something that
// does not parse into a usable record. The item is skipped and counted; the
// batch continues.
var ErrExtraction = errors.New("extraction error")

// Extraction is the validated result of running the LLM over one email.
type Extraction struct {
	Relevant    bool   `json:"relevant"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	Status      Status `json:"status"`
	Deadline    string `json:"deadline,omitempty"`     // YYYY-MM-DD, may be empty
	AppliedDate string `json:"applied_date,omitempty"` // YYYY-MM-DD, may be empty
	Notes       string `json:"notes"`
}

// rawExtraction mirrors the JSON contract of the extraction prompt. The model
// is asked for exactly these keys but is not trusted to honor them.
type rawExtraction struct {
	Relevant          *bool  `json:"relevant"`
	Title             string `json:"title"`
	Position          string `json:"position"`
	Status            string `json:"status"`
	Deadline          string `json:"deadline"`
	DateOfApplication string `json:"date_of_application"`
	Notes             string `json:"notes"`
}

// ParseExtraction validates raw model output into an Extraction. Model output
// is not guaranteed to be well-formed JSON; any shortfall is ErrExtraction,
// never a partially-populated result.
func ParseExtraction(raw string) (*Extraction, error) {
	cleaned := stripCodeFence(raw)

	var r rawExtraction
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	// An explicitly irrelevant email is a valid outcome, not an error.
	if r.Relevant != nil && !*r.Relevant {
		return &Extraction{Relevant: false}, nil
	}

	if strings.TrimSpace(r.Title) == "" {
		return nil, fmt.Errorf("%w: missing company", ErrExtraction)
	}
	if strings.TrimSpace(r.Position) == "" {
		return nil, fmt.Errorf("%w: missing position", ErrExtraction)
	}

	status, err := ParseStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return nil, err
	}

	return &Extraction{
		Relevant:    true,
		Company:     strings.TrimSpace(r.Title),
		Position:    strings.TrimSpace(r.Position),
		Status:      status,
		Deadline:    strings.TrimSpace(r.Deadline),
		AppliedDate: strings.TrimSpace(r.DateOfApplication),
		Notes:       strings.TrimSpace(r.Notes),
	}, nil
}

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
