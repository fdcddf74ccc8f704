package application

import "time"

// Record is one tracked job application. Identity for dedup purposes is the
// (Owner, Company, Position) triple; Status moves only forward along the
// lattice.
type Record struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Company     string     `json:"company"`
	Position    string     `json:"position"`
	Status      Status     `json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	AppliedDate time.Time  `json:"applied_date"`
	Notes       string     `json:"notes"`
	AlertedAt   *time.Time `json:"alerted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
