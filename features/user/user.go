package user

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// User holds one person's mailbox and workspace credentials. Email doubles as
// the owner key everywhere downstream.
type User struct {
	Email        string    `json:"email"`
	NotionToken  string    `json:"notion_token,omitempty"`
	NotionPageID string    `json:"notion_page_id,omitempty"`
	GmailToken   string    `json:"gmail_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Redacted returns a copy safe for API responses.
func (u User) Redacted() User {
	cp := u
	cp.NotionToken = ""
	cp.GmailToken = ""
	return cp
}

type Repository interface {
	Get(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, u *User) error
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
}
