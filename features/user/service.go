package user

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, email string) (*User, error) {
	return s.repo.Get(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Save(ctx context.Context, u *User) error {
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("invalid email %q", u.Email)
	}
	return s.repo.Upsert(ctx, u)
}

// ListOwners returns every configured owner email, for sweep-style jobs.
func (s *Service) ListOwners(ctx context.Context) ([]string, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(users))
	for _, u := range users {
		owners = append(owners, u.Email)
	}
	return owners, nil
}

// NotionCredentials satisfies the Notion adapters' credential lookup.
func (s *Service) NotionCredentials(ctx context.Context, owner string) (string, string, error) {
	u, err := s.repo.Get(ctx, owner)
	if err != nil {
		return "", "", err
	}
	if u.NotionToken == "" || u.NotionPageID == "" {
		return "", "", fmt.Errorf("notion not configured for %s", owner)
	}
	return u.NotionToken, u.NotionPageID, nil
}

// GmailToken returns the owner's mailbox access token.
func (s *Service) GmailToken(ctx context.Context, owner string) (string, error) {
	u, err := s.repo.Get(ctx, owner)
	if err != nil {
		return "", err
	}
	if u.GmailToken == "" {
		return "", fmt.Errorf("gmail not configured for %s", owner)
	}
	return u.GmailToken, nil
}
