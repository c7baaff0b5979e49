package users

import "context"

// Lookup abstracts user persistence for the service.
type Lookup interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// Service exposes thin user lookups for operator attribution.
type Service struct {
	repo Lookup
}

// NewService constructs a Service instance.
func NewService(repo Lookup) *Service {
	return &Service{repo: repo}
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUsername returns the user with the given username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}
