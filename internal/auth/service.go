// Package auth implements operator login against stored bcrypt credentials
// and session issuance. It is the identity collaborator for the ledger: every
// mutating operation receives its (user_id, username) attribution from here.
package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/pawnledger/pawnledger/internal/shared"
	"github.com/pawnledger/pawnledger/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	users    users.Lookup
	sessions *shared.SessionManager
}

// NewService constructs a new Service.
func NewService(userRepo users.Lookup, sessions *shared.SessionManager) *Service {
	return &Service{users: userRepo, sessions: sessions}
}

// Login validates username/password credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, shared.Operator, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", shared.Operator{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", shared.Operator{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", shared.Operator{}, shared.ErrInvalidCredentials
	}
	op := shared.Operator{UserID: user.ID, Username: user.Username}
	token, err := s.sessions.Issue(ctx, op)
	if err != nil {
		return "", shared.Operator{}, err
	}
	return token, op, nil
}

// Logout revokes the session for the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}
