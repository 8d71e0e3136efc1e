package services

import (
	"context"
	"errors"
	"log/slog"

	"dentalbudget/internal/auth"
	"dentalbudget/internal/core"
	"dentalbudget/internal/storage"
)

// AuthService verifies credentials and issues access tokens.
type AuthService struct {
	store  storage.Store
	tokens *auth.TokenManager
}

func NewAuthService(store storage.Store, tokens *auth.TokenManager) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

// Login checks the password of the user addressed by email and returns
// a signed token. Unknown emails and bad passwords produce the same
// error so the endpoint does not leak which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, core.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return "", core.User{}, core.ErrInvalidCredentials
		}
		return "", core.User{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		slog.WarnContext(ctx, "Login failed", "user_email", email)
		return "", core.User{}, core.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", core.User{}, err
	}

	slog.InfoContext(ctx, "Login succeeded", "user_email", email, "role", user.Role)
	return token, user, nil
}

// Register creates a user with a bcrypt password hash. Admin only.
func (s *AuthService) Register(ctx context.Context, actor core.User, u core.User, password string) (core.User, error) {
	if actor.Role != core.RoleAdmin {
		return core.User{}, core.ErrForbidden
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	return s.store.CreateUser(ctx, u)
}
