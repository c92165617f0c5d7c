package service

import (
	"context"
	"errors"

	"github.com/okhomin/contacts-service/internal/hash"
	"github.com/okhomin/contacts-service/internal/logging"
	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/repository"
	"github.com/okhomin/contacts-service/internal/token"
)

var (
	ErrEmailTaken         = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionInvalidated means a presented refresh token did not match the
	// stored one. The stored session is cleared as a side effect, so every
	// outstanding refresh token for that user is dead.
	ErrSessionInvalidated = errors.New("refresh session invalidated")
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService orchestrates signup, login and refresh rotation on top of the
// user repository, the password hasher and the token codec.
type AuthService struct {
	Users  *repository.UserRepo
	Hasher *hash.Hasher
	Codec  *token.Codec
}

func (s *AuthService) Signup(ctx context.Context, email, password string, username *string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	pwHash, err := s.Hasher.HashPassword(password)
	if err != nil {
		l.Error("hash_failed", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			l.Warn("signup_conflict", "email", email)
			return nil, ErrEmailTaken
		}
		l.Error("signup_failed", "error", err)
		return nil, err
	}

	l.Info("user_created", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. The stored
// refresh token is overwritten, so any previous session stops refreshing.
// Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			l.Warn("login_failed", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.Hasher.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.mintPair(user.Email)
	if err != nil {
		l.Error("token_mint_failed", "error", err)
		return nil, err
	}

	if err := s.Users.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		l.Error("refresh_store_failed", "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

// Refresh validates the presented refresh token against the stored slot and
// rotates both tokens. A structurally valid token that does not match the
// slot is treated as replay: the slot is cleared and the session ends.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.Decode(presented)
	if err != nil {
		return nil, token.ErrInvalidToken
	}
	if claims.Scope != token.ScopeRefresh {
		l.Warn("refresh_failed", "reason", "wrong scope", "scope", claims.Scope)
		return nil, token.ErrInvalidToken
	}

	user, err := s.Users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, err
	}

	pair, err := s.mintPair(user.Email)
	if err != nil {
		l.Error("token_mint_failed", "error", err)
		return nil, err
	}

	if err := s.Users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			l.Warn("refresh_replay_detected", "user_id", user.ID)
			if clearErr := s.Users.UpdateRefreshToken(ctx, user.ID, nil); clearErr != nil {
				l.Error("session_clear_failed", "error", clearErr)
			}
			return nil, ErrSessionInvalidated
		}
		l.Error("refresh_rotate_failed", "error", err)
		return nil, err
	}

	l.Info("refresh_rotated", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) mintPair(subject string) (*TokenPair, error) {
	access, err := s.Codec.Encode(subject, token.ScopeAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.Encode(subject, token.ScopeRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
