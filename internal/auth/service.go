// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Service provides registration, login, and session operations.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService creates a new Service with a no-op logger.
// ttl is the lifetime of sessions created by Login.
// Returns an error if any required dependency is nil.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, ttl time.Duration) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		ttl:      ttl,
		logger:   slog.New(slog.DiscardHandler),
	}, nil
}

// NewServiceWithLogger creates a new Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewServiceWithLogger(users UserRepository, sessions SessionRepository, hasher PasswordHasher, ttl time.Duration, logger *slog.Logger) (*Service, error) {
	svc, err := NewService(users, sessions, hasher, ttl)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	svc.logger = logger
	return svc, nil
}

// SessionTTL returns the lifetime of sessions created by Login.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// dummyPasswordHash is verified against when a user does not exist, so that
// login takes the same time whether the username is known or not. This is
// NOT a real credential; the input below never reaches Login because the
// user lookup already failed before verification.
var dummyPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("courier timing equalizer"), BcryptCost)
	if err != nil {
		// Only reachable if bcrypt itself is broken.
		panic("auth: cannot compute dummy hash: " + err.Error())
	}
	return string(h)
}()

// Register validates the input, hashes the password, and persists a new user.
// A username that is already taken yields ErrConflict (wrapped).
// The plaintext password is never stored or logged.
func (s *Service) Register(ctx context.Context, username, displayName, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, displayName, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "construct user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_USERNAME_TAKEN").
				With("username", username).
				Wrap(ErrConflict)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String(), "username", user.Username)
	return user, nil
}

// Login authenticates a user and creates a session.
// Returns the session and the plaintext token.
// An unknown username and a wrong password yield the identical error;
// verification always runs so response time does not reveal which it was.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, string, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	// Pick the hash to verify against: the real one, or a dummy that keeps
	// timing flat when the user does not exist.
	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", invalidCredentials()
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, "", invalidCredentials()
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, s.ttl)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "construct session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		// A token-hash collision is cryptographically negligible but the
		// store still enforces uniqueness; regenerate once rather than fail.
		if errors.Is(err, ErrConflict) {
			return s.retryCreateSession(ctx, user.ID)
		}
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("user logged in", "user_id", user.ID.String())
	return session, token, nil
}

// retryCreateSession regenerates a token after a store-level uniqueness
// collision and tries once more.
func (s *Service) retryCreateSession(ctx context.Context, userID uuid.UUID) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "regenerate session token").
			Wrap(err)
	}
	session, err := NewSession(userID, tokenHash, s.ttl)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "construct session").
			Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session after collision").
			Wrap(err)
	}
	return session, token, nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

// ResolveToken resolves a session token to its user.
// Every failure mode (empty token, unknown token, expired session, deleted
// user) yields ErrUnauthenticated so callers cannot distinguish them.
// An expired session observed here is purged; two requests racing on the
// same expired session both succeed in reporting it gone (the second delete
// is a no-op).
func (s *Service) ResolveToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrUnauthenticated)
	}

	tokenHash := HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		// Lazy purge. Best effort: losing the race to another request
		// deleting the same row is fine.
		if delErr := s.sessions.DeleteByID(ctx, session.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			s.logger.Warn("failed to purge expired session",
				"session_id", session.ID.String(),
				"error", delErr)
		}
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrUnauthenticated)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Owner is gone; the session is worthless. Purge it too.
			if delErr := s.sessions.DeleteByID(ctx, session.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
				s.logger.Warn("failed to purge orphaned session",
					"session_id", session.ID.String(),
					"error", delErr)
			}
			return nil, oops.Code("SESSION_USER_GONE").Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session user").
			Wrap(err)
	}

	return user, nil
}

// Logout revokes the session identified by the token.
// Idempotent: revoking an unknown or already-revoked token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	tokenHash := HashSessionToken(token)
	if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DefaultSearchLimit caps user search results.
const DefaultSearchLimit = 20

// SearchUsers finds users by display name substring (case-insensitive).
func (s *Service) SearchUsers(ctx context.Context, query string, limit int) ([]*User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, oops.Code("AUTH_INVALID_QUERY").Errorf("search query cannot be empty")
	}
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	users, err := s.users.SearchByDisplayName(ctx, query, limit)
	if err != nil {
		return nil, oops.Code("USER_SEARCH_FAILED").
			With("operation", "search users by display name").
			Wrap(err)
	}
	return users, nil
}

// PruneExpired deletes all expired sessions and returns the count.
// Correctness never depends on this; expiry is enforced lazily on access.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	count, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	if count > 0 {
		s.logger.Info("pruned expired sessions", "count", count)
	}
	return count, nil
}
