// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Username and display name constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30

	MinDisplayNameLength = 3
	MaxDisplayNameLength = 30
)

// Password policy constraints. The upper bound matches the bcrypt input
// limit so that every accepted password can actually be hashed.
const (
	MinPasswordLength = 8
	MaxPasswordLength = MaxPasswordBytes
)

// usernameRegex matches usernames containing only letters, numbers, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Username     string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a validated User instance with a fresh random ID.
// The password hash must already be computed; plaintext never reaches this type.
func NewUser(username, displayName, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	return &User{
		ID:           uuid.New(),
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateDisplayName validates a display name. Display names allow a broader
// charset than usernames since they are only used for search and presentation.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return oops.Code("AUTH_INVALID_DISPLAY_NAME").Errorf("display name cannot be empty")
	}
	length := utf8.RuneCountInString(trimmed)
	if length < MinDisplayNameLength {
		return oops.Code("AUTH_INVALID_DISPLAY_NAME").
			With("min", MinDisplayNameLength).
			Errorf("display name must be at least %d characters", MinDisplayNameLength)
	}
	if length > MaxDisplayNameLength {
		return oops.Code("AUTH_INVALID_DISPLAY_NAME").
			With("max", MaxDisplayNameLength).
			Errorf("display name must be at most %d characters", MaxDisplayNameLength)
	}
	for _, r := range trimmed {
		if !unicode.IsPrint(r) {
			return oops.Code("AUTH_INVALID_DISPLAY_NAME").
				Errorf("display name must contain only printable characters")
		}
	}
	return nil
}

// passwordSpecials is the accepted set of special characters.
const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword validates password strength. Requires at least one
// uppercase letter, one lowercase letter, one digit, and one special
// character. The error detail never includes the submitted value.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	switch {
	case !upper:
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("password must contain at least one uppercase letter")
	case !lower:
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("password must contain at least one lowercase letter")
	case !digit:
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("password must contain at least one digit")
	case !special:
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("password must contain at least one special character")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrConflict (wrapped) if the
	// username is already taken; uniqueness is enforced by the store.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// SearchByDisplayName returns users whose display name contains the
	// query (case-insensitive), up to limit.
	SearchByDisplayName(ctx context.Context, query string, limit int) ([]*User, error)
}
