// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a store uniqueness constraint is violated,
// e.g. registering a username that is already taken.
var ErrConflict = errors.New("conflict")

// ErrInvalidCredentials is returned for both an unknown username and a
// wrong password. Callers must not be able to tell the two apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUnauthenticated covers every way a request can fail authentication:
// missing token, unknown token, expired session, or deleted user.
var ErrUnauthenticated = errors.New("unauthenticated")
