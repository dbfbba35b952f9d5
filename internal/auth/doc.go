// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

// Package auth provides authentication primitives for Courier.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their respective
// constructors:
//   - NewUser - creates a User with validated username, display name, and password hash
//   - NewSession - creates a Session with validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Service
//
// Service coordinates registration, login, session resolution, and logout over
// the UserRepository, SessionRepository, and PasswordHasher interfaces. Session
// expiry is lazy: an expired session is purged on the first access that observes
// it. PruneExpired additionally lets operators sweep expired rows in bulk.
package auth
