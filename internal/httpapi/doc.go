// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

// Package httpapi exposes the courier services over HTTP.
//
// The API is JSON over REST, served by gin. Authentication uses an
// opaque session token carried in an HttpOnly cookie; the RequireSession
// middleware resolves the cookie to a user for protected routes.
//
// Error responses share a single shape:
//
//	{"code": "INVALID_CREDENTIALS", "message": "invalid username or password"}
//
// Codes are stable identifiers for clients; messages are for humans and
// never echo back credentials or message content.
package httpapi
