// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

// Package errutil provides helpers for logging and asserting structured errors.
package errutil

import (
	"log/slog"
	"unicode/utf8"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
	} else {
		logger.Error(msg, "error", err)
	}
}

// Code extracts the oops error code from err, or "" if err is not an oops error.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		code, _ := oopsErr.Code().(string)
		return code
	}
	return ""
}

// MaxDetailLength bounds field values included in user-facing error detail.
const MaxDetailLength = 64

// TruncateDetail shortens a value for inclusion in error detail so that
// oversized input is never echoed back in full. The cut never splits a
// multi-byte rune.
func TruncateDetail(s string) string {
	if len(s) <= MaxDetailLength {
		return s
	}
	cut := MaxDetailLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
