// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courierchat/courier/internal/auth"
	"github.com/courierchat/courier/pkg/errutil"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a service error to an HTTP status and JSON body.
// Unauthenticated errors collapse to a single uniform response so the
// body never reveals whether a token was missing, malformed, or expired.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorBody{
			Code:    "INVALID_CREDENTIALS",
			Message: "invalid username or password",
		})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorBody{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		})
	case errors.Is(err, auth.ErrConflict):
		c.JSON(http.StatusConflict, errorBody{
			Code:    "USERNAME_TAKEN",
			Message: "username is already taken",
		})
	case errors.Is(err, auth.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{
			Code:    "NOT_FOUND",
			Message: "resource not found",
		})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, errorBody{
			Code:    errutil.Code(err),
			Message: errutil.TruncateDetail(publicMessage(err)),
		})
	default:
		errutil.LogError(logger, "request failed", err)
		c.JSON(http.StatusInternalServerError, errorBody{
			Code:    "INTERNAL",
			Message: "internal server error",
		})
	}
}

// validationCodes are the error codes safe to surface as 400 responses.
var validationCodes = map[string]bool{
	"AUTH_INVALID_USERNAME":     true,
	"AUTH_INVALID_DISPLAY_NAME": true,
	"AUTH_INVALID_PASSWORD":     true,
	"AUTH_INVALID_QUERY":        true,
	"MESSAGE_EMPTY":             true,
	"MESSAGE_TOO_LONG":          true,
	"MESSAGE_SELF_SEND":         true,
	"MESSAGE_INVALID_SENDER":    true,
	"MESSAGE_INVALID_RECIPIENT": true,
}

func isValidationError(err error) bool {
	return validationCodes[errutil.Code(err)]
}

// publicMessage extracts the human-readable message without any wrapped
// cause chain, keeping internals out of client responses.
func publicMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
