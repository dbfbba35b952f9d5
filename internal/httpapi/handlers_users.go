// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleSearchUsers finds users by display name substring.
// GET /api/users/search?q=<query>&limit=<n>
func (s *Server) handleSearchUsers(c *gin.Context) {
	query := c.Query("q")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorBody{
				Code:    "INVALID_REQUEST",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	users, err := s.authSvc.SearchUsers(c.Request.Context(), query, limit)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": newUserListResponse(users)})
}
