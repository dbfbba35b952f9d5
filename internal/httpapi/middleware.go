// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courierchat/courier/internal/auth"
)

// contextUserKey is the gin context key holding the authenticated user.
const contextUserKey = "courier.user"

// RequireSession returns middleware that resolves the session cookie to a
// user and aborts with 401 when it cannot. The response is identical for
// missing, unknown, and expired tokens.
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.cookieName)
		if err != nil {
			token = ""
		}

		user, err := s.authSvc.ResolveToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Code:    "UNAUTHENTICATED",
				Message: "authentication required",
			})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// currentUser returns the user set by RequireSession. The second return
// is false when the middleware did not run on this route.
func currentUser(c *gin.Context) (*auth.User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*auth.User)
	return user, ok
}
