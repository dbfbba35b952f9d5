// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courierchat/courier/internal/auth"
)

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleRegister creates a new account.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Code:    "INVALID_REQUEST",
			Message: "username, display_name and password are required",
		})
		return
	}

	user, err := s.authSvc.Register(c.Request.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		s.countRegistration("error")
		writeError(c, s.logger, err)
		return
	}

	s.countRegistration("ok")
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// handleLogin verifies credentials and issues a session cookie.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Code:    "INVALID_REQUEST",
			Message: "username and password are required",
		})
		return
	}

	_, token, err := s.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.countLogin("invalid")
		} else {
			s.countLogin("error")
		}
		writeError(c, s.logger, err)
		return
	}

	s.setSessionCookie(c, token, int(s.authSvc.SessionTTL().Seconds()))
	s.countLogin("ok")
	c.Status(http.StatusNoContent)
}

// handleLogout revokes the current session. Always clears the cookie and
// returns 204, even when no session existed.
func (s *Server) handleLogout(c *gin.Context) {
	token, err := c.Cookie(s.cookieName)
	if err != nil {
		token = ""
	}

	if err := s.authSvc.Logout(c.Request.Context(), token); err != nil {
		writeError(c, s.logger, err)
		return
	}

	s.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// handleMe returns the authenticated user.
func (s *Server) handleMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

// setSessionCookie writes the session cookie. maxAge -1 deletes it.
func (s *Server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, token, maxAge, "/", "", s.cookieSecure, true)
}

func (s *Server) countRegistration(status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) countLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}
