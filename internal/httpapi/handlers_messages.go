// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// handleSendMessage delivers a message from the authenticated user.
func (s *Server) handleSendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Code:    "INVALID_REQUEST",
			Message: "recipient_id and content are required",
		})
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Code:    "INVALID_REQUEST",
			Message: "recipient_id must be a UUID",
		})
		return
	}

	msg, err := s.messageSvc.Send(c.Request.Context(), user.ID, recipientID, req.Content)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	if s.metrics != nil {
		s.metrics.MessagesSentTotal.Inc()
	}
	c.JSON(http.StatusCreated, newMessageResponse(msg))
}

// handleConversation lists messages between the authenticated user and
// the user in the path, newest first.
// GET /api/messages/:user_id?limit=<n>
func (s *Server) handleConversation(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		})
		return
	}

	otherID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Code:    "INVALID_REQUEST",
			Message: "user_id must be a UUID",
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, parseErr := strconv.Atoi(raw)
		if parseErr != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorBody{
				Code:    "INVALID_REQUEST",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	messages, err := s.messageSvc.Conversation(c.Request.Context(), user.ID, otherID, limit)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": newMessageListResponse(messages)})
}

// handleConversations lists the authenticated user's conversation
// partners, most recent first.
func (s *Server) handleConversations(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		})
		return
	}

	summaries, err := s.messageSvc.Conversations(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": newConversationListResponse(summaries)})
}
