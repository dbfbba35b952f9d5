// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"time"

	"github.com/courierchat/courier/internal/auth"
	"github.com/courierchat/courier/internal/messaging"
)

// userResponse is the public view of a user. Password hashes never leave
// the service layer.
type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:          u.ID.String(),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func newUserListResponse(users []*auth.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return out
}

type messageResponse struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func newMessageResponse(m *messaging.Message) messageResponse {
	return messageResponse{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func newMessageListResponse(messages []*messaging.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, newMessageResponse(m))
	}
	return out
}

type conversationResponse struct {
	PartnerID     string    `json:"partner_id"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func newConversationListResponse(summaries []*messaging.ConversationSummary) []conversationResponse {
	out := make([]conversationResponse, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, conversationResponse{
			PartnerID:     summary.PartnerID.String(),
			LastMessageAt: summary.LastMessageAt,
		})
	}
	return out
}
