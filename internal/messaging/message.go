// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

// Package messaging provides direct messaging between users.
//
// Messages are immutable once created: there is no edit or delete
// operation. They share the user identity space with the auth package but
// carry no behavior beyond validation.
package messaging

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Content constraints. Content is trimmed before the bounds are applied.
const (
	MinContentLength = 1
	MaxContentLength = 5000
)

// Message represents a direct message from one user to another.
type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Content     string
	CreatedAt   time.Time
}

// NewMessage creates a validated Message instance with a fresh random ID.
// Content is trimmed; sender and recipient must differ.
func NewMessage(senderID, recipientID uuid.UUID, content string) (*Message, error) {
	if senderID == uuid.Nil {
		return nil, oops.Code("MESSAGE_INVALID_SENDER").Errorf("sender ID cannot be zero")
	}
	if recipientID == uuid.Nil {
		return nil, oops.Code("MESSAGE_INVALID_RECIPIENT").Errorf("recipient ID cannot be zero")
	}
	if senderID == recipientID {
		return nil, oops.Code("MESSAGE_SELF_SEND").Errorf("cannot send a message to yourself")
	}

	trimmed := strings.TrimSpace(content)
	if err := ValidateContent(trimmed); err != nil {
		return nil, err
	}

	return &Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     trimmed,
		CreatedAt:   time.Now(),
	}, nil
}

// ValidateContent validates already-trimmed message content.
func ValidateContent(content string) error {
	if content == "" {
		return oops.Code("MESSAGE_EMPTY").Errorf("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return oops.Code("MESSAGE_TOO_LONG").
			With("max", MaxContentLength).
			Errorf("message content must be at most %d characters", MaxContentLength)
	}
	return nil
}

// ConversationSummary describes one messaging partner of a user.
type ConversationSummary struct {
	PartnerID     uuid.UUID
	LastMessageAt time.Time
}

// MessageRepository manages message persistence.
type MessageRepository interface {
	// Create stores a new message.
	Create(ctx context.Context, msg *Message) error

	// ListBetween returns messages exchanged between two users,
	// newest first, up to limit.
	ListBetween(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*Message, error)

	// ListPartners returns the distinct messaging partners of a user with
	// the timestamp of the last exchanged message, most recent first.
	ListPartners(ctx context.Context, userID uuid.UUID) ([]*ConversationSummary, error)
}
