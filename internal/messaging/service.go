// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/courierchat/courier/internal/auth"
)

// UserChecker verifies that a referenced user exists.
// Satisfied by auth.UserRepository.
type UserChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

// DefaultConversationLimit caps messages returned per conversation page.
const DefaultConversationLimit = 50

// Service provides messaging operations.
type Service struct {
	messages MessageRepository
	users    UserChecker
	logger   *slog.Logger
}

// NewService creates a new Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(messages MessageRepository, users UserChecker) (*Service, error) {
	if messages == nil {
		return nil, oops.Errorf("messages repository is required")
	}
	if users == nil {
		return nil, oops.Errorf("user checker is required")
	}
	return &Service{
		messages: messages,
		users:    users,
		logger:   slog.New(slog.DiscardHandler),
	}, nil
}

// NewServiceWithLogger creates a new Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewServiceWithLogger(messages MessageRepository, users UserChecker, logger *slog.Logger) (*Service, error) {
	svc, err := NewService(messages, users)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	svc.logger = logger
	return svc, nil
}

// Send validates and persists a message from sender to recipient.
// The recipient must exist; a missing recipient yields auth.ErrNotFound (wrapped).
func (s *Service) Send(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*Message, error) {
	msg, err := NewMessage(senderID, recipientID, content)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("MESSAGE_RECIPIENT_NOT_FOUND").
				With("recipient_id", recipientID.String()).
				Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("MESSAGE_SEND_FAILED").
			With("operation", "check recipient").
			Wrap(err)
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, oops.Code("MESSAGE_SEND_FAILED").
			With("operation", "insert message").
			Wrap(err)
	}

	s.logger.Debug("message sent",
		"message_id", msg.ID.String(),
		"sender_id", senderID.String(),
		"recipient_id", recipientID.String(),
	)
	return msg, nil
}

// Conversation returns messages between userID and otherID, newest first.
func (s *Service) Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]*Message, error) {
	if limit <= 0 || limit > DefaultConversationLimit {
		limit = DefaultConversationLimit
	}

	msgs, err := s.messages.ListBetween(ctx, userID, otherID, limit)
	if err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "list conversation").
			Wrap(err)
	}
	return msgs, nil
}

// Conversations returns the user's messaging partners, most recent first.
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]*ConversationSummary, error) {
	partners, err := s.messages.ListPartners(ctx, userID)
	if err != nil {
		return nil, oops.Code("MESSAGE_PARTNERS_FAILED").
			With("operation", "list conversation partners").
			Wrap(err)
	}
	return partners, nil
}
