// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

// Package mocks provides testify mocks for the messaging package interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/courierchat/courier/internal/messaging"
)

// MockMessageRepository is a testify mock for messaging.MessageRepository.
type MockMessageRepository struct {
	mock.Mock
}

// NewMockMessageRepository creates a MockMessageRepository with cleanup-time
// expectation assertion.
func NewMockMessageRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMessageRepository {
	m := &MockMessageRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *messaging.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListBetween(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*messaging.Message, error) {
	args := m.Called(ctx, userA, userB, limit)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]*messaging.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepository) ListPartners(ctx context.Context, userID uuid.UUID) ([]*messaging.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if partners := args.Get(0); partners != nil {
		return partners.([]*messaging.ConversationSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// Compile-time interface check.
var _ messaging.MessageRepository = (*MockMessageRepository)(nil)
