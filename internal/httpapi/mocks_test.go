// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package httpapi

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/courierchat/courier/internal/auth"
	"github.com/courierchat/courier/internal/messaging"
)

type mockAuthService struct {
	mock.Mock
}

var _ AuthService = (*mockAuthService)(nil)

func newMockAuthService(t interface {
	mock.TestingT
	Cleanup(func())
}) *mockAuthService {
	m := &mockAuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockAuthService) Register(ctx context.Context, username, displayName, password string) (*auth.User, error) {
	args := m.Called(ctx, username, displayName, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Session, string, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*auth.Session), args.String(1), args.Error(2)
}

func (m *mockAuthService) ResolveToken(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockAuthService) SearchUsers(ctx context.Context, query string, limit int) ([]*auth.User, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.User), args.Error(1)
}

func (m *mockAuthService) SessionTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

type mockMessageService struct {
	mock.Mock
}

var _ MessageService = (*mockMessageService)(nil)

func newMockMessageService(t interface {
	mock.TestingT
	Cleanup(func())
}) *mockMessageService {
	m := &mockMessageService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockMessageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*messaging.Message, error) {
	args := m.Called(ctx, senderID, recipientID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Message), args.Error(1)
}

func (m *mockMessageService) Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]*messaging.Message, error) {
	args := m.Called(ctx, userID, otherID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messaging.Message), args.Error(1)
}

func (m *mockMessageService) Conversations(ctx context.Context, userID uuid.UUID) ([]*messaging.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messaging.ConversationSummary), args.Error(1)
}
