// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

// Package postgres provides the PostgreSQL implementation of the messaging repository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/courierchat/courier/internal/messaging"
)

// poolIface abstracts the pgx pool operations used by the repository.
// Satisfied by *pgxpool.Pool and by pgxmock.PgxPoolIface in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MessageRepository implements messaging.MessageRepository using PostgreSQL.
type MessageRepository struct {
	pool poolIface
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool poolIface) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create stores a new message.
func (r *MessageRepository) Create(ctx context.Context, msg *messaging.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		msg.ID.String(),
		msg.SenderID.String(),
		msg.RecipientID.String(),
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		return oops.Code("MESSAGE_CREATE_FAILED").
			With("operation", "insert message").
			With("sender_id", msg.SenderID.String()).
			Wrap(err)
	}
	return nil
}

// ListBetween returns messages exchanged between two users, newest first.
func (r *MessageRepository) ListBetween(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*messaging.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, userA.String(), userB.String(), limit)
	if err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "list messages between users").
			Wrap(err)
	}
	defer rows.Close()

	var msgs []*messaging.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").
				With("operation", "scan message row").
				Wrap(err)
		}
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("MESSAGE_ROWS_ERROR").
			With("operation", "iterate message rows").
			Wrap(err)
	}

	return msgs, nil
}

// ListPartners returns the distinct messaging partners of a user with the
// timestamp of the last exchanged message, most recent first.
func (r *MessageRepository) ListPartners(ctx context.Context, userID uuid.UUID) ([]*messaging.ConversationSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT partner_id, MAX(created_at) AS last_message_at
		FROM (
			SELECT recipient_id AS partner_id, created_at FROM messages WHERE sender_id = $1
			UNION ALL
			SELECT sender_id AS partner_id, created_at FROM messages WHERE recipient_id = $1
		) exchanged
		GROUP BY partner_id
		ORDER BY last_message_at DESC
	`, userID.String())
	if err != nil {
		return nil, oops.Code("MESSAGE_PARTNERS_FAILED").
			With("operation", "list conversation partners").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var partners []*messaging.ConversationSummary
	for rows.Next() {
		var (
			partnerIDStr  string
			lastMessageAt time.Time
		)
		if err := rows.Scan(&partnerIDStr, &lastMessageAt); err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").
				With("operation", "scan partner row").
				Wrap(err)
		}
		partnerID, err := uuid.Parse(partnerIDStr)
		if err != nil {
			return nil, oops.Code("MESSAGE_INVALID_PARTNER_ID").
				With("operation", "parse partner id").
				With("partner_id", partnerIDStr).
				Wrap(err)
		}
		partners = append(partners, &messaging.ConversationSummary{
			PartnerID:     partnerID,
			LastMessageAt: lastMessageAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("MESSAGE_ROWS_ERROR").
			With("operation", "iterate partner rows").
			Wrap(err)
	}

	return partners, nil
}

// scanMessage scans a single row into a Message.
func scanMessage(row pgx.Row) (*messaging.Message, error) {
	var (
		idStr     string
		senderStr string
		recipStr  string
		content   string
		createdAt time.Time
	)

	err := row.Scan(&idStr, &senderStr, &recipStr, &content, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("MESSAGE_SCAN_FAILED").
			With("operation", "scan message").
			Wrap(err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("MESSAGE_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	senderID, err := uuid.Parse(senderStr)
	if err != nil {
		return nil, oops.Code("MESSAGE_INVALID_SENDER_ID").
			With("sender_id", senderStr).
			Wrap(err)
	}
	recipientID, err := uuid.Parse(recipStr)
	if err != nil {
		return nil, oops.Code("MESSAGE_INVALID_RECIPIENT_ID").
			With("recipient_id", recipStr).
			Wrap(err)
	}

	return &messaging.Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   createdAt,
	}, nil
}

// Compile-time interface check.
var _ messaging.MessageRepository = (*MessageRepository)(nil)
