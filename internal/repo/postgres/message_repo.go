package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

// MessageKey is the (sent_at, id) position of a message in its room.
type MessageKey struct {
	SentAt time.Time
	ID     int64
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append must run in the transaction that holds the room lock from RoomRepo.LockForAppend.
func (r *MessageRepo) Append(ctx context.Context, tx pgx.Tx, roomID, senderID int64, body string) (model.Message, error) {
	if tx == nil {
		return model.Message{}, fmt.Errorf("transaction is required")
	}

	msg := model.Message{RoomID: roomID, SenderID: senderID, Body: body}
	err := tx.QueryRow(ctx, `
INSERT INTO messages (room_id, sender_id, body, sent_at)
SELECT r.id, $2, $3, GREATEST(clock_timestamp(), COALESCE(r.last_message_at, '-infinity'::timestamptz))
FROM rooms r
WHERE r.id = $1
RETURNING id, sent_at
`, roomID, senderID, body).Scan(&msg.ID, &msg.SentAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", classify(err))
	}

	if _, err := tx.Exec(ctx, `
UPDATE rooms SET last_message_at = $2 WHERE id = $1
`, roomID, msg.SentAt); err != nil {
		return model.Message{}, fmt.Errorf("touch room: %w", classify(err))
	}

	return msg, nil
}

// ListAfter returns messages strictly after the key in ascending (sent_at, id) order.
func (r *MessageRepo) ListAfter(ctx context.Context, roomID int64, after *MessageKey, limit int) ([]model.Message, error) {
	if r.pool == nil {
		return nil, ErrStorageUnavailable
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		afterAt *time.Time
		afterID int64
	)
	if after != nil {
		at := after.SentAt
		afterAt = &at
		afterID = after.ID
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, room_id, sender_id, body, sent_at
FROM messages
WHERE room_id = $1
	AND ($2::timestamptz IS NULL OR (sent_at, id) > ($2::timestamptz, $3::bigint))
ORDER BY sent_at ASC, id ASC
LIMIT $4
`, roomID, afterAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", classify(err))
	}
	defer rows.Close()

	items := make([]model.Message, 0, limit)
	for rows.Next() {
		var item model.Message
		if err := rows.Scan(&item.ID, &item.RoomID, &item.SenderID, &item.Body, &item.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", classify(err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", classify(err))
	}

	return items, nil
}
