package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepo struct {
	pool *pgxpool.Pool
}

// RoomKey is the (activity, id) position of a room in a participant's list, where
// activity is the last message time or, before any message, the creation time.
type RoomKey struct {
	ActivityAt time.Time
	ID         int64
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

// CreateOrGet returns the room of the pair, creating it when missing. created reports
// whether this call inserted the row.
func (r *RoomRepo) CreateOrGet(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Room, bool, error) {
	if tx == nil {
		return model.Room{}, false, fmt.Errorf("transaction is required")
	}
	lo, hi := model.CanonicalPair(userA, userB)
	if lo <= 0 || lo == hi {
		return model.Room{}, false, fmt.Errorf("invalid room pair %d/%d", userA, userB)
	}

	room := model.Room{UserAID: lo, UserBID: hi}
	err := tx.QueryRow(ctx, `
INSERT INTO rooms (user_a_id, user_b_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING id, created_at
`, lo, hi).Scan(&room.ID, &room.CreatedAt)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Room{}, false, fmt.Errorf("insert room: %w", classify(err))
	}

	existing, err := scanRoom(tx.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, created_at, last_message_at
FROM rooms
WHERE user_a_id = $1 AND user_b_id = $2
`, lo, hi))
	if err != nil {
		return model.Room{}, false, err
	}
	return existing, false, nil
}

func (r *RoomRepo) GetByID(ctx context.Context, roomID int64) (model.Room, error) {
	if r.pool == nil {
		return model.Room{}, ErrStorageUnavailable
	}
	return scanRoom(r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, created_at, last_message_at
FROM rooms
WHERE id = $1
`, roomID))
}

// LockForAppend takes the row lock that serializes message appends in the room.
func (r *RoomRepo) LockForAppend(ctx context.Context, tx pgx.Tx, roomID int64) (model.Room, error) {
	if tx == nil {
		return model.Room{}, fmt.Errorf("transaction is required")
	}
	return scanRoom(tx.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, created_at, last_message_at
FROM rooms
WHERE id = $1
FOR UPDATE
`, roomID))
}

// ListForUser returns the user's rooms by latest activity, strictly after the key when
// one is given.
func (r *RoomRepo) ListForUser(ctx context.Context, userID int64, after *RoomKey, limit int) ([]model.Room, error) {
	if r.pool == nil {
		return nil, ErrStorageUnavailable
	}
	if limit <= 0 {
		limit = 100
	}

	var (
		afterAt *time.Time
		afterID int64
	)
	if after != nil {
		at := after.ActivityAt
		afterAt = &at
		afterID = after.ID
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_a_id, user_b_id, created_at, last_message_at
FROM rooms
WHERE (user_a_id = $1 OR user_b_id = $1)
	AND ($2::timestamptz IS NULL OR (COALESCE(last_message_at, created_at), id) < ($2::timestamptz, $3::bigint))
ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC
LIMIT $4
`, userID, afterAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", classify(err))
	}
	defer rows.Close()

	items := make([]model.Room, 0, limit)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", classify(err))
	}

	return items, nil
}

func scanRoom(row pgx.Row) (model.Room, error) {
	var room model.Room
	if err := row.Scan(&room.ID, &room.UserAID, &room.UserBID, &room.CreatedAt, &room.LastMessageAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, fmt.Errorf("scan room: %w", classify(err))
	}
	return room, nil
}
