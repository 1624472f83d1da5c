package postgres

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

type ReactionRepo struct {
	pool *pgxpool.Pool
}

// ReactionKey is the (created_at, from_user_id) position of an incoming reaction.
type ReactionKey struct {
	CreatedAt  time.Time
	FromUserID int64
}

func NewReactionRepo(pool *pgxpool.Pool) *ReactionRepo {
	return &ReactionRepo{pool: pool}
}

// PairLockKey maps an unordered user pair onto a single advisory lock key.
func PairLockKey(a, b int64) int64 {
	lo, hi := model.CanonicalPair(a, b)

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(lo))
	binary.BigEndian.PutUint64(buf[8:], uint64(hi))

	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

// LockPair holds a transaction-scoped lock on the unordered pair until commit or rollback.
func (r *ReactionRepo) LockPair(ctx context.Context, tx pgx.Tx, a, b int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, PairLockKey(a, b)); err != nil {
		return fmt.Errorf("lock reaction pair: %w", classify(err))
	}
	return nil
}

// Upsert stores the directed reaction, refreshing created_at when it already exists.
func (r *ReactionRepo) Upsert(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (model.Reaction, bool, error) {
	if tx == nil {
		return model.Reaction{}, false, fmt.Errorf("transaction is required")
	}

	item := model.Reaction{FromUserID: fromUserID, ToUserID: toUserID}
	var created bool
	err := tx.QueryRow(ctx, `
INSERT INTO reactions (from_user_id, to_user_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (from_user_id, to_user_id) DO UPDATE SET created_at = EXCLUDED.created_at
RETURNING created_at, (xmax = 0) AS inserted
`, fromUserID, toUserID).Scan(&item.CreatedAt, &created)
	if err != nil {
		return model.Reaction{}, false, fmt.Errorf("upsert reaction: %w", classify(err))
	}

	return item, created, nil
}

func (r *ReactionRepo) ExistsTx(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	return reactionExists(ctx, tx, fromUserID, toUserID)
}

func (r *ReactionRepo) Exists(ctx context.Context, fromUserID, toUserID int64) (bool, error) {
	if r.pool == nil {
		return false, ErrStorageUnavailable
	}
	return reactionExists(ctx, r.pool, fromUserID, toUserID)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func reactionExists(ctx context.Context, q rowQuerier, fromUserID, toUserID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM reactions WHERE from_user_id = $1 AND to_user_id = $2
)
`, fromUserID, toUserID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup reaction: %w", classify(err))
	}
	return exists, nil
}

// ListIncoming returns reactions to userID newest first, strictly after the key when one
// is given.
func (r *ReactionRepo) ListIncoming(ctx context.Context, userID int64, after *ReactionKey, limit int) ([]model.Reaction, error) {
	if r.pool == nil {
		return nil, ErrStorageUnavailable
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		afterAt   *time.Time
		afterFrom int64
	)
	if after != nil {
		at := after.CreatedAt
		afterAt = &at
		afterFrom = after.FromUserID
	}

	rows, err := r.pool.Query(ctx, `
SELECT from_user_id, to_user_id, created_at
FROM reactions
WHERE to_user_id = $1
	AND (
		$2::timestamptz IS NULL
		OR created_at < $2::timestamptz
		OR (created_at = $2::timestamptz AND from_user_id > $3::bigint)
	)
ORDER BY created_at DESC, from_user_id ASC
LIMIT $4
`, userID, afterAt, afterFrom, limit)
	if err != nil {
		return nil, fmt.Errorf("list incoming reactions: %w", classify(err))
	}
	defer rows.Close()

	items := make([]model.Reaction, 0, limit)
	for rows.Next() {
		var item model.Reaction
		if err := rows.Scan(&item.FromUserID, &item.ToUserID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", classify(err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", classify(err))
	}

	return items, nil
}

// ListMutualWithoutRoom finds mutual pairs that never got a room, in canonical order.
func (r *ReactionRepo) ListMutualWithoutRoom(ctx context.Context, limit int) ([]model.MutualPair, error) {
	if r.pool == nil {
		return nil, ErrStorageUnavailable
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT a.from_user_id, a.to_user_id
FROM reactions a
JOIN reactions b ON b.from_user_id = a.to_user_id AND b.to_user_id = a.from_user_id
WHERE a.from_user_id < a.to_user_id
	AND NOT EXISTS (
		SELECT 1 FROM rooms r
		WHERE r.user_a_id = a.from_user_id AND r.user_b_id = a.to_user_id
	)
ORDER BY a.from_user_id, a.to_user_id
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list mutual pairs without room: %w", classify(err))
	}
	defer rows.Close()

	items := make([]model.MutualPair, 0)
	for rows.Next() {
		var item model.MutualPair
		if err := rows.Scan(&item.UserAID, &item.UserBID); err != nil {
			return nil, fmt.Errorf("scan mutual pair: %w", classify(err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutual pairs: %w", classify(err))
	}

	return items, nil
}
