package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

// PostKey is the (occurred_at, id) position of a post in feed order.
type PostKey struct {
	OccurredAt time.Time
	ID         int64
}

// PostQuery narrows a recent-posts scan. After keeps posts that occurred strictly later;
// Before continues feed order past the key; MaxID pins the scan to posts that existed when
// paging started.
type PostQuery struct {
	After  *time.Time
	Before *PostKey
	MaxID  int64
	Limit  int
}

// ListRecent returns posts in feed order: occurred_at descending, then id ascending.
func (r *PostRepo) ListRecent(ctx context.Context, q PostQuery) ([]model.Post, error) {
	if r.pool == nil {
		return nil, ErrStorageUnavailable
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		beforeAt *time.Time
		beforeID int64
	)
	if q.Before != nil {
		at := q.Before.OccurredAt
		beforeAt = &at
		beforeID = q.Before.ID
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, author_id, lat, lng, place, city_id, occurred_at, content, created_at
FROM posts
WHERE ($1::timestamptz IS NULL OR occurred_at > $1::timestamptz)
	AND (
		$2::timestamptz IS NULL
		OR occurred_at < $2::timestamptz
		OR (occurred_at = $2::timestamptz AND id > $3::bigint)
	)
	AND ($4::bigint <= 0 OR id <= $4::bigint)
ORDER BY occurred_at DESC, id ASC
LIMIT $5
`, q.After, beforeAt, beforeID, q.MaxID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", classify(err))
	}
	defer rows.Close()

	items := make([]model.Post, 0, limit)
	for rows.Next() {
		var item model.Post
		if err := rows.Scan(
			&item.ID,
			&item.AuthorID,
			&item.Lat,
			&item.Lng,
			&item.Place,
			&item.CityID,
			&item.OccurredAt,
			&item.Content,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", classify(err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", classify(err))
	}

	return items, nil
}

func (r *PostRepo) Create(ctx context.Context, post model.Post) (model.Post, error) {
	if r.pool == nil {
		return model.Post{}, ErrStorageUnavailable
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO posts (author_id, lat, lng, place, city_id, occurred_at, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
RETURNING id, created_at
`, post.AuthorID, post.Lat, post.Lng, post.Place, post.CityID, post.OccurredAt, post.Content, nullableTime(post.CreatedAt)).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return model.Post{}, fmt.Errorf("insert post: %w", classify(err))
	}

	return post, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
