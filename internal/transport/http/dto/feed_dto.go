package dto

import "time"

type PostResponse struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Place      string    `json:"place"`
	CityID     string    `json:"city_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type FeedItemResponse struct {
	PostResponse
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

type FeedResponse struct {
	Items      []FeedItemResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	Truncated  bool               `json:"truncated,omitempty"`
}

type CreatePostRequest struct {
	Lat        *float64  `json:"lat"`
	Lng        *float64  `json:"lng"`
	Place      string    `json:"place"`
	OccurredAt time.Time `json:"occurred_at"`
	Content    string    `json:"content"`
}
