package dto

import "time"

type ReactRequest struct {
	ToUserID int64 `json:"to_user_id"`
}

type ReactResponse struct {
	Created  bool          `json:"created"`
	IsMutual bool          `json:"is_mutual"`
	Room     *RoomResponse `json:"room,omitempty"`
}

type ReactionResponse struct {
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type IncomingReactionsResponse struct {
	Items      []ReactionResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// ReactionStatusResponse describes both directions between the caller and another user.
type ReactionStatusResponse struct {
	Reacted       bool  `json:"reacted"`
	ReactedBack   bool  `json:"reacted_back"`
	RetryAfterSec int64 `json:"retry_after_sec"`
}
