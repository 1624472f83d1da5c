package model

import "time"

// Reaction is a directed interest edge. There is at most one per ordered pair.
type Reaction struct {
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// MutualPair is a canonical (UserAID < UserBID) pair whose reactions point both ways.
type MutualPair struct {
	UserAID int64
	UserBID int64
}
