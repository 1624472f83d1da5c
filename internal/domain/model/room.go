package model

import "time"

// Room is the chat context of a match. UserAID is always the smaller user id.
type Room struct {
	ID            int64      `json:"id"`
	UserAID       int64      `json:"user_a_id"`
	UserBID       int64      `json:"user_b_id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

func (r Room) HasParticipant(userID int64) bool {
	return userID > 0 && (r.UserAID == userID || r.UserBID == userID)
}

func (r Room) ParticipantIDs() []int64 {
	return []int64{r.UserAID, r.UserBID}
}

func (r Room) Peer(userID int64) (int64, bool) {
	switch userID {
	case r.UserAID:
		return r.UserBID, true
	case r.UserBID:
		return r.UserAID, true
	default:
		return 0, false
	}
}

// CanonicalPair orders two user ids so that the smaller comes first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// ActivityAt is the last message time, or the creation time for a room without messages.
func (r Room) ActivityAt() time.Time {
	if r.LastMessageAt != nil {
		return *r.LastMessageAt
	}
	return r.CreatedAt
}
