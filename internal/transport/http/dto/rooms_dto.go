package dto

import "time"

type RoomResponse struct {
	ID             int64      `json:"id"`
	ParticipantIDs []int64    `json:"participant_ids"`
	PeerUserID     int64      `json:"peer_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
}

type RoomsResponse struct {
	Items      []RoomResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type MessageResponse struct {
	ID       int64     `json:"id"`
	RoomID   int64     `json:"room_id"`
	SenderID int64     `json:"sender_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

type MessagesResponse struct {
	Items      []MessageResponse `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type PostMessageRequest struct {
	Body string `json:"body"`
}

// ResyncEvent tells a stream client to reload history after Cursor and reconnect.
type ResyncEvent struct {
	Cursor string `json:"cursor,omitempty"`
}
