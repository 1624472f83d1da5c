package model

import "time"

type MatchEvent struct {
	EventID        string    `json:"event_id"`
	RoomID         int64     `json:"room_id"`
	ParticipantIDs []int64   `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageEvent struct {
	EventID string  `json:"event_id"`
	RoomID  int64   `json:"room_id"`
	Message Message `json:"message"`
}
