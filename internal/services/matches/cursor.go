package matches

import (
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	"github.com/zelkovascum/Photudio/internal/pkg/pagecursor"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
)

type roomsCursor struct {
	ActivityAt time.Time `json:"t"`
	ID         int64     `json:"id"`
}

func encodeCursor(room model.Room) string {
	raw, err := pagecursor.Encode(roomsCursor{ActivityAt: room.ActivityAt().UTC(), ID: room.ID})
	if err != nil {
		return ""
	}
	return raw
}

func decodeCursor(raw string) (*pgrepo.RoomKey, error) {
	var cursor roomsCursor
	ok, err := pagecursor.Decode(raw, &cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	if !ok {
		return nil, nil
	}
	if cursor.ID <= 0 || cursor.ActivityAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &pgrepo.RoomKey{ActivityAt: cursor.ActivityAt, ID: cursor.ID}, nil
}
