package rooms

import (
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	"github.com/zelkovascum/Photudio/internal/pkg/pagecursor"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
)

type pageCursor struct {
	SentAt time.Time `json:"t"`
	ID     int64     `json:"id"`
}

// EncodeCursor returns the opaque position right after msg.
func EncodeCursor(msg model.Message) string {
	raw, err := pagecursor.Encode(pageCursor{SentAt: msg.SentAt.UTC(), ID: msg.ID})
	if err != nil {
		return ""
	}
	return raw
}

func DecodeCursor(raw string) (*pgrepo.MessageKey, error) {
	var cursor pageCursor
	ok, err := pagecursor.Decode(raw, &cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	if !ok {
		return nil, nil
	}
	if cursor.ID <= 0 || cursor.SentAt.IsZero() {
		return nil, ErrInvalidCursor
	}

	return &pgrepo.MessageKey{SentAt: cursor.SentAt, ID: cursor.ID}, nil
}
