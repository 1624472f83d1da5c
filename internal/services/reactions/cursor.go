package reactions

import (
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	"github.com/zelkovascum/Photudio/internal/pkg/pagecursor"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
)

type incomingCursor struct {
	CreatedAt  time.Time `json:"t"`
	FromUserID int64     `json:"u"`
}

func encodeCursor(item model.Reaction) string {
	raw, err := pagecursor.Encode(incomingCursor{CreatedAt: item.CreatedAt.UTC(), FromUserID: item.FromUserID})
	if err != nil {
		return ""
	}
	return raw
}

func decodeCursor(raw string) (*pgrepo.ReactionKey, error) {
	var cursor incomingCursor
	ok, err := pagecursor.Decode(raw, &cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	if !ok {
		return nil, nil
	}
	if cursor.FromUserID <= 0 || cursor.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &pgrepo.ReactionKey{CreatedAt: cursor.CreatedAt, FromUserID: cursor.FromUserID}, nil
}
