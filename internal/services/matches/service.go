package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
)

const (
	defaultRoomsLimit = 50
	maxRoomsLimit     = 200
	publishTimeout    = 3 * time.Second
)

var (
	ErrValidation              = errors.New("validation error")
	ErrMatchProvisioningFailed = errors.New("match provisioning failed")
	ErrRoomNotFound            = errors.New("room not found")
	ErrInvalidCursor           = errors.New("invalid cursor")
	ErrDependenciesNil         = errors.New("matches dependencies are not configured")
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type RoomStore interface {
	CreateOrGet(ctx context.Context, tx pgx.Tx, userA, userB int64) (model.Room, bool, error)
	GetByID(ctx context.Context, roomID int64) (model.Room, error)
	ListForUser(ctx context.Context, userID int64, after *pgrepo.RoomKey, limit int) ([]model.Room, error)
}

type EventPublisher interface {
	PublishMatchCreated(ctx context.Context, evt model.MatchEvent) error
}

type MetricsRecorder interface {
	RoomCreated()
	ProvisioningFailed()
}

type Dependencies struct {
	Tx      TxRunner
	Rooms   RoomStore
	Events  EventPublisher
	Metrics MetricsRecorder
	Logger  *zap.Logger
}

type Service struct {
	tx      TxRunner
	rooms   RoomStore
	events  EventPublisher
	metrics MetricsRecorder
	logger  *zap.Logger
	newID   func() string
}

// RoomPage is one page of a user's rooms, most recently active first.
type RoomPage struct {
	Items      []model.Room
	NextCursor string
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:      deps.Tx,
		rooms:   deps.Rooms,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// OnMutualReaction returns the room of the pair, creating it on first call. Concurrent and
// repeated calls for the same pair converge on one room; only the creating call emits a
// MatchEvent.
func (s *Service) OnMutualReaction(ctx context.Context, userA, userB int64) (model.Room, error) {
	if userA <= 0 || userB <= 0 || userA == userB {
		return model.Room{}, ErrValidation
	}
	if s.tx == nil || s.rooms == nil {
		return model.Room{}, ErrDependenciesNil
	}

	lo, hi := model.CanonicalPair(userA, userB)

	var (
		room    model.Room
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		room, created, err = s.rooms.CreateOrGet(ctx, tx, lo, hi)
		return err
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ProvisioningFailed()
		}
		return model.Room{}, fmt.Errorf("%w: %w", ErrMatchProvisioningFailed, err)
	}

	if created {
		if s.metrics != nil {
			s.metrics.RoomCreated()
		}
		s.publishMatchCreated(ctx, room)
	}

	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID int64) (model.Room, error) {
	if roomID <= 0 {
		return model.Room{}, ErrValidation
	}
	if s.rooms == nil {
		return model.Room{}, ErrDependenciesNil
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRoomNotFound) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// ListRooms pages through the user's rooms by latest activity. A room that receives a
// message while the client is paging moves to the front and is not repeated on later pages.
func (s *Service) ListRooms(ctx context.Context, userID int64, cursor string, limit int) (RoomPage, error) {
	if userID <= 0 {
		return RoomPage{}, ErrValidation
	}
	if s.rooms == nil {
		return RoomPage{}, ErrDependenciesNil
	}
	after, err := decodeCursor(cursor)
	if err != nil {
		return RoomPage{}, err
	}
	if limit <= 0 {
		limit = defaultRoomsLimit
	}
	if limit > maxRoomsLimit {
		limit = maxRoomsLimit
	}

	items, err := s.rooms.ListForUser(ctx, userID, after, limit+1)
	if err != nil {
		return RoomPage{}, fmt.Errorf("list rooms: %w", err)
	}

	page := RoomPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = encodeCursor(page.Items[limit-1])
	}
	return page, nil
}

func (s *Service) publishMatchCreated(ctx context.Context, room model.Room) {
	if s.events == nil {
		return
	}

	evt := model.MatchEvent{
		EventID:        s.newID(),
		RoomID:         room.ID,
		ParticipantIDs: room.ParticipantIDs(),
		CreatedAt:      room.CreatedAt,
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.PublishMatchCreated(publishCtx, evt); err != nil {
		s.logger.Warn("publish match created event failed",
			zap.Int64("room_id", room.ID),
			zap.String("event_id", evt.EventID),
			zap.Error(err),
		)
	}
}
