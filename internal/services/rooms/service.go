package rooms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	"github.com/zelkovascum/Photudio/internal/pkg/validate"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
)

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 200
	defaultMaxBodyLength   = 2000
	publishTimeout         = 3 * time.Second
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotAParticipant = errors.New("not a participant")
	ErrEmptyBody       = errors.New("empty message body")
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrDependenciesNil = errors.New("rooms dependencies are not configured")
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type RoomStore interface {
	GetByID(ctx context.Context, roomID int64) (model.Room, error)
	LockForAppend(ctx context.Context, tx pgx.Tx, roomID int64) (model.Room, error)
}

type MessageStore interface {
	Append(ctx context.Context, tx pgx.Tx, roomID, senderID int64, body string) (model.Message, error)
	ListAfter(ctx context.Context, roomID int64, after *pgrepo.MessageKey, limit int) ([]model.Message, error)
}

type EventPublisher interface {
	PublishMessageAccepted(ctx context.Context, evt model.MessageEvent) error
}

type RateLimiter interface {
	Check(ctx context.Context, userID int64) error
}

type MetricsRecorder interface {
	HubMetrics
	MessageAccepted()
}

type Config struct {
	HistoryPageSize  int
	HistoryMaxPage   int
	MaxBodyLength    int
	SubscriberBuffer int
}

type Dependencies struct {
	Tx       TxRunner
	Rooms    RoomStore
	Messages MessageStore
	Events   EventPublisher
	Limiter  RateLimiter
	Metrics  MetricsRecorder
	Logger   *zap.Logger
}

type Service struct {
	tx       TxRunner
	rooms    RoomStore
	messages MessageStore
	events   EventPublisher
	limiter  RateLimiter
	metrics  MetricsRecorder
	logger   *zap.Logger
	hub      *Hub
	cfg      Config
	locks    roomLocks
	newID    func() string
}

type HistoryPage struct {
	Items      []model.Message
	NextCursor string
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = defaultHistoryPageSize
	}
	if cfg.HistoryMaxPage <= 0 {
		cfg.HistoryMaxPage = maxHistoryPageSize
	}
	if cfg.HistoryPageSize > cfg.HistoryMaxPage {
		cfg.HistoryPageSize = cfg.HistoryMaxPage
	}
	if cfg.MaxBodyLength <= 0 {
		cfg.MaxBodyLength = defaultMaxBodyLength
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var hubMetrics HubMetrics
	if deps.Metrics != nil {
		hubMetrics = deps.Metrics
	}

	return &Service{
		tx:       deps.Tx,
		rooms:    deps.Rooms,
		messages: deps.Messages,
		events:   deps.Events,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		logger:   logger,
		hub:      NewHub(cfg.SubscriberBuffer, hubMetrics),
		cfg:      cfg,
		newID:    uuid.NewString,
	}
}

// PostMessage stores the message and hands it to live subscribers. The room row lock
// orders concurrent appends in the store; the per-room lock keeps hub delivery in the
// same order as commits. A sender still waiting for that lock when ctx ends gets ctx's
// error and nothing is stored.
func (s *Service) PostMessage(ctx context.Context, roomID, senderID int64, body string) (model.Message, error) {
	if roomID <= 0 || senderID <= 0 {
		return model.Message{}, ErrValidation
	}
	if !validate.Required(body) {
		return model.Message{}, ErrEmptyBody
	}
	if !validate.MaxRunes(body, s.cfg.MaxBodyLength) {
		return model.Message{}, fmt.Errorf("body exceeds %d characters: %w", s.cfg.MaxBodyLength, ErrValidation)
	}
	if s.tx == nil || s.rooms == nil || s.messages == nil {
		return model.Message{}, ErrDependenciesNil
	}

	if s.limiter != nil {
		if err := s.limiter.Check(ctx, senderID); err != nil {
			return model.Message{}, err
		}
	}

	unlock, err := s.locks.acquire(ctx, roomID)
	if err != nil {
		return model.Message{}, fmt.Errorf("wait for room %d: %w", roomID, err)
	}

	var msg model.Message
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		room, err := s.rooms.LockForAppend(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if !room.HasParticipant(senderID) {
			return ErrNotAParticipant
		}

		msg, err = s.messages.Append(ctx, tx, roomID, senderID, body)
		return err
	})
	if err == nil {
		s.hub.Publish(msg)
	}
	unlock()

	if err != nil {
		if errors.Is(err, pgrepo.ErrRoomNotFound) {
			return model.Message{}, ErrRoomNotFound
		}
		if errors.Is(err, ErrNotAParticipant) {
			return model.Message{}, ErrNotAParticipant
		}
		return model.Message{}, fmt.Errorf("append message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MessageAccepted()
	}
	s.publishMessageAccepted(ctx, msg)

	return msg, nil
}

// History returns messages after cursor in ascending (sent_at, id) order.
func (s *Service) History(ctx context.Context, roomID, viewerID int64, cursor string, limit int) (HistoryPage, error) {
	if _, err := s.authorize(ctx, roomID, viewerID); err != nil {
		return HistoryPage{}, err
	}

	after, err := DecodeCursor(cursor)
	if err != nil {
		return HistoryPage{}, err
	}

	if limit <= 0 {
		limit = s.cfg.HistoryPageSize
	}
	if limit > s.cfg.HistoryMaxPage {
		limit = s.cfg.HistoryMaxPage
	}

	items, err := s.messages.ListAfter(ctx, roomID, after, limit+1)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("list messages: %w", err)
	}

	page := HistoryPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = EncodeCursor(page.Items[limit-1])
	}

	return page, nil
}

// Subscribe attaches a live consumer from now on. The subscription ends on Close, when ctx
// is done, or when the consumer falls behind by more than the buffer.
func (s *Service) Subscribe(ctx context.Context, roomID, participantID int64) (*Subscription, error) {
	if _, err := s.authorize(ctx, roomID, participantID); err != nil {
		return nil, err
	}

	sub := s.hub.Attach(roomID, participantID)
	hub := s.hub
	sub.stop = context.AfterFunc(ctx, func() {
		hub.detach(sub)
	})

	return sub, nil
}

func (s *Service) authorize(ctx context.Context, roomID, userID int64) (model.Room, error) {
	if roomID <= 0 || userID <= 0 {
		return model.Room{}, ErrValidation
	}
	if s.rooms == nil || s.messages == nil {
		return model.Room{}, ErrDependenciesNil
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRoomNotFound) {
			return model.Room{}, ErrRoomNotFound
		}
		return model.Room{}, fmt.Errorf("get room: %w", err)
	}
	if !room.HasParticipant(userID) {
		return model.Room{}, ErrNotAParticipant
	}

	return room, nil
}

func (s *Service) publishMessageAccepted(ctx context.Context, msg model.Message) {
	if s.events == nil {
		return
	}

	evt := model.MessageEvent{
		EventID: s.newID(),
		RoomID:  msg.RoomID,
		Message: msg,
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.PublishMessageAccepted(publishCtx, evt); err != nil {
		s.logger.Warn("publish message accepted event failed",
			zap.Int64("room_id", msg.RoomID),
			zap.Int64("message_id", msg.ID),
			zap.Error(err),
		)
	}
}
