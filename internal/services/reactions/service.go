package reactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
)

const (
	defaultIncomingLimit = 50
	maxIncomingLimit     = 200
)

var (
	ErrValidation             = errors.New("validation error")
	ErrSelfReactionNotAllowed = errors.New("self reaction not allowed")
	ErrInvalidCursor          = errors.New("invalid cursor")
	ErrDependenciesNil        = errors.New("reactions dependencies are not configured")
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type ReactionStore interface {
	LockPair(ctx context.Context, tx pgx.Tx, a, b int64) error
	Upsert(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (model.Reaction, bool, error)
	ExistsTx(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (bool, error)
	Exists(ctx context.Context, fromUserID, toUserID int64) (bool, error)
	ListIncoming(ctx context.Context, userID int64, after *pgrepo.ReactionKey, limit int) ([]model.Reaction, error)
}

type MatchProvisioner interface {
	OnMutualReaction(ctx context.Context, a, b int64) (model.Room, error)
}

type RateLimiter interface {
	Check(ctx context.Context, userID int64) error
	RetryAfter(ctx context.Context, userID int64) (int64, error)
}

type MetricsRecorder interface {
	ReactionRecorded(created, mutual bool)
}

type Dependencies struct {
	Tx      TxRunner
	Store   ReactionStore
	Matches MatchProvisioner
	Limiter RateLimiter
	Metrics MetricsRecorder
	Logger  *zap.Logger
}

type Service struct {
	tx      TxRunner
	store   ReactionStore
	matches MatchProvisioner
	limiter RateLimiter
	metrics MetricsRecorder
	logger  *zap.Logger
}

// Status describes both directions between a user and a peer. RetryAfterSec is how long
// the user must wait before the next reaction passes the rate limit.
type Status struct {
	Reacted       bool
	ReactedBack   bool
	RetryAfterSec int64
}

type IncomingPage struct {
	Items      []model.Reaction
	NextCursor string
}

type ReactResult struct {
	Reaction model.Reaction
	Created  bool
	IsMutual bool
	Room     *model.Room
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:      deps.Tx,
		store:   deps.Store,
		matches: deps.Matches,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// React records from -> to. Whether the pair is now mutual is decided under a pair lock in
// the same transaction as the write, so of two concurrent opposite reactions exactly one
// observes the other. Room provisioning runs after commit; its error is returned together
// with the committed result.
func (s *Service) React(ctx context.Context, fromUserID, toUserID int64) (ReactResult, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return ReactResult{}, ErrValidation
	}
	if fromUserID == toUserID {
		return ReactResult{}, ErrSelfReactionNotAllowed
	}
	if s.tx == nil || s.store == nil {
		return ReactResult{}, ErrDependenciesNil
	}

	if s.limiter != nil {
		if err := s.limiter.Check(ctx, fromUserID); err != nil {
			return ReactResult{}, err
		}
	}

	var result ReactResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.store.LockPair(ctx, tx, fromUserID, toUserID); err != nil {
			return err
		}

		reaction, created, err := s.store.Upsert(ctx, tx, fromUserID, toUserID)
		if err != nil {
			return err
		}
		mutual, err := s.store.ExistsTx(ctx, tx, toUserID, fromUserID)
		if err != nil {
			return err
		}

		result = ReactResult{Reaction: reaction, Created: created, IsMutual: mutual}
		return nil
	})
	if err != nil {
		return ReactResult{}, fmt.Errorf("record reaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ReactionRecorded(result.Created, result.IsMutual)
	}

	if !result.IsMutual || s.matches == nil {
		return result, nil
	}

	room, err := s.matches.OnMutualReaction(ctx, fromUserID, toUserID)
	if err != nil {
		s.logger.Warn("room provisioning after mutual reaction failed",
			zap.Int64("from_user_id", fromUserID),
			zap.Int64("to_user_id", toUserID),
			zap.Error(err),
		)
		return result, err
	}
	result.Room = &room

	return result, nil
}

func (s *Service) HasReaction(ctx context.Context, fromUserID, toUserID int64) (bool, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return false, ErrValidation
	}
	if s.store == nil {
		return false, ErrDependenciesNil
	}
	return s.store.Exists(ctx, fromUserID, toUserID)
}

func (s *Service) Status(ctx context.Context, userID, peerID int64) (Status, error) {
	if userID == peerID {
		return Status{}, ErrSelfReactionNotAllowed
	}

	reacted, err := s.HasReaction(ctx, userID, peerID)
	if err != nil {
		return Status{}, err
	}
	reactedBack, err := s.HasReaction(ctx, peerID, userID)
	if err != nil {
		return Status{}, err
	}

	status := Status{Reacted: reacted, ReactedBack: reactedBack}
	if s.limiter != nil {
		wait, err := s.limiter.RetryAfter(ctx, userID)
		if err != nil {
			return Status{}, fmt.Errorf("read reaction rate limit: %w", err)
		}
		status.RetryAfterSec = wait
	}
	return status, nil
}

// ListIncoming returns one page of reactions to userID, newest first. Following
// NextCursor until it is empty walks every incoming reaction once.
func (s *Service) ListIncoming(ctx context.Context, userID int64, cursor string, limit int) (IncomingPage, error) {
	if userID <= 0 {
		return IncomingPage{}, ErrValidation
	}
	if s.store == nil {
		return IncomingPage{}, ErrDependenciesNil
	}
	after, err := decodeCursor(cursor)
	if err != nil {
		return IncomingPage{}, err
	}
	if limit <= 0 {
		limit = defaultIncomingLimit
	}
	if limit > maxIncomingLimit {
		limit = maxIncomingLimit
	}

	items, err := s.store.ListIncoming(ctx, userID, after, limit+1)
	if err != nil {
		return IncomingPage{}, fmt.Errorf("list incoming reactions: %w", err)
	}

	page := IncomingPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = encodeCursor(page.Items[limit-1])
	}
	return page, nil
}
