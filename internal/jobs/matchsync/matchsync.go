package matchsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zelkovascum/Photudio/internal/domain/model"
)

const (
	defaultInterval = 5 * time.Minute
	defaultBatch    = 200
)

type PairSource interface {
	ListMutualWithoutRoom(ctx context.Context, limit int) ([]model.MutualPair, error)
}

type Provisioner interface {
	OnMutualReaction(ctx context.Context, a, b int64) (model.Room, error)
}

// Job re-derives rooms for mutual pairs whose provisioning failed after the reaction
// committed. Provisioning is idempotent, so overlapping with live traffic is harmless.
type Job struct {
	pairs    PairSource
	matches  Provisioner
	interval time.Duration
	batch    int
	logger   *zap.Logger
}

func New(pairs PairSource, matches Provisioner, interval time.Duration, batch int, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batch <= 0 {
		batch = defaultBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		pairs:    pairs,
		matches:  matches,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run provisions one batch and reports how many rooms it repaired. A failing pair is
// logged and left for the next run.
func (j *Job) Run(ctx context.Context) (int, error) {
	if j.pairs == nil || j.matches == nil {
		return 0, nil
	}

	pairs, err := j.pairs.ListMutualWithoutRoom(ctx, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list mutual pairs without room: %w", err)
	}

	repaired := 0
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		if _, err := j.matches.OnMutualReaction(ctx, pair.UserAID, pair.UserBID); err != nil {
			j.logger.Warn("match sync provisioning failed",
				zap.Int64("user_a_id", pair.UserAID),
				zap.Int64("user_b_id", pair.UserBID),
				zap.Error(err),
			)
			continue
		}
		repaired++
	}

	if repaired > 0 {
		j.logger.Info("match sync repaired rooms", zap.Int("repaired", repaired))
	}
	return repaired, nil
}

// Loop runs the job immediately and then on every tick until ctx is done.
func (j *Job) Loop(ctx context.Context) {
	j.runLogged(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *Job) runLogged(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Warn("match sync run failed", zap.Error(err))
	}
}
