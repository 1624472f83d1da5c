package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrStoreUnavailable wraps counter store failures so callers can answer "retry later"
// instead of reporting an internal error.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

// Limiter counts per-user actions of one scope (e.g. "reactions") in fixed windows.
// An action is refused when any window is over its limit.
type Limiter struct {
	store   WindowStore
	scope   string
	windows []window
}

type window struct {
	name  string
	size  time.Duration
	limit int64
}

// NewLimiter builds a limiter with a one-minute and a ten-second window. A non-positive
// limit disables that window.
func NewLimiter(store WindowStore, scope string, perMinute, per10Sec int) *Limiter {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}

	l := &Limiter{store: store, scope: scope}
	if perMinute > 0 {
		l.windows = append(l.windows, window{name: "min", size: time.Minute, limit: int64(perMinute)})
	}
	if per10Sec > 0 {
		l.windows = append(l.windows, window{name: "10s", size: 10 * time.Second, limit: int64(per10Sec)})
	}
	return l
}

// Allow counts one action. When refused it reports how many seconds remain until the
// longest blocking window resets.
func (l *Limiter) Allow(ctx context.Context, userID int64) (int64, bool, error) {
	if err := l.ready(userID); err != nil {
		return 0, false, err
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, l.key(w, userID), w.size)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if count > w.limit {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, retryAfterSec == 0, nil
}

// Check is Allow folded into an error: nil when allowed, TooFastError otherwise.
func (l *Limiter) Check(ctx context.Context, userID int64) error {
	retryAfter, allowed, err := l.Allow(ctx, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

// RetryAfter reports the wait before the next action would pass, without counting one.
func (l *Limiter) RetryAfter(ctx context.Context, userID int64) (int64, error) {
	if err := l.ready(userID); err != nil {
		return 0, err
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, l.key(w, userID))
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if count >= w.limit {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, nil
}

func (l *Limiter) ready(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return fmt.Errorf("rate limiter store is nil")
	}
	return nil
}

func (l *Limiter) key(w window, userID int64) string {
	return "rate:" + l.scope + ":" + w.name + ":" + strconv.FormatInt(userID, 10)
}

// ceilSeconds rounds up to whole seconds; a blocking window always asks for at least one.
func ceilSeconds(d time.Duration) int64 {
	sec := int64((d + time.Second - 1) / time.Second)
	if sec < 1 {
		return 1
	}
	return sec
}
