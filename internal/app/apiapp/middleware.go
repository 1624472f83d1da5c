package apiapp

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	httperrors "github.com/zelkovascum/Photudio/internal/transport/http/errors"
)

type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// ApplyMiddlewares installs the middleware every route shares. Request timeouts are
// applied per route group because streams must outlive them.
func ApplyMiddlewares(r chiRouter, log *zap.Logger, metrics StatusRecorder) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log, metrics))
}

func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "missing bearer token",
				})
				return
			}

			identity, err := authService.ValidateAccessToken(r.Context(), accessToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware validation failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid access token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(authsvc.WithIdentity(r.Context(), identity)))
		})
	}
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger, metrics StatusRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if metrics != nil {
				metrics.RecordHTTPStatus(status)
			}
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// StreamLimiter bounds how often a user may open (or reopen) room streams.
type StreamLimiter struct {
	rate  rate.Limit
	burst int
	log   *zap.Logger

	mu       sync.RWMutex
	limiters map[int64]*userLimiter
	now      func() time.Time
}

func NewStreamLimiter(perSecond float64, burst int, log *zap.Logger) *StreamLimiter {
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamLimiter{
		rate:     rate.Limit(perSecond),
		burst:    burst,
		log:      log,
		limiters: make(map[int64]*userLimiter),
		now:      time.Now,
	}
}

// Middleware must run after AuthMiddleware.
func (l *StreamLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
				Code:    "UNAUTHORIZED",
				Message: "authentication required",
			})
			return
		}

		if !l.limiterFor(identity.UserID).Allow() {
			l.log.Warn("stream connect rate limit exceeded", zap.Int64("user_id", identity.UserID))
			writeRateLimitResponse(w, l.rate)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *StreamLimiter) limiterFor(userID int64) *rate.Limiter {
	l.mu.RLock()
	ul, ok := l.limiters[userID]
	l.mu.RUnlock()

	if ok {
		l.mu.Lock()
		ul.lastAccess = l.now()
		l.mu.Unlock()
		return ul.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ul, ok := l.limiters[userID]; ok {
		ul.lastAccess = l.now()
		return ul.limiter
	}
	ul = &userLimiter{limiter: rate.NewLimiter(l.rate, l.burst), lastAccess: l.now()}
	l.limiters[userID] = ul
	return ul.limiter
}

// Cleanup forgets limiters idle for longer than maxIdle and returns how many it removed.
func (l *StreamLimiter) Cleanup(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for userID, ul := range l.limiters {
		if ul.lastAccess.Before(cutoff) {
			delete(l.limiters, userID)
			removed++
		}
	}
	return removed
}

func (l *StreamLimiter) CleanupLoop(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(maxIdle)
		}
	}
}

func (l *StreamLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfter := int64(1)
	if limit > 0 {
		retryAfter = int64(math.Ceil(1 / float64(limit)))
	}
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
		Code:          "TOO_FAST",
		Message:       "too many stream connections",
		RetryAfterSec: retryAfter,
	})
}
