package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
	feedsvc "github.com/zelkovascum/Photudio/internal/services/feed"
	geosvc "github.com/zelkovascum/Photudio/internal/services/geo"
	matchessvc "github.com/zelkovascum/Photudio/internal/services/matches"
	ratesvc "github.com/zelkovascum/Photudio/internal/services/rate"
	reactionssvc "github.com/zelkovascum/Photudio/internal/services/reactions"
	roomssvc "github.com/zelkovascum/Photudio/internal/services/rooms"
	httperrors "github.com/zelkovascum/Photudio/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeServiceError maps service sentinels onto the API error envelope. fallback is the
// message for unexpected failures.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if tooFast, ok := ratesvc.IsTooFast(err); ok {
		w.Header().Set("Retry-After", strconv.FormatInt(tooFast.RetryAfter(), 10))
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "TOO_FAST",
			Message:       "too many requests",
			RetryAfterSec: tooFast.RetryAfter(),
		})
		return
	}

	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", fallback
	switch {
	case errors.Is(err, geosvc.ErrInvalidCoordinate):
		status, code, message = http.StatusBadRequest, "INVALID_COORDINATE", "coordinates are out of range"
	case errors.Is(err, reactionssvc.ErrSelfReactionNotAllowed):
		status, code, message = http.StatusBadRequest, "SELF_REACTION_NOT_ALLOWED", "cannot react to yourself"
	case errors.Is(err, roomssvc.ErrEmptyBody):
		status, code, message = http.StatusBadRequest, "EMPTY_BODY", "message body can't be blank"
	case errors.Is(err, roomssvc.ErrNotAParticipant):
		status, code, message = http.StatusForbidden, "NOT_A_PARTICIPANT", "not a participant of this room"
	case errors.Is(err, roomssvc.ErrRoomNotFound), errors.Is(err, matchessvc.ErrRoomNotFound):
		status, code, message = http.StatusNotFound, "ROOM_NOT_FOUND", "room not found"
	case errors.Is(err, matchessvc.ErrMatchProvisioningFailed):
		status, code, message = http.StatusServiceUnavailable, "MATCH_PROVISIONING_FAILED", "match room could not be created, retry later"
	case errors.Is(err, pgrepo.ErrStorageUnavailable), errors.Is(err, ratesvc.ErrStoreUnavailable):
		status, code, message = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage is unavailable, retry later"
	case errors.Is(err, feedsvc.ErrInvalidCursor),
		errors.Is(err, roomssvc.ErrInvalidCursor),
		errors.Is(err, reactionssvc.ErrInvalidCursor),
		errors.Is(err, matchessvc.ErrInvalidCursor):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", "invalid cursor"
	case errors.Is(err, feedsvc.ErrInvalidMode):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", "invalid feed mode"
	case errors.Is(err, feedsvc.ErrOriginMissing):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", "lat/lng or city is required for proximity mode"
	case errors.Is(err, feedsvc.ErrValidation),
		errors.Is(err, reactionssvc.ErrValidation),
		errors.Is(err, matchessvc.ErrValidation),
		errors.Is(err, roomssvc.ErrValidation):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err)
	}

	httperrors.Write(w, status, httperrors.APIError{Code: code, Message: message})
}

func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": validation error"); i > 0 {
		return msg[:i]
	}
	return "invalid request"
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parsePathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, key)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
