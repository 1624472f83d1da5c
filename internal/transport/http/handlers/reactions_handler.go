package handlers

import (
	"net/http"
	"strconv"
	"strings"

	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	reactionssvc "github.com/zelkovascum/Photudio/internal/services/reactions"
	"github.com/zelkovascum/Photudio/internal/transport/http/dto"
	httperrors "github.com/zelkovascum/Photudio/internal/transport/http/errors"
)

type ReactionsHandler struct {
	service *reactionssvc.Service
}

func NewReactionsHandler(service *reactionssvc.Service) *ReactionsHandler {
	return &ReactionsHandler{service: service}
}

// React answers 201 for a new reaction and 200 when it already existed. A mutual pair
// whose room could not be provisioned still answers 503 so the client retries; the
// reaction itself is kept and the retry is idempotent.
func (h *ReactionsHandler) React(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "REACTIONS_SERVICE_UNAVAILABLE", "reactions service is unavailable")
		return
	}

	var req dto.ReactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.service.React(r.Context(), identity.UserID, req.ToUserID)
	if err != nil {
		writeServiceError(w, err, "failed to record reaction")
		return
	}

	resp := dto.ReactResponse{Created: result.Created, IsMutual: result.IsMutual}
	if result.Room != nil {
		room := toRoomResponse(*result.Room, identity.UserID)
		resp.Room = &room
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httperrors.Write(w, status, resp)
}

func (h *ReactionsHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "REACTIONS_SERVICE_UNAVAILABLE", "reactions service is unavailable")
		return
	}

	query := r.URL.Query()
	page, err := h.service.ListIncoming(r.Context(), identity.UserID, query.Get("cursor"), parseIntOrDefault(query.Get("limit"), 0))
	if err != nil {
		writeServiceError(w, err, "failed to load reactions")
		return
	}

	resp := dto.IncomingReactionsResponse{
		Items:      make([]dto.ReactionResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, dto.ReactionResponse{
			FromUserID: item.FromUserID,
			ToUserID:   item.ToUserID,
			CreatedAt:  item.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *ReactionsHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "REACTIONS_SERVICE_UNAVAILABLE", "reactions service is unavailable")
		return
	}

	toUserID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("to_user_id")), 10, 64)
	if err != nil || toUserID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "to_user_id is required")
		return
	}

	status, err := h.service.Status(r.Context(), identity.UserID, toUserID)
	if err != nil {
		writeServiceError(w, err, "failed to load reaction status")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReactionStatusResponse{
		Reacted:       status.Reacted,
		ReactedBack:   status.ReactedBack,
		RetryAfterSec: status.RetryAfterSec,
	})
}
