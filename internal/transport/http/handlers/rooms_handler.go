package handlers

import (
	"net/http"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	matchessvc "github.com/zelkovascum/Photudio/internal/services/matches"
	roomssvc "github.com/zelkovascum/Photudio/internal/services/rooms"
	"github.com/zelkovascum/Photudio/internal/transport/http/dto"
	httperrors "github.com/zelkovascum/Photudio/internal/transport/http/errors"
)

type RoomsHandler struct {
	matches *matchessvc.Service
	rooms   *roomssvc.Service
}

func NewRoomsHandler(matches *matchessvc.Service, rooms *roomssvc.Service) *RoomsHandler {
	return &RoomsHandler{matches: matches, rooms: rooms}
}

func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.matches == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	query := r.URL.Query()
	page, err := h.matches.ListRooms(r.Context(), identity.UserID, query.Get("cursor"), parseIntOrDefault(query.Get("limit"), 0))
	if err != nil {
		writeServiceError(w, err, "failed to load rooms")
		return
	}

	resp := dto.RoomsResponse{
		Items:      make([]dto.RoomResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, room := range page.Items {
		resp.Items = append(resp.Items, toRoomResponse(room, identity.UserID))
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *RoomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.matches == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}
	roomID, ok := parsePathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid room id")
		return
	}

	room, err := h.matches.GetRoom(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, err, "failed to load room")
		return
	}
	if !room.HasParticipant(identity.UserID) {
		writeServiceError(w, roomssvc.ErrNotAParticipant, "")
		return
	}

	httperrors.Write(w, http.StatusOK, toRoomResponse(room, identity.UserID))
}

func (h *RoomsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.rooms == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}
	roomID, ok := parsePathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid room id")
		return
	}

	query := r.URL.Query()
	page, err := h.rooms.History(r.Context(), roomID, identity.UserID, query.Get("cursor"), parseIntOrDefault(query.Get("limit"), 0))
	if err != nil {
		writeServiceError(w, err, "failed to load messages")
		return
	}

	resp := dto.MessagesResponse{Items: make([]dto.MessageResponse, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, msg := range page.Items {
		resp.Items = append(resp.Items, toMessageResponse(msg))
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *RoomsHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.rooms == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}
	roomID, ok := parsePathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid room id")
		return
	}

	var req dto.PostMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	msg, err := h.rooms.PostMessage(r.Context(), roomID, identity.UserID, req.Body)
	if err != nil {
		writeServiceError(w, err, "failed to send message")
		return
	}

	httperrors.Write(w, http.StatusCreated, toMessageResponse(msg))
}

func toRoomResponse(room model.Room, viewerID int64) dto.RoomResponse {
	peer, _ := room.Peer(viewerID)
	return dto.RoomResponse{
		ID:             room.ID,
		ParticipantIDs: room.ParticipantIDs(),
		PeerUserID:     peer,
		CreatedAt:      room.CreatedAt,
		LastMessageAt:  room.LastMessageAt,
	}
}

func toMessageResponse(msg model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:       msg.ID,
		RoomID:   msg.RoomID,
		SenderID: msg.SenderID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
	}
}
