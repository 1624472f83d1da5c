package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	feedsvc "github.com/zelkovascum/Photudio/internal/services/feed"
	"github.com/zelkovascum/Photudio/internal/transport/http/dto"
	httperrors "github.com/zelkovascum/Photudio/internal/transport/http/errors"
)

type FeedHandler struct {
	service *feedsvc.Service
}

func NewFeedHandler(service *feedsvc.Service) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	params := r.URL.Query()
	mode, err := feedsvc.ParseMode(params.Get("mode"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid feed mode")
		return
	}

	query := feedsvc.Query{
		Mode:   mode,
		CityID: strings.TrimSpace(params.Get("city")),
		Cursor: params.Get("cursor"),
		Limit:  parseIntOrDefault(params.Get("limit"), 0),
	}

	rawLat, rawLng := strings.TrimSpace(params.Get("lat")), strings.TrimSpace(params.Get("lng"))
	if rawLat != "" || rawLng != "" {
		lat, latErr := strconv.ParseFloat(rawLat, 64)
		lng, lngErr := strconv.ParseFloat(rawLng, 64)
		if latErr != nil || lngErr != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "lat and lng must be provided together as numbers")
			return
		}
		query.Origin = &model.Location{Lat: lat, Lng: lng}
	}

	if rawAfter := strings.TrimSpace(params.Get("after")); rawAfter != "" {
		after, err := time.Parse(time.RFC3339, rawAfter)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "after must be an RFC3339 timestamp")
			return
		}
		query.After = &after
	}

	result, err := h.service.Get(r.Context(), query)
	if err != nil {
		writeServiceError(w, err, "failed to load feed")
		return
	}

	items := make([]dto.FeedItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, dto.FeedItemResponse{
			PostResponse: toPostResponse(item.Post),
			DistanceKM:   item.DistanceKM,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.FeedResponse{Items: items, NextCursor: result.NextCursor, Truncated: result.Truncated})
}

func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	var req dto.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "lat and lng are required")
		return
	}

	post, err := h.service.CreatePost(r.Context(), identity.UserID, feedsvc.NewPost{
		Lat:        *req.Lat,
		Lng:        *req.Lng,
		Place:      req.Place,
		OccurredAt: req.OccurredAt,
		Content:    req.Content,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create post")
		return
	}

	httperrors.Write(w, http.StatusCreated, toPostResponse(post))
}

func toPostResponse(post model.Post) dto.PostResponse {
	return dto.PostResponse{
		ID:         post.ID,
		AuthorID:   post.AuthorID,
		Lat:        post.Lat,
		Lng:        post.Lng,
		Place:      post.Place,
		CityID:     post.CityID,
		OccurredAt: post.OccurredAt,
		Content:    post.Content,
		CreatedAt:  post.CreatedAt,
	}
}
