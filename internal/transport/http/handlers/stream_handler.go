package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	roomssvc "github.com/zelkovascum/Photudio/internal/services/rooms"
	"github.com/zelkovascum/Photudio/internal/transport/http/dto"
)

const defaultHeartbeatInterval = 25 * time.Second

// StreamHandler serves a room as server-sent events. With ?cursor= the stream first
// replays history after the cursor and then continues live without gaps or duplicates.
type StreamHandler struct {
	rooms     *roomssvc.Service
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewStreamHandler(rooms *roomssvc.Service, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{rooms: rooms, heartbeat: heartbeat, logger: logger}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
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

	cursor := r.URL.Query().Get("cursor")
	if cursor == "" {
		cursor = r.Header.Get("Last-Event-ID")
	}
	if _, err := roomssvc.DecodeCursor(cursor); err != nil {
		writeServiceError(w, err, "invalid cursor")
		return
	}

	// Attach before reading history so nothing committed in between is missed.
	sub, err := h.rooms.Subscribe(r.Context(), roomID, identity.UserID)
	if err != nil {
		writeServiceError(w, err, "failed to open stream")
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	stream := &eventWriter{w: w, rc: rc, lastCursor: cursor}
	if err := stream.comment("connected"); err != nil {
		return
	}

	if cursor != "" {
		if err := h.replay(r, stream, roomID, identity.UserID, cursor); err != nil {
			h.logger.Debug("stream replay stopped", zap.Int64("room_id", roomID), zap.Error(err))
			return
		}
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := stream.comment("ping"); err != nil {
				return
			}
		case msg, open := <-sub.Messages():
			if !open {
				if sub.Dropped() {
					h.logger.Info("stream subscriber dropped",
						zap.Int64("room_id", sub.RoomID()),
						zap.Int64("user_id", identity.UserID),
					)
					_ = stream.resync()
				}
				return
			}
			if err := stream.message(msg); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) replay(r *http.Request, stream *eventWriter, roomID, userID int64, cursor string) error {
	for {
		page, err := h.rooms.History(r.Context(), roomID, userID, cursor, 0)
		if err != nil {
			return err
		}
		for _, msg := range page.Items {
			if err := stream.message(msg); err != nil {
				return err
			}
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

type eventWriter struct {
	w          http.ResponseWriter
	rc         *http.ResponseController
	last       *model.Message
	lastCursor string
}

// message skips anything at or before the last delivered message, which is how live
// messages already covered by the history replay are dropped.
func (e *eventWriter) message(msg model.Message) error {
	if e.last != nil && !e.last.Before(msg) {
		return nil
	}

	payload, err := json.Marshal(toMessageResponse(msg))
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}

	cursor := roomssvc.EncodeCursor(msg)
	if _, err := fmt.Fprintf(e.w, "id: %s\nevent: message\ndata: %s\n\n", cursor, payload); err != nil {
		return err
	}
	if err := e.rc.Flush(); err != nil {
		return err
	}

	e.last = &msg
	e.lastCursor = cursor
	return nil
}

func (e *eventWriter) resync() error {
	payload, err := json.Marshal(dto.ResyncEvent{Cursor: e.lastCursor})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: resync\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return e.rc.Flush()
}

func (e *eventWriter) comment(text string) error {
	if _, err := fmt.Fprintf(e.w, ": %s %s\n\n", text, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return err
	}
	return e.rc.Flush()
}
