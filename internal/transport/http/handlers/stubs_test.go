package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	matchessvc "github.com/zelkovascum/Photudio/internal/services/matches"
	reactionssvc "github.com/zelkovascum/Photudio/internal/services/reactions"
	roomssvc "github.com/zelkovascum/Photudio/internal/services/rooms"
)

type txStub struct {
	mu sync.Mutex
}

func (t *txStub) WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx, nil)
}

type pair struct{ from, to int64 }

// memoryStore backs reactions, rooms and messages for handler tests. Its clock only moves
// forward, so timestamps alone order rows.
type memoryStore struct {
	mu        sync.Mutex
	reactions map[pair]model.Reaction
	rooms     map[int64]model.Room
	messages  map[int64][]model.Message
	nextRoom  int64
	nextMsg   int64
	clock     time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		reactions: make(map[pair]model.Reaction),
		rooms:     make(map[int64]model.Room),
		messages:  make(map[int64][]model.Message),
		clock:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memoryStore) LockPair(context.Context, pgx.Tx, int64, int64) error {
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, _ pgx.Tx, from, to int64) (model.Reaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pair{from, to}
	if existing, ok := s.reactions[key]; ok {
		return existing, false, nil
	}
	s.clock = s.clock.Add(time.Second)
	reaction := model.Reaction{FromUserID: from, ToUserID: to, CreatedAt: s.clock}
	s.reactions[key] = reaction
	return reaction, true, nil
}

func (s *memoryStore) ExistsTx(ctx context.Context, _ pgx.Tx, from, to int64) (bool, error) {
	return s.Exists(ctx, from, to)
}

func (s *memoryStore) Exists(_ context.Context, from, to int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reactions[pair{from, to}]
	return ok, nil
}

func (s *memoryStore) ListIncoming(_ context.Context, userID int64, after *pgrepo.ReactionKey, limit int) ([]model.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Reaction, 0)
	for key, reaction := range s.reactions {
		if key.to != userID {
			continue
		}
		if after != nil && !reaction.CreatedAt.Before(after.CreatedAt) {
			continue
		}
		items = append(items, reaction)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *memoryStore) CreateOrGet(_ context.Context, _ pgx.Tx, a, b int64) (model.Room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b = model.CanonicalPair(a, b)
	for _, room := range s.rooms {
		if room.UserAID == a && room.UserBID == b {
			return room, false, nil
		}
	}
	s.nextRoom++
	s.clock = s.clock.Add(time.Second)
	room := model.Room{ID: s.nextRoom, UserAID: a, UserBID: b, CreatedAt: s.clock}
	s.rooms[room.ID] = room
	return room, true, nil
}

func (s *memoryStore) GetByID(_ context.Context, roomID int64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return model.Room{}, pgrepo.ErrRoomNotFound
	}
	return room, nil
}

func (s *memoryStore) ListForUser(_ context.Context, userID int64, after *pgrepo.RoomKey, limit int) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Room, 0)
	for _, room := range s.rooms {
		if !room.HasParticipant(userID) {
			continue
		}
		if after != nil && !room.ActivityAt().Before(after.ActivityAt) {
			continue
		}
		items = append(items, room)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActivityAt().After(items[j].ActivityAt()) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *memoryStore) LockForAppend(ctx context.Context, _ pgx.Tx, roomID int64) (model.Room, error) {
	return s.GetByID(ctx, roomID)
}

func (s *memoryStore) Append(_ context.Context, _ pgx.Tx, roomID, senderID int64, body string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	s.clock = s.clock.Add(time.Millisecond)
	msg := model.Message{ID: s.nextMsg, RoomID: roomID, SenderID: senderID, Body: body, SentAt: s.clock}
	s.messages[roomID] = append(s.messages[roomID], msg)
	if room, ok := s.rooms[roomID]; ok {
		sentAt := msg.SentAt
		room.LastMessageAt = &sentAt
		s.rooms[roomID] = room
	}
	return msg, nil
}

func (s *memoryStore) ListAfter(_ context.Context, roomID int64, after *pgrepo.MessageKey, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Message, 0, limit)
	for _, msg := range s.messages[roomID] {
		if after != nil && !(model.Message{ID: after.ID, SentAt: after.SentAt}).Before(msg) {
			continue
		}
		items = append(items, msg)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

type testApp struct {
	store     *memoryStore
	matches   *matchessvc.Service
	reactions *reactionssvc.Service
	rooms     *roomssvc.Service
}

func newTestApp(limiter reactionssvc.RateLimiter) *testApp {
	store := newMemoryStore()
	tx := &txStub{}
	matches := matchessvc.NewService(matchessvc.Dependencies{Tx: tx, Rooms: store})
	return &testApp{
		store:   store,
		matches: matches,
		reactions: reactionssvc.NewService(reactionssvc.Dependencies{
			Tx:      tx,
			Store:   store,
			Matches: matches,
			Limiter: limiter,
		}),
		rooms: roomssvc.NewService(roomssvc.Dependencies{
			Tx:       tx,
			Rooms:    store,
			Messages: store,
		}, roomssvc.Config{HistoryPageSize: 2}),
	}
}

// router mounts the room endpoints the way the API does, with the caller's identity
// taken from the X-Test-User header.
func (a *testApp) router() http.Handler {
	rooms := NewRoomsHandler(a.matches, a.rooms)
	stream := NewStreamHandler(a.rooms, time.Hour, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if raw := req.Header.Get("X-Test-User"); raw != "" {
				ctx := authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: int64(parseIntOrDefault(raw, 0))})
				req = req.WithContext(ctx)
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/rooms", rooms.List)
	r.Get("/rooms/{id}", rooms.Get)
	r.Get("/rooms/{id}/messages", rooms.Messages)
	r.Post("/rooms/{id}/messages", rooms.PostMessage)
	r.Get("/rooms/{id}/stream", stream.Stream)
	return r
}

func withUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: userID}))
}
