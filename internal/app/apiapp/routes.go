package apiapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	feedsvc "github.com/zelkovascum/Photudio/internal/services/feed"
	matchessvc "github.com/zelkovascum/Photudio/internal/services/matches"
	reactionssvc "github.com/zelkovascum/Photudio/internal/services/reactions"
	roomssvc "github.com/zelkovascum/Photudio/internal/services/rooms"
	"github.com/zelkovascum/Photudio/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	FeedService      *feedsvc.Service
	ReactionsService *reactionssvc.Service
	MatchService     *matchessvc.Service
	RoomsService     *roomssvc.Service
	StreamLimiter    *StreamLimiter
	Postgres         handlers.Pinger
	Redis            handlers.Pinger
	Metrics          http.Handler
	RequestTimeout   time.Duration
	Heartbeat        time.Duration
	Logger           *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Postgres, deps.Redis)
	feedHandler := handlers.NewFeedHandler(deps.FeedService)
	reactionsHandler := handlers.NewReactionsHandler(deps.ReactionsService)
	roomsHandler := handlers.NewRoomsHandler(deps.MatchService, deps.RoomsService)
	streamHandler := handlers.NewStreamHandler(deps.RoomsService, deps.Heartbeat, deps.Logger)

	requestTimeout := deps.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r.Get("/healthz", healthHandler.Get)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.AuthService, deps.Logger))

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Get("/feed", feedHandler.Get)
			r.Post("/posts", feedHandler.CreatePost)

			r.Post("/reactions", reactionsHandler.React)
			r.Get("/reactions/incoming", reactionsHandler.Incoming)
			r.Get("/reactions/status", reactionsHandler.Status)

			r.Get("/rooms", roomsHandler.List)
			r.Get("/rooms/{id}", roomsHandler.Get)
			r.Get("/rooms/{id}/messages", roomsHandler.Messages)
			r.Post("/rooms/{id}/messages", roomsHandler.PostMessage)
		})

		r.Group(func(r chi.Router) {
			if deps.StreamLimiter != nil {
				r.Use(deps.StreamLimiter.Middleware)
			}
			r.Get("/rooms/{id}/stream", streamHandler.Stream)
		})
	})
}
