package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zelkovascum/Photudio/internal/config"
	"github.com/zelkovascum/Photudio/internal/infra/metrics"
	"github.com/zelkovascum/Photudio/internal/jobs/matchsync"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
	redrepo "github.com/zelkovascum/Photudio/internal/repo/redis"
	authsvc "github.com/zelkovascum/Photudio/internal/services/auth"
	feedsvc "github.com/zelkovascum/Photudio/internal/services/feed"
	geosvc "github.com/zelkovascum/Photudio/internal/services/geo"
	matchessvc "github.com/zelkovascum/Photudio/internal/services/matches"
	ratesvc "github.com/zelkovascum/Photudio/internal/services/rate"
	reactionssvc "github.com/zelkovascum/Photudio/internal/services/reactions"
	roomssvc "github.com/zelkovascum/Photudio/internal/services/rooms"
	"github.com/zelkovascum/Photudio/internal/transport/http/handlers"
)

const streamLimiterIdle = 30 * time.Minute

type App struct {
	cfg           config.Config
	logger        *zap.Logger
	server        *http.Server
	postgres      *pgxpool.Pool
	redis         *goredis.Client
	matchSync     *matchsync.Job
	streamLimiter *StreamLimiter
	httpRouter    http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, collector)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, pgrepo.PoolConfig{
		DSN:            cfg.Postgres.DSN,
		MaxConns:       cfg.Postgres.MaxConns,
		ConnectTimeout: cfg.Postgres.ConnectTimeout,
	}); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if cfg.Postgres.AutoMigrate {
			if err := pgrepo.RunMigrations(cfg.Postgres.DSN); err != nil {
				pool.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	eventBus := redrepo.NewEventBus(redisClient)

	txManager := pgrepo.NewTxManager(pool)
	postRepo := pgrepo.NewPostRepo(pool)
	reactionRepo := pgrepo.NewReactionRepo(pool)
	roomRepo := pgrepo.NewRoomRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	authService := authsvc.NewService(jwtManager)
	geoService := geosvc.NewService(cfg.Cities)
	feedService := feedsvc.NewService(postRepo, geoService, feedsvc.Config{
		DefaultLimit: cfg.Feed.DefaultLimit,
		MaxLimit:     cfg.Feed.MaxLimit,
		ScanLimit:    cfg.Feed.ScanLimit,
	})
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Tx:      txManager,
		Rooms:   roomRepo,
		Events:  eventBus,
		Metrics: collector,
		Logger:  log,
	})
	reactionsService := reactionssvc.NewService(reactionssvc.Dependencies{
		Tx:      txManager,
		Store:   reactionRepo,
		Matches: matchesService,
		Limiter: ratesvc.NewLimiter(rateRepo, "reactions", cfg.Limits.ReactionsPerMinute, cfg.Limits.ReactionsPer10Sec),
		Metrics: collector,
		Logger:  log,
	})
	roomsService := roomssvc.NewService(roomssvc.Dependencies{
		Tx:       txManager,
		Rooms:    roomRepo,
		Messages: messageRepo,
		Events:   eventBus,
		Limiter:  ratesvc.NewLimiter(rateRepo, "messages", cfg.Limits.MessagesPerMinute, cfg.Limits.MessagesPer10Sec),
		Metrics:  collector,
		Logger:   log,
	}, roomssvc.Config{
		HistoryPageSize:  cfg.Rooms.HistoryPageSize,
		HistoryMaxPage:   cfg.Rooms.HistoryMaxPage,
		MaxBodyLength:    cfg.Rooms.MaxBodyLength,
		SubscriberBuffer: cfg.Rooms.SubscriberBuffer,
	})
	streamLimiter := NewStreamLimiter(cfg.Rooms.StreamConnectRate, cfg.Rooms.StreamBurst, log)

	var matchSync *matchsync.Job
	if pool != nil {
		matchSync = matchsync.New(reactionRepo, matchesService, cfg.Jobs.MatchSyncInterval, cfg.Jobs.MatchSyncBatch, log)
	}

	var postgresPinger handlers.Pinger
	if pool != nil {
		postgresPinger = pool
	}

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		FeedService:      feedService,
		ReactionsService: reactionsService,
		MatchService:     matchesService,
		RoomsService:     roomsService,
		StreamLimiter:    streamLimiter,
		Postgres:         postgresPinger,
		Redis:            redisPinger{client: redisClient},
		Metrics:          metrics.Handler(registry),
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		Heartbeat:        cfg.Rooms.HeartbeatInterval,
		Logger:           log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:           cfg,
		logger:        log,
		server:        server,
		postgres:      pool,
		redis:         redisClient,
		matchSync:     matchSync,
		streamLimiter: streamLimiter,
		httpRouter:    r,
	}, nil
}

// Run serves HTTP and runs the background loops until ctx is done or the server stops.
func (a *App) Run(ctx context.Context) error {
	if a.matchSync != nil {
		go a.matchSync.Loop(ctx)
	}
	go a.streamLimiter.CleanupLoop(ctx, 5*time.Minute, streamLimiterIdle)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
