package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/edupanel/apiserver/config"
	"github.com/edupanel/apiserver/internal/auth"
	"github.com/edupanel/apiserver/internal/db"
	"github.com/edupanel/apiserver/internal/handlers"
	"github.com/edupanel/apiserver/internal/mq"
	"github.com/edupanel/apiserver/internal/notify"
	"github.com/edupanel/apiserver/internal/services"
	"github.com/edupanel/apiserver/internal/session"
	"github.com/edupanel/apiserver/internal/storage"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
)

// Server wraps the HTTP server and its owned dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	queue, err := newQueue(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		_ = redisClient.Close()
		return nil, err
	}

	avatars, err := newAvatarStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		_ = redisClient.Close()
		_ = queue.Close()
		return nil, err
	}

	accounts := store.NewAccountRepository(dbConn)
	extensions := store.NewExtensionRepository(dbConn)
	drafts := store.NewDraftRepository(dbConn)

	codes := auth.NewCodeStore(redisClient)
	blacklist := auth.NewBlacklist(redisClient, cfg.JWT.TokenTTL)
	notifier := notify.NewPublisher(queue, cfg.Notify.Channel)

	identityService := services.NewIdentityService(accounts, extensions, drafts, codes, blacklist, notifier)
	approvalService := services.NewApprovalService(accounts, extensions, drafts, notifier)

	sessions := session.NewTracker()
	sessions.Subscribe(func(cred *types.Credential) {
		if cred == nil {
			log.Printf("session cleared")
			return
		}
		log.Printf("session active: %s", cred.ID)
	})

	authHandler := handlers.NewAuthHandler(identityService, sessions, blacklist, cfg.JWT.Secret, cfg.JWT.TokenTTL)
	profileHandler := handlers.NewProfileHandler(identityService, avatars)
	approvalHandler := handlers.NewApprovalHandler(approvalService, identityService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/profile", func(r chi.Router) {
		handlers.ProfileRouter(r, profileHandler, authHandler.RequireAuth)
	})
	router.Route("/approvals", func(r chi.Router) {
		handlers.ApprovalRouter(r, approvalHandler, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		redis:      redisClient,
		queue:      queue,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	return s.httpServer.Close()
}

func newQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

func newAvatarStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "none":
		return nil, nil
	case "minio":
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		s := storage.NewStorage(backend)
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("minio bucket: %w", err)
		}
		return s, nil
	case "gcs":
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		s := storage.NewStorage(backend)
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("gcs bucket: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
