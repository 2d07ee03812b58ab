package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"relaychat/internal/config"
	"relaychat/internal/database"
	"relaychat/internal/handlers"
	"relaychat/internal/logger"
	"relaychat/internal/media"
	"relaychat/internal/middleware"
	"relaychat/internal/services"
	ws "relaychat/internal/websocket"
	"relaychat/pkg/auth"
)

type Server struct {
	Router *gin.Engine
	DB     *database.Database
	Hub    *ws.Hub
	Log    zerolog.Logger
}

func NewServer(cfg *config.Config) (*Server, error) {
	log := logger.New(cfg.Development)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	sessions := auth.NewSessionManager(db, cfg.SessionTTL)
	directory := services.NewDirectory(db, log)
	ledger := services.NewLedger(db, log)
	hub := ws.NewHub(log)

	mediaStore, err := media.NewStore(cfg.UploadDir, cfg.UploadBasePath, log)
	if err != nil {
		return nil, err
	}

	// Rate limiting on the credential endpoints only runs when redis is
	// configured; everything else works without it.
	var limiter *middleware.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		limiter = middleware.NewRateLimiter(rdb, "ratelimit:auth", 20, time.Minute)
	}

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	APIEndpoints(router, &Deps{
		Auth:         handlers.NewAuthHandler(db, sessions, log),
		User:         handlers.NewUserHandler(db, log),
		Conversation: handlers.NewConversationHandler(directory, log),
		Message:      handlers.NewMessageHandler(ledger, log),
		Upload:       handlers.NewUploadHandler(mediaStore, log),
		WS:           handlers.NewWebSocketHandler(hub, log),
		Sessions:     sessions,
		Limiter:      limiter,
		UploadsDir:   mediaStore.Dir(),
		UploadsPath:  cfg.UploadBasePath,
	})

	return &Server{
		Router: router,
		DB:     db,
		Hub:    hub,
		Log:    log,
	}, nil
}

func (s *Server) Run(port string) error {
	go s.Hub.Run()
	defer s.Hub.Stop()

	s.Log.Info().Str("port", port).Msg("server starting")
	return s.Router.Run(":" + port)
}
