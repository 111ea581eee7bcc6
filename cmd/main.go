package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskyapp/tasky-backend/internal/api/chats"
	"github.com/taskyapp/tasky-backend/internal/api/tasks"
	"github.com/taskyapp/tasky-backend/internal/api/users"
	"github.com/taskyapp/tasky-backend/internal/chat"
	"github.com/taskyapp/tasky-backend/internal/config"
	"github.com/taskyapp/tasky-backend/internal/middleware"
	"github.com/taskyapp/tasky-backend/internal/storage"
	"github.com/taskyapp/tasky-backend/internal/storage/memory"
	"github.com/taskyapp/tasky-backend/internal/storage/postgres"
	"github.com/taskyapp/tasky-backend/internal/storage/valkeystore"
	"github.com/taskyapp/tasky-backend/internal/ws"
	"github.com/taskyapp/tasky-backend/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)
	log := logger.L()

	var (
		threadStore  storage.ThreadStore
		messageStore storage.MessageStore
		ckptStore    storage.CheckpointStore
		userStore    storage.UserStore
		taskStore    storage.TaskStore
	)

	if cfg.DatabaseURL != "" {
		pg, err := postgres.NewChatStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to postgres")
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ensure chat schema")
		}
		pgUsers := postgres.NewUserStore(pg)
		if err := pgUsers.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ensure users schema")
		}
		pgTasks := postgres.NewTaskStore(pg)
		if err := pgTasks.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ensure tasks schema")
		}
		threadStore, messageStore, ckptStore, userStore, taskStore = pg, pg, pg, pgUsers, pgTasks
		log.Info().Msg("using postgres storage")
	} else {
		mem := memory.NewChatStore()
		threadStore, messageStore, ckptStore = mem, mem, mem
		userStore = memory.NewUserStore()
		taskStore = memory.NewTaskStore()
		log.Info().Msg("using in-memory storage")
	}

	if cfg.ValkeyAddr != "" {
		vk, err := valkeystore.New(cfg.ValkeyAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to valkey")
		}
		defer vk.Close()
		ckptStore = vk
		log.Info().Str("addr", cfg.ValkeyAddr).Msg("using valkey checkpoints")
	}

	broker := chat.NewBroker(messageStore)
	service := chat.NewService(threadStore, messageStore, ckptStore, broker, log)
	resolver := chat.NewThreadResolver(threadStore, ckptStore, log)

	hub := ws.NewHub()
	go hub.Run()

	authMw := middleware.Auth([]byte(cfg.JWTSecret))

	r := mux.NewRouter()
	users.RegisterRoutes(r, &users.Handler{
		Store:  userStore,
		Secret: []byte(cfg.JWTSecret),
		Log:    log,
	}, authMw)
	tasks.RegisterRoutes(r, &tasks.Handler{
		Store: taskStore,
		Log:   log,
	}, authMw)
	chats.RegisterRoutes(r, &chats.Handler{
		Resolver:      resolver,
		Service:       service,
		Users:         userStore,
		Hub:           hub,
		Log:           log,
		PageSize:      cfg.FeedPageSize,
		AllowedOrigin: cfg.AllowedOrigin,
	}, authMw)

	handler := middleware.CORS(cfg.AllowedOrigin)(r)

	log.Info().Str("addr", cfg.Addr).Msg("server started")
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
