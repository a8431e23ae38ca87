package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vedran77/agora/internal/auth"
	"github.com/vedran77/agora/internal/database"
	"github.com/vedran77/agora/internal/kv"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/notify"
	"github.com/vedran77/agora/internal/repository/postgres"
	"github.com/vedran77/agora/internal/scheduler"
	"github.com/vedran77/agora/internal/service"
	"github.com/vedran77/agora/internal/storage"
	"github.com/vedran77/agora/internal/supervisor"
	"github.com/vedran77/agora/internal/transport/http/handlers"
	"github.com/vedran77/agora/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket hub and notification fan-out",
	RunE:  runServe,
}

var serveMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending database migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	logging.Info().Str("host", cfg.Database.Host).Msg("connected to database")

	if serveMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	// Key-value store
	store, err := kv.Open(cfg.KV)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("closing kv store")
		}
	}()

	// Object storage
	objects, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	images := storage.NewImages(objects, cfg.Storage)

	// Repositories
	db := postgres.NewStore(pool)
	repos := db.Repos()

	// Services
	tokens := auth.NewIssuer(cfg.Auth, store)
	userService := service.NewUserService(db, repos, store, images, tokens)
	communityService := service.NewCommunityService(db, repos, images)
	notificationService := service.NewNotificationService(repos.Notifications)

	// Real-time
	hub := ws.NewHub()
	communityService.SetNotifier(ws.NewHubNotifier(hub))
	registry := notify.NewRegistry(cfg.Notifications.StreamBuffer)
	defer registry.CloseAll()
	dispatcher := notify.NewDispatcher(registry, repos.Notifications)
	fanOut := scheduler.NewFanOut(repos.Users, dispatcher, cfg.Notifications)

	// HTTP
	router := handlers.NewRouter(handlers.RouterDeps{
		Users:         handlers.NewUserHandler(userService),
		Community:     handlers.NewCommunityHandler(communityService),
		Notifications: handlers.NewNotificationHandler(notificationService, registry, cfg.Notifications.KeepAlive),
		WebSocket:     ws.ServeWS(hub, tokens, communityService, cfg.Server.CORSOrigins),
		Tokens:        tokens,
		Server:        cfg.Server,

		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Streams are long-lived; Shutdown does not wait for them.
	server.RegisterOnShutdown(registry.CloseAll)

	tree := supervisor.NewTree(logging.NewSlogLogger(), cfg.Server.ShutdownTimeout)
	tree.AddAPI(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	tree.AddWorker(supervisor.NewRunnerService("ws-hub", hub))
	tree.AddWorker(supervisor.NewRunnerService("notification-fanout", fanOut))

	logging.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Environment).Msg("starting server")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logging.Info().Msg("server stopped")
	return nil
}
