package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dangerclosesec/huddle"
	"github.com/dangerclosesec/huddle/internal/auth"
	"github.com/dangerclosesec/huddle/internal/cache"
	"github.com/dangerclosesec/huddle/internal/config"
	"github.com/dangerclosesec/huddle/internal/email"
	"github.com/dangerclosesec/huddle/internal/email/mailer"
	"github.com/dangerclosesec/huddle/internal/handler"
	"github.com/dangerclosesec/huddle/internal/middleware"
	"github.com/dangerclosesec/huddle/internal/permission"
	"github.com/dangerclosesec/huddle/internal/realtime"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/dangerclosesec/huddle/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var autoMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Run schema migrations before serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and realtime server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	logger := slog.Default()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := setupDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}
	if autoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
	}

	// Realtime fan-out and ticket storage use Redis when configured so that
	// several API instances can share rooms.
	hub := realtime.NewHub()
	go hub.Run(ctx)

	var (
		publisher realtime.Publisher = hub
		store     cache.Store
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}

		relay := realtime.NewRedisRelay(client, cfg.Redis.Channel, hub)
		if err := relay.Start(ctx); err != nil {
			return err
		}
		publisher = relay
		store = cache.NewRedisStore(client, "huddle:")
		logger.Info("realtime relay enabled", "channel", cfg.Redis.Channel)
	} else {
		memory := cache.NewInMemoryCache(cfg.Realtime.TicketTTL, time.Minute)
		memory.StartCleanup(ctx)
		store = memory
	}

	emailService, err := email.NewEmailService(cfg, email.Provider(cfg.Mail.Provider), huddle.EmailFS)
	if err != nil {
		return fmt.Errorf("setting up email: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	postRepo := repository.NewPostRepository(db)

	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	checker := permission.NewChecker(teamRepo, topicRepo, discussionRepo, postRepo, auditLogService)
	auditLogService.SetChecker(checker)

	// Services
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod)
	cacheService := service.NewCacheService(store, cfg.Realtime.TicketTTL)
	userService := service.NewUserService(userRepo)
	teamService := service.NewTeamService(teamRepo, userRepo, checker, auditLogService)
	topicService := service.NewTopicService(topicRepo, checker, auditLogService)
	discussionService := service.NewDiscussionService(discussionRepo, checker, auditLogService)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db))
	postService := service.NewPostService(postRepo, checker, notificationService, auditLogService)
	invitationService := service.NewInvitationService(
		repository.NewInvitationRepository(db),
		teamRepo,
		userRepo,
		checker,
		mailer.NewInvitationMailer(emailService),
		auditLogService,
		cfg.BaseURL,
		cfg.Invitation.TTL,
	)

	// Handlers
	events := handler.NewEvents(publisher)
	handlers := &handler.Handlers{
		Users:         handler.NewUserHandler(userService),
		Teams:         handler.NewTeamHandler(teamService, invitationService, auditLogService, events),
		Invitations:   handler.NewInvitationHandler(invitationService, events),
		Topics:        handler.NewTopicHandler(topicService, events),
		Discussions:   handler.NewDiscussionHandler(discussionService, events),
		Posts:         handler.NewPostHandler(postService, events),
		Notifications: handler.NewNotificationHandler(notificationService),
		Realtime: handler.NewRealtimeHandler(
			hub,
			handler.NewRoomAuthorizer(checker),
			cacheService,
			tokenManager,
			cfg.Realtime.SendQueueSize,
		),
	}

	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.SocketIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)
	handlers.Mount(r, tokenManager, 30*time.Second)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("shutdown started", "signal", sig)

		// Give outstanding requests a deadline for completion
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		if err := <-serverErrors; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("shutdown complete")
	}

	return nil
}
