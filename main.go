package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/api"
	"github.com/groupdesk/groupdesk-be/internal/config"
	"github.com/groupdesk/groupdesk-be/internal/database"
	"github.com/groupdesk/groupdesk-be/internal/logger"
	"github.com/groupdesk/groupdesk-be/internal/mail"
	"github.com/groupdesk/groupdesk-be/internal/monitoring"
	"github.com/groupdesk/groupdesk-be/internal/services"
	"github.com/groupdesk/groupdesk-be/internal/storage"
	"github.com/groupdesk/groupdesk-be/internal/tagging"
	"github.com/groupdesk/groupdesk-be/internal/tokenstore"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Token stores. Sessions can live in Redis; reset tokens always stay in
	// sqlite so the single-use claim is a conditional update.
	var sessionStore tokenstore.SessionStore = tokenstore.NewSQLiteSessionStore(db)
	if cfg.RedisAddr != "" {
		redisStore, err := tokenstore.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis session store")
		}
		defer redisStore.Close()
		sessionStore = redisStore
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis session store")
	}
	resetStore := tokenstore.NewSQLiteResetTokenStore(db)

	// Blob storage for attachments
	blobs, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize blob storage")
	}

	// Outbound mail
	var mailer mail.Mailer = mail.NoopMailer{}
	if cfg.SendGridAPIKey != "" {
		mailer = mail.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
	}

	// Tag suggestions
	tagger := tagging.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TagModel)

	// Set up WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	sessionService := services.NewSessionService(sessionStore, userService, eventService)
	resetService := services.NewPasswordResetService(resetStore, userService, eventService)
	groupService := services.NewGroupService(db)
	questionService := services.NewQuestionService(db, tagger, blobs, hub, eventService)
	commentService := services.NewCommentService(db, questionService, userService, mailer, hub, eventService)
	attachmentService := services.NewAttachmentService(db, blobs, questionService)

	if err := userService.SeedAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin user")
	}

	// Set up and run the background token sweeper
	sweeper, err := monitoring.NewSweeper(sessionStore, resetStore, cfg.SweepSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid sweep schedule")
	}
	go sweeper.Run()

	// Set up router
	router := api.NewRouter(cfg, api.Services{
		Sessions:    sessionService,
		Resets:      resetService,
		Users:       userService,
		Groups:      groupService,
		Questions:   questionService,
		Comments:    commentService,
		Attachments: attachmentService,
		Events:      eventService,
		Mailer:      mailer,
		Hub:         hub,
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
