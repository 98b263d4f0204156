package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/groupdesk/groupdesk-be/internal/api/handlers"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/config"
	"github.com/groupdesk/groupdesk-be/internal/mail"
	"github.com/groupdesk/groupdesk-be/internal/services"
	ws "github.com/groupdesk/groupdesk-be/internal/websocket"
)

// Services bundles everything the router needs.
type Services struct {
	Sessions    services.SessionServiceProvider
	Resets      services.PasswordResetServiceProvider
	Users       services.UserServiceProvider
	Groups      services.GroupServiceProvider
	Questions   services.QuestionServiceProvider
	Comments    services.CommentServiceProvider
	Attachments services.AttachmentServiceProvider
	Events      services.EventServiceProvider
	Mailer      mail.Mailer
	Hub         *ws.Hub
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Sessions, svc.Resets, svc.Mailer, cfg.AppBaseURL, cfg.IsProduction())
	questionHandler := handlers.NewQuestionHandler(svc.Questions)
	commentHandler := handlers.NewCommentHandler(svc.Comments)
	attachmentHandler := handlers.NewAttachmentHandler(svc.Attachments)
	userHandler := handlers.NewUserHandler(svc.Users)
	groupHandler := handlers.NewGroupHandler(svc.Groups)
	eventHandler := handlers.NewEventHandler(svc.Events)
	statusHandler := handlers.NewStatusHandler()
	wsHandler := handlers.NewWebSocketHandler(svc.Hub)

	sessionGate := auth.SessionMiddleware(svc.Sessions)

	r.Route("/api/v1", func(r chi.Router) {
		// Public authentication and password-reset endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/request-password-reset", authHandler.RequestPasswordReset)
			r.Get("/validate-reset-token", authHandler.ValidateResetToken)
			r.Post("/reset-password", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(sessionGate)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires a valid session
		r.Group(func(r chi.Router) {
			r.Use(sessionGate)

			r.Get("/ws", wsHandler.Serve)

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", questionHandler.List)
				r.Post("/", questionHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", questionHandler.Get)
					r.Put("/", questionHandler.Update)
					r.Delete("/", questionHandler.Delete)
					r.Post("/close", questionHandler.Close)

					r.Get("/comments", commentHandler.ListForQuestion)
					r.Post("/comments", commentHandler.Create)

					r.Get("/attachments", attachmentHandler.ListForQuestion)
					r.Post("/attachments", attachmentHandler.Upload)
				})
			})

			r.Route("/comments/{id}", func(r chi.Router) {
				r.Post("/accept", commentHandler.Accept)
				r.Delete("/", commentHandler.Delete)
			})

			r.Route("/attachments/{id}", func(r chi.Router) {
				r.Get("/download", attachmentHandler.Download)
				r.Delete("/", attachmentHandler.Delete)
			})

			// Admin-only management endpoints
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", userHandler.Get)
						r.Put("/", userHandler.Update)
						r.Delete("/", userHandler.Delete)
					})
				})

				r.Route("/groups", func(r chi.Router) {
					r.Get("/", groupHandler.List)
					r.Post("/", groupHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", groupHandler.Get)
						r.Put("/", groupHandler.Update)
						r.Delete("/", groupHandler.Delete)
					})
				})

				r.Get("/events", eventHandler.Recent)
				r.Get("/status", statusHandler.Get)
			})
		})
	})

	return r
}
