package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "chatbox/web/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	httpSwagger "github.com/swaggo/http-swagger"

	"chatbox/web/internal/interfaces"
)

// RouterOptions carries the deployment settings the router needs.
type RouterOptions struct {
	AllowedOrigins []string
	SendRateLimit  float64
	SendRateBurst  int
	StaticDir      string
	SecureCookies  bool
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Chat    *ChatHandler
	Archive *ArchiveHandler
	Auth    *AuthHandler
}

// NewHandlers builds every handler with its defaults.
func NewHandlers() Handlers {
	return Handlers{
		Chat:    NewChatHandler(),
		Archive: NewArchiveHandler(),
		Auth:    NewAuthHandler(),
	}
}

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(provider interfaces.WorkspaceProvider, h Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	limiter := newSendLimiter(opts.SendRateLimit, opts.SendRateBurst)

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sessionMiddleware(provider, opts.SecureCookies))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/state", h.Chat.GetState)
			r.Post("/stop", h.Chat.HandleStop)
			r.Post("/edit", h.Chat.HandleStartEdit)
			r.Put("/edit", h.Chat.HandleUpdateEdit)
			r.Delete("/edit", h.Chat.HandleCancelEdit)

			// --- Chats ---
			r.Get("/chats", h.Chat.GetChats)
			r.Post("/chats/new", h.Chat.HandleNewChat)
			r.Post("/chats/{chatID}/open", h.Chat.HandleOpenChat)
			r.Post("/chats/{chatID}/archive", h.Archive.HandleArchiveChat)
			r.Delete("/chats/{chatID}", h.Archive.HandleDeleteChat)

			// --- Archive ---
			r.Get("/archive", h.Archive.GetArchived)
			r.Post("/archive/unarchive", h.Archive.HandleUnarchiveMany)
			r.Post("/archive/delete", h.Archive.HandleDeleteMany)
			r.Post("/archive/{chatID}/unarchive", h.Archive.HandleUnarchiveChat)

			// --- Export ---
			r.Get("/export", h.Chat.HandleExportCurrent)
			r.Get("/chats/{chatID}/export", h.Chat.HandleExportChat)

			// --- Auth ---
			r.Get("/auth/session", h.Auth.GetSession)
			r.Post("/auth/login", h.Auth.HandleLogin)
			r.Post("/auth/signup", h.Auth.HandleSignup)
			r.Post("/auth/logout", h.Auth.HandleLogout)
		})

		// Sending is rate limited per session. With ?wait=true it blocks until
		// the backend client's own timeout, so it has no router timeout.
		r.Group(func(r chi.Router) {
			r.Use(limiter.middleware)

			r.Post("/messages", h.Chat.HandleSubmit)
			r.Post("/edit/resend", h.Chat.HandleResendEdit)
		})
	})

	// --- Frontend File Server ---
	if opts.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(opts.StaticDir))
		r.Handle("/*", http.StripPrefix("/", fileServer))
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Requested-With"}),
	)
	return handlers.CompressHandler(cors(r))
}
