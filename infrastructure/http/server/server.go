// Package server exposes the REST API, the chat page and the chat socket.
package server

import (
	"embed"
	"geochat/auth"
	"geochat/contract"
	"geochat/services"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const SocketPath = "/ws/chat/"

//go:embed templates/*.html
var templatesFolder embed.FS

var chatPage = template.Must(template.ParseFS(templatesFolder, "templates/chat.html"))

type Server struct {
	log            *slog.Logger
	authService    services.IAuthService
	userService    services.IUserService
	chatService    services.IChatService
	tokens         *auth.TokenIssuer
	registry       contract.IRegistry
	socket         http.Handler
	requestTimeout time.Duration
}

func New(
	log *slog.Logger,
	authService services.IAuthService,
	userService services.IUserService,
	chatService services.IChatService,
	tokens *auth.TokenIssuer,
	registry contract.IRegistry,
	socket http.Handler,
	requestTimeout time.Duration) *Server {
	return &Server{
		log:            log,
		authService:    authService,
		userService:    userService,
		chatService:    chatService,
		tokens:         tokens,
		registry:       registry,
		socket:         socket,
		requestTimeout: requestTimeout,
	}
}

// Router mounts every route. The socket route stays out of the request timeout.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.Health)
	r.Get("/chat/", s.ChatPage)
	r.Get("/api/chat/", s.ChatPage)
	r.Handle(SocketPath, s.socket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout))

		r.Post("/register/", s.Register)
		r.Post("/verify-otp/", s.VerifyOTP)
		r.Post("/login/", s.Login)
		r.Post("/token/refresh/", s.RefreshToken)
		r.Get("/chat/messages/", s.ChatMessages)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.tokens))
			r.Get("/verified-users/", s.VerifiedUsers)
			r.Patch("/profile/update/", s.UpdateProfile)
			r.Get("/nearby-users/", s.NearbyUsers)

			r.With(RequireStaff).Post("/admin/messages/", s.PostAdminMessage)
		})
	})
	return r
}
