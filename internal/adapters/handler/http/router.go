package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Poll  *PollHandler
	Vote  *VoteHandler
	Auth  *AuthHandler
	User  *UserHandler
	Admin *AdminHandler
}

func NewHandler(h Handlers, authService ports.AuthService, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Authenticate(authService))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Auth.Signup)
			r.Post("/signin", h.Auth.Signin)
			r.Post("/google", h.Auth.GoogleCallback)
			r.Post("/refresh", h.Auth.Refresh)
			r.Post("/logout", h.Auth.Logout)
		})

		r.Route("/polls", func(r chi.Router) {
			r.Get("/public", h.Poll.ListPublic)
			r.Get("/public/search", h.Poll.Search)
			r.Get("/{id}", h.Poll.GetPoll)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleCreator, domain.RoleAdmin))
				r.Post("/", h.Poll.CreatePoll)
				r.Get("/my-polls", h.Poll.MyPolls)
				r.Put("/{id}/close", h.Poll.ClosePoll)
				r.Delete("/{id}", h.Poll.DeletePoll)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireRole())
				r.Post("/{id}/vote", h.Vote.VoteOnPoll)
				r.Delete("/{id}/vote", h.Vote.Unvote)
				r.Get("/{id}/my-vote", h.Vote.MyVote)
			})
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(RequireRole())
			r.Get("/profile", h.User.GetProfile)
			r.Put("/profile", h.User.UpdateProfile)
			r.Put("/change-password", h.User.ChangePassword)
			r.Get("/voting-history", h.User.VotingHistory)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))
			r.Get("/dashboard", h.Admin.Dashboard)
			r.Get("/users", h.Admin.ListUsers)
			r.Put("/users/{id}/role", h.Admin.UpdateRole)
			r.Delete("/users/{id}", h.Admin.DeleteUser)
			r.Get("/polls", h.Admin.ListPolls)
			r.Get("/polls/{id}", h.Poll.GetPoll)
			r.Put("/polls/{id}/close", h.Poll.ClosePoll)
			r.Delete("/polls/{id}", h.Poll.DeletePoll)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return otelhttp.NewHandler(c.Handler(r), "poll-api")
}
