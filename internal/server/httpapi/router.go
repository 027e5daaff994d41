// Package httpapi exposes the case store over HTTP: JSON CRUD, token
// auth, and the SSE change feed the clients subscribe to.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dverbovs/casekeeper/internal/logging"
	"github.com/dverbovs/casekeeper/internal/server/config"
	"github.com/dverbovs/casekeeper/internal/server/feed"
	"github.com/dverbovs/casekeeper/internal/server/services"
)

type Server struct {
	users  *services.UserService
	cases  *services.CaseService
	hub    *feed.Hub
	secret []byte
	log    logging.Logger
}

func NewServer(users *services.UserService, cases *services.CaseService, hub *feed.Hub, cfg *config.Config, log logging.Logger) *Server {
	return &Server{
		users:  users,
		cases:  cases,
		hub:    hub,
		secret: []byte(cfg.SecretKey),
		log:    log,
	}
}

// Router builds the chi routing tree. Auth endpoints are public; the
// case and report surface sits behind the bearer-token middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/cases", s.handleListCases)
			r.Post("/cases", s.handleCreateCase)
			r.Get("/cases/feed", s.handleFeed)
			r.Put("/cases/{id}", s.handleUpdateCase)
			r.Delete("/cases/{id}", s.handleDeleteCase)
			r.Get("/cases/{id}/reports", s.handleListReports)
			r.Post("/cases/{id}/reports", s.handleCreateReport)
			r.Post("/reports/presign", s.handlePresign)
		})
	})

	return r
}
