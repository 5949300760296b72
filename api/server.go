package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router exposing h's four REST endpoints under
// the production-shaped "v1/projects/{project}/databases/{database}/
// documents:<method>" paths (§6), with the same Logger/Recoverer/
// RequestID/CORS middleware stack the teacher's server.go assembles.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Debug-Auth-Uid"},
		AllowCredentials: false,
	}))

	r.Route("/v1/projects/{project}/databases/{database}", func(r chi.Router) {
		r.Post("/documents:batchGet", h.BatchGet)
		r.Post("/documents:commit", h.Commit)
		r.Post("/documents:beginTransaction", h.BeginTransaction)
		r.Post("/documents:rollback", h.Rollback)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
