package main

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tenant-notes/handlers"
	appmw "tenant-notes/middleware"
	"tenant-notes/models"
	"tenant-notes/token"
)

func newRouter(h *handlers.Handler, tokens *token.Service, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appmw.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(appmw.CORS)

	r.Get("/health", handlers.Health)
	r.Post("/api/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(appmw.RequireAuth(tokens, log))
		r.Get("/api/notes", h.ListNotes)
		r.Post("/api/notes", h.CreateNote)
		r.Get("/api/notes/{id}", h.GetNote)
		r.Put("/api/notes/{id}", h.UpdateNote)
		r.Delete("/api/notes/{id}", h.DeleteNote)

		r.With(appmw.RequireRole(models.RoleAdmin)).Post("/api/tenants/{slug}/upgrade", h.UpgradeTenant)
	})

	return r
}
