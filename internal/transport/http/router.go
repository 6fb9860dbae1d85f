package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the contest API and the leaderboard stream.
func NewRouter(h *Handler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api/rounds", func(r chi.Router) {
		r.Get("/current", h.CurrentRound)
		r.Route("/{roundID}", func(r chi.Router) {
			r.Get("/questions", h.Questions)
			r.Post("/submissions", h.Submit)
			r.Get("/leaderboard", h.Leaderboard)
		})
	})

	r.Get("/ws/rounds/{roundID}/leaderboard", ws.ServeWS)
	return r
}
