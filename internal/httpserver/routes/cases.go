package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/httpserver/handlers"
	"github.com/andamento/andamento/internal/httpserver/mw"
)

func init() { Register(registerCases) }

func registerCases(r chi.Router, d deps.Deps) {
	r.Route("/processos", func(r chi.Router) {
		r.Get("/", handlers.ListCases(d))
		r.Get("/numeros", handlers.PendingNumbers(d))

		r.With(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.IntakeBurst,
			RefillPerIPPerMin: d.IntakeRefillPerMin,
			TrustProxy:        d.TrustProxy,
		})).Post("/atualizar", handlers.UpdateCases(d))

		r.Post("/excluir-multiplos", handlers.DeleteCases(d))
		r.Post("/excluir-historico-multiplos", handlers.DeleteHistory(d))

		r.Get("/{numero}/resumos", handlers.ListSummaries(d))
		r.Post("/{numero}/resumos", handlers.AddSummary(d))
		r.Post("/{numero}/despacho-visto", handlers.MarkReviewed(d))
	})
}
