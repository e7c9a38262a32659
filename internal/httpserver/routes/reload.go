package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/httpserver/handlers"
)

func init() { Register(registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	// No keywords file configured: nothing to reload.
	if d.ReloadTrigger == nil {
		return
	}
	r.Post("/reload", handlers.Reload(d))
}
