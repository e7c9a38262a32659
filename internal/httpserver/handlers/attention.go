package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
)

// MarkReviewed clears the sticky attention flag for one case. This is
// the only path that turns the flag off; the reconciliation engine can
// only raise it.
func MarkReviewed(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "numero")

		found, err := d.Store.MarkReviewed(r.Context(), number)
		if err != nil {
			d.Logger.Error("failed to mark case reviewed",
				logger.String("numero", number), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao atualizar despacho.")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "Processo não encontrado.")
			return
		}

		d.Logger.Info("despacho marked as reviewed", logger.String("numero", number))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Despacho marcado como revisado."})
	}
}
