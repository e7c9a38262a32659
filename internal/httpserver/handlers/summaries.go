package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
)

// ListSummaries returns the notes stored for one case; a case with no
// notes yields an empty array, an unknown case a 404.
func ListSummaries(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "numero")

		summaries, found, err := d.Store.Summaries(r.Context(), number)
		if err != nil {
			d.Logger.Error("failed to load summaries",
				logger.String("numero", number), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao buscar resumos.")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "Processo não encontrado.")
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

type addSummaryRequest struct {
	Text   string `json:"texto"`
	Author string `json:"assistente"`
}

// AddSummary appends one note to a case.
func AddSummary(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "numero")

		var req addSummaryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido.")
			return
		}

		summary := domain.Summary{
			Text:      req.Text,
			Author:    req.Author,
			Timestamp: d.TimeNow(),
		}
		if err := d.Store.AppendSummary(r.Context(), number, summary); err != nil {
			d.Logger.Error("failed to append summary",
				logger.String("numero", number), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao salvar resumo.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "Resumo salvo com sucesso."})
	}
}
