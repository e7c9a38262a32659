package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
)

type updateRequest struct {
	// Accepts both an array and a single bare object, matching what the
	// scraper and the manual-lookup form actually send.
	Processos json.RawMessage `json:"processos"`
}

type updateOK struct {
	Message string `json:"message"`
}

type updateValidationError struct {
	Error  string `json:"error"`
	Index  int    `json:"indice"`
	Number string `json:"numero"`
}

// UpdateCases is the intake endpoint: it runs a batch of raw updates
// through the reconciliation engine.
//
// Failure semantics are deliberately non-atomic: entries reconciled
// before a validation error stay applied and are not rolled back. The
// scraper resubmits the batch after fixing its payload.
func UpdateCases(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updates, err := decodeUpdates(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := d.Engine.ProcessBatch(r.Context(), updates); err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				d.Logger.Warn("intake batch rejected",
					logger.Int("indice", verr.Index),
					logger.String("numero", verr.Number))
				writeJSON(w, http.StatusBadRequest, updateValidationError{
					Error:  "Número do processo é obrigatório.",
					Index:  verr.Index,
					Number: verr.Number,
				})
				return
			}
			d.Logger.Error("intake batch failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao atualizar processos.")
			return
		}

		writeJSON(w, http.StatusOK, updateOK{Message: "Processos atualizados com sucesso"})
	}
}

func decodeUpdates(r *http.Request) ([]domain.RawUpdate, error) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("corpo da requisição inválido")
	}
	if len(req.Processos) == 0 {
		return nil, fmt.Errorf("campo 'processos' é obrigatório")
	}

	var updates []domain.RawUpdate
	if err := json.Unmarshal(req.Processos, &updates); err == nil {
		return updates, nil
	}

	var single domain.RawUpdate
	if err := json.Unmarshal(req.Processos, &single); err != nil {
		return nil, fmt.Errorf("campo 'processos' inválido")
	}
	return []domain.RawUpdate{single}, nil
}
