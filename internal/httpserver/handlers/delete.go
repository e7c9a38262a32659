package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
	redisstore "github.com/andamento/andamento/internal/store/redis"
)

type deleteCasesRequest struct {
	Numbers []string `json:"numeros"`
}

type deleteCasesResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deletados"`
}

// DeleteCases removes whole case documents by number.
func DeleteCases(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteCasesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Numbers == nil {
			writeError(w, http.StatusBadRequest, "Lista de números inválida.")
			return
		}

		deleted, err := d.Store.DeleteByNumbers(r.Context(), req.Numbers)
		if err != nil {
			d.Logger.Error("failed to delete cases", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao excluir processos.")
			return
		}

		writeJSON(w, http.StatusOK, deleteCasesResponse{
			Message: "Processos excluídos com sucesso.",
			Deleted: deleted,
		})
	}
}

type historyEntryRef struct {
	Number    string    `json:"numero"`
	Timestamp time.Time `json:"data"`
}

type deleteHistoryRequest struct {
	Entries []historyEntryRef `json:"entradas"`
}

type deleteHistoryResponse struct {
	Message  string `json:"message"`
	Modified int64  `json:"modificadas"`
}

// DeleteHistory removes individual history entries, addressed by case
// number plus entry timestamp.
func DeleteHistory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteHistoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Entries == nil {
			writeError(w, http.StatusBadRequest, "Lista de entradas inválida.")
			return
		}

		refs := make([]redisstore.HistoryRef, 0, len(req.Entries))
		for _, e := range req.Entries {
			refs = append(refs, redisstore.HistoryRef{Number: e.Number, Timestamp: e.Timestamp})
		}

		modified, err := d.Store.DeleteHistoryEntries(r.Context(), refs)
		if err != nil {
			d.Logger.Error("failed to delete history entries", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao excluir entradas do histórico.")
			return
		}

		writeJSON(w, http.StatusOK, deleteHistoryResponse{
			Message:  "Entradas do histórico excluídas com sucesso.",
			Modified: modified,
		})
	}
}
