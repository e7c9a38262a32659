package handlers

import (
	"net/http"
	"sort"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
)

// ListCases returns every tracked case. History and summaries are always
// arrays on the wire, never null, so the front end can iterate blindly.
func ListCases(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cases, err := d.Store.ListAll(r.Context())
		if err != nil {
			d.Logger.Error("failed to list cases", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao buscar processos.")
			return
		}

		// Set membership comes back in arbitrary order.
		sort.Slice(cases, func(i, j int) bool { return cases[i].Number < cases[j].Number })

		for _, c := range cases {
			if c.History == nil {
				c.History = []domain.HistoryEntry{}
			}
			if c.Summaries == nil {
				c.Summaries = []domain.Summary{}
			}
		}
		writeJSON(w, http.StatusOK, cases)
	}
}

type numberItem struct {
	Number string `json:"numero"`
}

// PendingNumbers returns the numbers of cases still in progress. The
// external scraper polls this as its work queue.
func PendingNumbers(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		numbers, err := d.Store.ListPendingNumbers(r.Context())
		if err != nil {
			d.Logger.Error("failed to list pending numbers", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Erro ao buscar processos.")
			return
		}

		sort.Strings(numbers)
		items := make([]numberItem, 0, len(numbers))
		for _, n := range numbers {
			items = append(items, numberItem{Number: n})
		}
		writeJSON(w, http.StatusOK, items)
	}
}
