package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// TransactionsHandler serves the read-only transaction log.
type TransactionsHandler struct {
	DB *sql.DB
}

const defaultTransactionLimit = 100

// List handles GET /api/transactions?kind=&limit=.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !model.ValidTransactionKind(kind) {
		writeError(w, errInvalid("unknown transaction kind"), "parse filter")
		return
	}

	limit, err := queryInt64(r, "limit")
	if err != nil || limit < 0 {
		writeError(w, errInvalid("invalid limit"), "parse filter")
		return
	}
	if limit == 0 {
		limit = defaultTransactionLimit
	}

	transactions, err := store.ListTransactions(r.Context(), h.DB, store.TransactionFilter{
		Kind:  kind,
		Limit: int(limit),
	})
	if err != nil {
		writeError(w, err, "list transactions")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(transactions))
}
