package contacts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/status"
	_ "github.com/fungus-mycelium/fungus-admin/testing"
)

func newTestService(t *testing.T, dir Directory, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.NewClient(api.Options{BaseURL: srv.URL, Credentials: shared.NewCredentials()})
	return NewService(client, dir, time.Minute)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestDetailLoadsEverything(t *testing.T) {
	svc := newTestService(t, Clients, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clients/c1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "c1", "name": "Hongos del Sur"}})
		case "/clients/c1/metrics":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"transactionCount": 4, "totalAmount": 1000.5}})
		case "/clients/c1/transactions":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
				{"_id": "q1", "type": "quotation", "number": "COT-1", "status": "approved", "total": 10},
			}})
		default:
			http.NotFound(w, r)
		}
	})

	d, err := svc.Detail(t.Context(), "c1", 5)
	require.NoError(t, err)
	assert.Equal(t, "Hongos del Sur", d.Contact.Name)
	require.NotNil(t, d.Metrics)
	assert.Equal(t, 4, d.Metrics.TransactionCount)
	require.Len(t, d.Transactions, 1)
	assert.Equal(t, "Cotización", d.Transactions[0].TypeLabel())
	assert.Equal(t, "/quotations/q1", d.Transactions[0].Link())
	assert.Empty(t, d.MetricsErr)
	assert.Empty(t, d.TransactionsErr)
}

func TestDetailDegradesOptionalParts(t *testing.T) {
	svc := newTestService(t, Suppliers, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/suppliers/s1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "s1", "name": "Sustratos SA"}})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "boom"})
		}
	})

	d, err := svc.Detail(t.Context(), "s1", 10)
	require.NoError(t, err)
	assert.Equal(t, "Sustratos SA", d.Contact.Name)
	assert.Nil(t, d.Metrics)
	assert.Equal(t, "No se pudieron cargar las métricas.", d.MetricsErr)
	assert.Equal(t, "No se pudieron cargar las transacciones.", d.TransactionsErr)
}

func TestDetailFailsWithoutContact(t *testing.T) {
	svc := newTestService(t, Clients, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clients/missing" {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Cliente no encontrado"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	})

	_, err := svc.Detail(t.Context(), "missing", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestDetailPropagatesExpiredSession(t *testing.T) {
	svc := newTestService(t, Clients, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clients/c1/metrics" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "c1"}})
	})

	_, err := svc.Detail(t.Context(), "c1", 10)
	assert.True(t, api.IsUnauthorized(err))
}

func TestListQueryKeepsRowsOnFailure(t *testing.T) {
	var fail atomic.Bool
	svc := newTestService(t, Clients, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       []map[string]any{{"_id": "c1", "name": "Ana"}},
			"pagination": map[string]any{"total": 1, "page": 1, "limit": 10, "totalPages": 1},
		})
	})

	q := svc.Query("s")
	state, err := q.Refresh(t.Context())
	require.NoError(t, err)
	require.Len(t, state.Rows, 1)

	fail.Store(true)
	state, err = q.Refresh(t.Context())
	require.Error(t, err)
	assert.Len(t, state.Rows, 1)
	assert.Equal(t, "No se pudieron cargar los clientes.", state.Err)
}

func TestTransactionStatusLabel(t *testing.T) {
	tx := Transaction{Type: "sale", Status: status.Status("unknown-state")}
	assert.Equal(t, "unknown-state", tx.StatusLabel())
	tx = Transaction{Type: "other", Status: "x"}
	assert.Equal(t, "x", tx.StatusLabel())
	assert.Empty(t, tx.Link())
}
