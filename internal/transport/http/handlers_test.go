package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopdata/internal/loader"
	"github.com/Skotchmaster/shopdata/internal/logging"
	"github.com/Skotchmaster/shopdata/internal/store"
)

type testEnv struct {
	Store *store.Store
	Echo  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.CreateSchema(ctx))

	require.NoError(t, st.DB.Exec(
		"INSERT INTO customers (customer_id, name, email, signup_date, country, is_premium) VALUES ('c1', 'Ann', 'ann@example.com', '2024-01-01T00:00:00', 'UK', 1)",
	).Error)
	require.NoError(t, st.DB.Exec(
		"INSERT INTO products (product_id, sku, name, category, price, cost, created_at) VALUES (1, 'SKU-00001-A-0001', 'Lamp', 'home', 25, 10, '2023-01-01T00:00:00')",
	).Error)
	require.NoError(t, st.DB.Exec(
		"INSERT INTO orders (order_id, customer_id, order_date, status, total_amount, shipping_country) VALUES (1, 'c1', '2024-02-01T00:00:00', 'paid', 99.99, 'UK')",
	).Error)
	require.NoError(t, st.DB.Exec(
		"INSERT INTO order_items (order_item_id, order_id, product_id, quantity, unit_price) VALUES (1, 1, 1, 2, 25)",
	).Error)

	e := New(&Deps{
		Store:  st,
		Report: &ReportHandler{DB: st.DB},
		Query:  &QueryHandler{DB: st.DB},
	}, logging.Discard())
	return &testEnv{Store: st, Echo: e}
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "").Code)
}

func TestGetReport_CountsWithoutFixing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/report", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report loader.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Totals.Found)
	assert.Zero(t, report.Totals.Fixed)

	var total float64
	require.NoError(t, env.Store.DB.Raw("SELECT total_amount FROM orders WHERE order_id = 1").Scan(&total).Error)
	assert.InDelta(t, 99.99, total, 1e-9)
}

func TestGetReport_Text(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/report?format=text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "=== Integrity Report ===")
	assert.Contains(t, rec.Body.String(), "Found 1 mismatches")
}

func TestRunBatch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/query", "SELECT name FROM customers;\nSELECT * FROM nope;")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Query 1")
	assert.Contains(t, body, "Ann")
	assert.Contains(t, body, "Error executing query 2:")
}

func TestRunBatch_RolledBack(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/query", "DELETE FROM order_items;")
	require.Equal(t, http.StatusOK, rec.Code)

	var n int64
	require.NoError(t, env.Store.DB.Raw("SELECT COUNT(*) FROM order_items").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRunBatch_Empty(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/query", "  \n").Code)
}
