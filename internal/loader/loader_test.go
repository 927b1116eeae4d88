package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopdata/internal/dataset"
	"github.com/Skotchmaster/shopdata/internal/generator"
	"github.com/Skotchmaster/shopdata/internal/logging"
	"github.com/Skotchmaster/shopdata/internal/models"
	"github.com/Skotchmaster/shopdata/internal/store"
)

const (
	customersCSV = "customer_id,name,email,signup_date,country,is_premium\n" +
		"c1,Ann Lee,ann.lee@example.com,2024-01-01T00:00:00,UK,true\n"
	productsCSV = "product_id,sku,name,category,price,cost,created_at\n" +
		"1,SKU-00001-A-0001,Lamp,home,25.00,10.00,2023-05-01T00:00:00\n"
	ordersCSV = "order_id,customer_id,order_date,status,total_amount,shipping_country\n" +
		"1,c1,2024-02-01T10:00:00,paid,99.99,UK\n"
	itemsCSV = "order_item_id,order_id,product_id,quantity,unit_price\n" +
		"1,1,1,2,25.00\n"
	reviewsCSV = "review_id,product_id,customer_id,rating,review_text,created_at\n" +
		"1,1,c1,5,Great lamp,2024-03-01T00:00:00\n"
)

func newLoader(t *testing.T) *Loader {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.CreateSchema(ctx))
	require.NoError(t, st.SetForeignKeys(ctx, false))
	return &Loader{Store: st, Log: logging.Discard()}
}

func table(t *testing.T, name string) store.Table {
	t.Helper()
	tbl, ok := store.TableByName(name)
	require.True(t, ok)
	return tbl
}

func load(t *testing.T, l *Loader, name, body string) {
	t.Helper()
	_, err := l.LoadTable(context.Background(), table(t, name), strings.NewReader(body), name)
	require.NoError(t, err)
}

func rowCount(t *testing.T, l *Loader, name string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, l.Store.DB.Raw("SELECT COUNT(*) FROM "+name).Scan(&n).Error)
	return n
}

func writeInputs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, dataset.FileName(name)), []byte(body), 0o644))
	}
}

func allInputs() map[string]string {
	return map[string]string{
		models.TableCustomers:  customersCSV,
		models.TableProducts:   productsCSV,
		models.TableOrders:     ordersCSV,
		models.TableOrderItems: itemsCSV,
		models.TableReviews:    reviewsCSV,
	}
}

func TestLoadTable_MissingColumnPersistsNothing(t *testing.T) {
	l := newLoader(t)
	body := "order_id,customer_id,order_date,status,total_amount\n" +
		"1,c1,2024-02-01T10:00:00,paid,99.99\n"

	n, err := l.LoadTable(context.Background(), table(t, models.TableOrders), strings.NewReader(body), "orders.csv")
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "shipping_country")
	assert.Zero(t, n)
	assert.Zero(t, rowCount(t, l, models.TableOrders))
}

func TestLoadTable_ExtraColumnRejected(t *testing.T) {
	l := newLoader(t)
	body := "order_item_id,order_id,product_id,quantity,unit_price,discount\n1,1,1,2,25.00,0\n"

	_, err := l.LoadTable(context.Background(), table(t, models.TableOrderItems), strings.NewReader(body), "x")
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "discount")
}

func TestLoadTable_ColumnOrderAndBOMTolerated(t *testing.T) {
	l := newLoader(t)
	body := "\ufeffunit_price,quantity,product_id,order_id,order_item_id\n25.00,2,1,1,7\n"

	n, err := l.LoadTable(context.Background(), table(t, models.TableOrderItems), strings.NewReader(body), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var q int
	require.NoError(t, l.Store.DB.Raw("SELECT quantity FROM order_items WHERE order_item_id = 7").Scan(&q).Error)
	assert.Equal(t, 2, q)
}

func TestLoadTable_MalformedRowRollsBackTable(t *testing.T) {
	l := newLoader(t)
	body := "order_item_id,order_id,product_id,quantity,unit_price\n" +
		"1,1,1,2,25.00\n" +
		"2,1,1,two,25.00\n"

	_, err := l.LoadTable(context.Background(), table(t, models.TableOrderItems), strings.NewReader(body), "x")
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "quantity")
	assert.Zero(t, rowCount(t, l, models.TableOrderItems))
}

func TestLoadTable_EmptyInput(t *testing.T) {
	l := newLoader(t)
	_, err := l.LoadTable(context.Background(), table(t, models.TableReviews), strings.NewReader(""), "x")
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestReconcile_FixesDriftedTotal(t *testing.T) {
	l := newLoader(t)
	load(t, l, models.TableCustomers, customersCSV)
	load(t, l, models.TableProducts, productsCSV)
	load(t, l, models.TableOrders, ordersCSV)
	load(t, l, models.TableOrderItems, itemsCSV)

	res, err := Reconcile(context.Background(), l.Store.DB, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, 1, res.Fixed)
	assert.Zero(t, res.Remaining)
	require.Len(t, res.Mismatches, 1)
	assert.True(t, res.Mismatches[0].Stored.Equal(decimal.RequireFromString("99.99")))
	assert.True(t, res.Mismatches[0].Computed.Equal(decimal.RequireFromString("50.00")))

	var total decimal.Decimal
	require.NoError(t, l.Store.DB.Raw("SELECT total_amount FROM orders WHERE order_id = 1").Row().Scan(&total))
	assert.True(t, total.Equal(decimal.RequireFromString("50.00")), total.String())
}

func TestReconcile_CountOnlyLeavesStore(t *testing.T) {
	l := newLoader(t)
	load(t, l, models.TableOrders, ordersCSV)
	load(t, l, models.TableOrderItems, itemsCSV)

	res, err := Reconcile(context.Background(), l.Store.DB, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Zero(t, res.Fixed)
	assert.Equal(t, 1, res.Remaining)

	var total decimal.Decimal
	require.NoError(t, l.Store.DB.Raw("SELECT total_amount FROM orders WHERE order_id = 1").Row().Scan(&total))
	assert.True(t, total.Equal(decimal.RequireFromString("99.99")))
}

func TestReconcile_WithinToleranceAndEmptyOrders(t *testing.T) {
	l := newLoader(t)
	load(t, l, models.TableOrders, "order_id,customer_id,order_date,status,total_amount,shipping_country\n"+
		"1,c1,2024-02-01T10:00:00,paid,50.01,UK\n"+
		"2,c1,2024-02-01T10:00:00,paid,0.00,UK\n")
	load(t, l, models.TableOrderItems, itemsCSV)

	found, err := FindMismatches(context.Background(), l.Store.DB)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCountViolations(t *testing.T) {
	l := newLoader(t)
	load(t, l, models.TableProducts, productsCSV)
	load(t, l, models.TableOrders, ordersCSV)
	load(t, l, models.TableOrderItems, itemsCSV+"2,9,1,1,25.00\n")

	vs, err := CountViolations(context.Background(), l.Store.DB)
	require.NoError(t, err)

	got := map[string]int64{}
	for _, v := range vs {
		got[v.Relationship] = v.Count
	}
	assert.Equal(t, map[string]int64{
		"orders.customer_id":     1,
		"order_items.order_id":   1,
		"order_items.product_id": 0,
		"reviews.product_id":     0,
		"reviews.customer_id":    0,
	}, got)
}

func TestReportWrite(t *testing.T) {
	r := &Report{
		RowCounts:  []TableCount{{Table: "orders", Rows: 3}},
		NullCounts: []NullCount{{Column: "orders.customer_id", Nulls: 0}},
		Violations: []Violation{{Relationship: "orders.customer_id", Count: 0}},
	}
	var buf bytes.Buffer
	r.Write(&buf)
	out := buf.String()
	assert.Contains(t, out, "=== Integrity Report ===")
	assert.Contains(t, out, "  orders: 3")
	assert.Contains(t, out, "None detected")
	assert.Contains(t, out, "All order totals match order_items")

	r.Violations[0].Count = 2
	r.Totals = Reconciliation{Found: 1, Fixed: 1}
	buf.Reset()
	r.Write(&buf)
	out = buf.String()
	assert.Contains(t, out, "orders.customer_id: 2 violations")
	assert.Contains(t, out, "Found 1 mismatches")
	assert.Contains(t, out, "Fixed 1 mismatches")
	assert.NotContains(t, out, "None detected")
}

func TestRun_MutatingFixesAndPersists(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir, allInputs())
	dbPath := filepath.Join(t.TempDir(), "db", "shop.db")

	report, err := Run(context.Background(), Options{DataDir: dir, Location: dbPath}, logging.Discard())
	require.NoError(t, err)
	assert.False(t, report.DryRun)
	assert.Equal(t, 1, report.Totals.Found)
	assert.Equal(t, 1, report.Totals.Fixed)
	assert.Zero(t, report.ViolationTotal())

	st, err := store.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer st.Close()
	var total decimal.Decimal
	require.NoError(t, st.DB.Raw("SELECT total_amount FROM orders WHERE order_id = 1").Row().Scan(&total))
	assert.True(t, total.Equal(decimal.RequireFromString("50")))
}

func TestRun_DryRunLeavesLocationUntouched(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir, allInputs())
	dbPath := filepath.Join(t.TempDir(), "shop.db")

	report, err := Run(context.Background(), Options{DataDir: dir, Location: dbPath, DryRun: true}, logging.Discard())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Totals.Found)
	assert.Zero(t, report.Totals.Fixed)

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MissingInputTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	files := allInputs()
	delete(files, models.TableReviews)
	writeInputs(t, dir, files)

	dbPath := filepath.Join(t.TempDir(), "shop.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("stale"), 0o644))

	_, err := Run(context.Background(), Options{DataDir: dir, Location: dbPath}, logging.Discard())
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "reviews.csv")

	b, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(b))
}

func TestRun_SchemaMismatchDiscardsStore(t *testing.T) {
	dir := t.TempDir()
	files := allInputs()
	files[models.TableOrders] = "order_id,customer_id,order_date,status,total_amount\n1,c1,2024-02-01T10:00:00,paid,99.99\n"
	writeInputs(t, dir, files)
	dbPath := filepath.Join(t.TempDir(), "shop.db")

	_, err := Run(context.Background(), Options{DataDir: dir, Location: dbPath}, logging.Discard())
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_GeneratedDatasetIsClean(t *testing.T) {
	opts := generator.DefaultOptions()
	opts.Customers, opts.Products, opts.Orders, opts.Reviews = 40, 20, 60, 30
	opts.ReviewingCustomers, opts.ReviewedProducts = 30, 15
	opts.UseFaker = false

	d, findings := generator.New(opts, logging.Discard()).Generate()
	require.Empty(t, findings)

	dir := t.TempDir()
	require.NoError(t, d.WriteCSV(dir))

	report, err := Run(context.Background(), Options{DataDir: dir, Location: filepath.Join(t.TempDir(), "shop.db")}, logging.Discard())
	require.NoError(t, err)
	assert.Zero(t, report.ViolationTotal())
	assert.Zero(t, report.Totals.Found)

	rows := map[string]int64{}
	for _, c := range report.RowCounts {
		rows[c.Table] = c.Rows
	}
	assert.Equal(t, int64(40), rows[models.TableCustomers])
	assert.Equal(t, int64(len(d.OrderItems)), rows[models.TableOrderItems])
	for _, c := range report.NullCounts {
		assert.Zero(t, c.Nulls, c.Column)
	}
}

func TestLoadTable_DecodesIntoModels(t *testing.T) {
	l := newLoader(t)
	load(t, l, models.TableOrders, ordersCSV)
	load(t, l, models.TableCustomers, customersCSV)

	var o models.Order
	require.NoError(t, l.Store.DB.First(&o, 1).Error)
	assert.Equal(t, "c1", o.CustomerID)
	assert.Equal(t, models.StatusPaid, o.Status)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("99.99")), o.TotalAmount.String())
	assert.Equal(t, "2024-02-01T10:00:00", models.FormatTime(o.OrderDate))

	var c models.Customer
	require.NoError(t, l.Store.DB.First(&c, "customer_id = ?", "c1").Error)
	assert.True(t, c.IsPremium)
	assert.Equal(t, "2024-01-01T00:00:00", models.FormatTime(c.SignupDate))
}

func TestLoadTable_BadTimestampRejected(t *testing.T) {
	l := newLoader(t)
	body := "review_id,product_id,customer_id,rating,review_text,created_at\n" +
		"1,1,c1,5,ok,yesterday\n"

	_, err := l.LoadTable(context.Background(), table(t, models.TableReviews), strings.NewReader(body), "reviews.csv")
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "reviews.csv line 2")
	assert.Contains(t, err.Error(), "created_at")
	assert.Zero(t, rowCount(t, l, models.TableReviews))
}

func TestLoadTable_ManyRowsSpanBatches(t *testing.T) {
	l := newLoader(t)
	var b strings.Builder
	b.WriteString("order_item_id,order_id,product_id,quantity,unit_price\n")
	for i := 1; i <= insertBatchSize*2+3; i++ {
		fmt.Fprintf(&b, "%d,1,1,1,2.50\n", i)
	}

	n, err := l.LoadTable(context.Background(), table(t, models.TableOrderItems), strings.NewReader(b.String()), "x")
	require.NoError(t, err)
	assert.Equal(t, insertBatchSize*2+3, n)
	assert.Equal(t, int64(insertBatchSize*2+3), rowCount(t, l, models.TableOrderItems))
}

func TestRun_DryRunFailureClosesStore(t *testing.T) {
	dir := t.TempDir()
	files := allInputs()
	files[models.TableOrders] = "order_id,customer_id,order_date,status,total_amount\n1,c1,2024-02-01T10:00:00,paid,99.99\n"
	writeInputs(t, dir, files)
	dbPath := filepath.Join(t.TempDir(), "shop.db")

	var logs bytes.Buffer
	_, err := Run(context.Background(), Options{DataDir: dir, Location: dbPath, DryRun: true}, logging.New("debug", &logs))
	require.ErrorIs(t, err, ErrSchemaMismatch)

	assert.Contains(t, logs.String(), "dry_run")
	assert.NotContains(t, logs.String(), "store_close_failed")
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}
