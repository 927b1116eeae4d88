package dataset

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopdata/internal/models"
)

// TotalTolerance is the largest accepted gap between a stored order total
// and the total recomputed from its items.
var TotalTolerance = decimal.New(1, -2)

// Finding is one failed invariant and how many records break it.
type Finding struct {
	Check string
	Count int
}

// OrderTotal sums quantity × unit price and rounds half-up to cents.
// An empty slice yields 0.00.
func OrderTotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum.Round(2)
}

// Validate recomputes every referential and derived-value invariant. It only
// reports; nothing in d is changed.
func (d *Dataset) Validate() []Finding {
	customers := make(map[string]struct{}, len(d.Customers))
	for _, c := range d.Customers {
		customers[c.CustomerID] = struct{}{}
	}
	products := make(map[int64]struct{}, len(d.Products))
	skus := make(map[string]int, len(d.Products))
	for _, p := range d.Products {
		products[p.ProductID] = struct{}{}
		skus[p.SKU]++
	}
	orders := make(map[int64]struct{}, len(d.Orders))
	for _, o := range d.Orders {
		orders[o.OrderID] = struct{}{}
	}

	var out []Finding
	add := func(check string, n int) {
		if n > 0 {
			out = append(out, Finding{Check: check, Count: n})
		}
	}

	n := 0
	for _, o := range d.Orders {
		if _, ok := customers[o.CustomerID]; !ok {
			n++
		}
	}
	add("orders.customer_id", n)

	badOrder, badProduct := 0, 0
	itemsByOrder := make(map[int64][]models.OrderItem, len(d.Orders))
	for _, it := range d.OrderItems {
		if _, ok := orders[it.OrderID]; !ok {
			badOrder++
		}
		if _, ok := products[it.ProductID]; !ok {
			badProduct++
		}
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}
	add("order_items.order_id", badOrder)
	add("order_items.product_id", badProduct)

	badProduct, badCustomer, badRating := 0, 0, 0
	for _, r := range d.Reviews {
		if _, ok := products[r.ProductID]; !ok {
			badProduct++
		}
		if _, ok := customers[r.CustomerID]; !ok {
			badCustomer++
		}
		if r.Rating < 1 || r.Rating > 5 {
			badRating++
		}
	}
	add("reviews.product_id", badProduct)
	add("reviews.customer_id", badCustomer)
	add("reviews.rating", badRating)

	dup := 0
	for _, c := range skus {
		if c > 1 {
			dup += c - 1
		}
	}
	add("products.sku", dup)

	mismatches := 0
	for _, o := range d.Orders {
		expected := OrderTotal(itemsByOrder[o.OrderID])
		if expected.Sub(o.TotalAmount).Abs().GreaterThan(TotalTolerance) {
			mismatches++
		}
	}
	add("orders.total_amount", mismatches)

	return out
}

type CategoryCount struct {
	Category models.Category
	Count    int
}

// TopCategories ranks categories by product count, ties broken by name.
func (d *Dataset) TopCategories(n int) []CategoryCount {
	counts := map[models.Category]int{}
	for _, p := range d.Products {
		counts[p.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for c, k := range counts {
		out = append(out, CategoryCount{Category: c, Count: k})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// WriteValidation prints findings the way the generator reports them.
func WriteValidation(w io.Writer, findings []Finding) {
	fmt.Fprintln(w, "Validating foreign key consistency...")
	totalsOK := true
	for _, f := range findings {
		if f.Check == "orders.total_amount" {
			totalsOK = false
			fmt.Fprintf(w, "  WARNING: %d orders have mismatched totals\n", f.Count)
			continue
		}
		fmt.Fprintf(w, "  WARNING: %s has %d invalid values\n", f.Check, f.Count)
	}
	if totalsOK {
		fmt.Fprintln(w, "  All order totals match order_items")
	}
}

// WriteSummary prints per-entity counts and the three largest categories.
func (d *Dataset) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "=== Generation Summary ===")
	fmt.Fprintf(w, "Customers: %d\n", len(d.Customers))
	fmt.Fprintf(w, "Products: %d\n", len(d.Products))
	fmt.Fprintf(w, "Orders: %d\n", len(d.Orders))
	fmt.Fprintf(w, "Order Items: %d\n", len(d.OrderItems))
	fmt.Fprintf(w, "Reviews: %d\n", len(d.Reviews))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top 3 categories by product count:")
	for _, c := range d.TopCategories(3) {
		fmt.Fprintf(w, "  %s: %d products\n", c.Category, c.Count)
	}
}
