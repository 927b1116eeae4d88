package loader

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shopdata/internal/models"
	"github.com/Skotchmaster/shopdata/internal/store"
)

type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

type NullCount struct {
	Column string `json:"column"`
	Nulls  int64  `json:"nulls"`
}

type Violation struct {
	Relationship string `json:"relationship"`
	Count        int64  `json:"count"`
}

// Report is the integrity report. Findings in it are never errors.
type Report struct {
	DryRun     bool           `json:"dry_run"`
	RowCounts  []TableCount   `json:"row_counts"`
	NullCounts []NullCount    `json:"null_counts"`
	Violations []Violation    `json:"violations"`
	Totals     Reconciliation `json:"totals"`
}

var nullChecks = []struct {
	label string
	table string
	where string
}{
	{"orders.customer_id", models.TableOrders, "customer_id IS NULL"},
	{"order_items (order_id or product_id)", models.TableOrderItems, "order_id IS NULL OR product_id IS NULL"},
	{"reviews (product_id or customer_id)", models.TableReviews, "product_id IS NULL OR customer_id IS NULL"},
}

func count(ctx context.Context, db *gorm.DB, query string) (int64, error) {
	var n int64
	if err := db.WithContext(ctx).Raw(query).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CountViolations counts child rows whose reference has no parent, for
// every declared foreign key.
func CountViolations(ctx context.Context, db *gorm.DB) ([]Violation, error) {
	out := make([]Violation, 0, len(store.ForeignKeys))
	for _, fk := range store.ForeignKeys {
		q := fmt.Sprintf(
			"SELECT COUNT(*) FROM %s c LEFT JOIN %s p ON c.%s = p.%s WHERE p.%s IS NULL",
			fk.Table, fk.RefTable, fk.Column, fk.RefColumn, fk.RefColumn,
		)
		n, err := count(ctx, db, q)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", fk, err)
		}
		out = append(out, Violation{Relationship: fk.String(), Count: n})
	}
	return out, nil
}

// BuildReport gathers counts and reconciles order totals; drift is fixed
// only when applyFixes is set.
func BuildReport(ctx context.Context, db *gorm.DB, applyFixes bool) (*Report, error) {
	r := &Report{DryRun: !applyFixes}

	for _, t := range store.Tables {
		n, err := count(ctx, db, "SELECT COUNT(*) FROM "+t.Name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", t.Name, err)
		}
		r.RowCounts = append(r.RowCounts, TableCount{Table: t.Name, Rows: n})
	}

	for _, c := range nullChecks {
		n, err := count(ctx, db, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.table, c.where))
		if err != nil {
			return nil, fmt.Errorf("null check %s: %w", c.label, err)
		}
		r.NullCounts = append(r.NullCounts, NullCount{Column: c.label, Nulls: n})
	}

	violations, err := CountViolations(ctx, db)
	if err != nil {
		return nil, err
	}
	r.Violations = violations

	totals, err := Reconcile(ctx, db, applyFixes)
	if err != nil {
		return nil, err
	}
	r.Totals = totals

	return r, nil
}

func (r *Report) ViolationTotal() int64 {
	var n int64
	for _, v := range r.Violations {
		n += v.Count
	}
	return n
}

func (r *Report) Write(w io.Writer) {
	fmt.Fprintln(w, "\n=== Integrity Report ===")

	fmt.Fprintln(w, "\nRow counts per table:")
	for _, c := range r.RowCounts {
		fmt.Fprintf(w, "  %s: %d\n", c.Table, c.Rows)
	}

	fmt.Fprintln(w, "\nNULL counts in important columns:")
	for _, c := range r.NullCounts {
		fmt.Fprintf(w, "  %s: %d\n", c.Column, c.Nulls)
	}

	fmt.Fprintln(w, "\nForeign key violations:")
	if r.ViolationTotal() == 0 {
		fmt.Fprintln(w, "  None detected")
	}
	for _, v := range r.Violations {
		if v.Count > 0 {
			fmt.Fprintf(w, "  %s: %d violations\n", v.Relationship, v.Count)
		}
	}

	fmt.Fprintln(w, "\nOrder total validation:")
	if r.Totals.Found == 0 {
		fmt.Fprintln(w, "  All order totals match order_items")
		return
	}
	fmt.Fprintf(w, "  Found %d mismatches\n", r.Totals.Found)
	if !r.DryRun {
		fmt.Fprintf(w, "  Fixed %d mismatches\n", r.Totals.Fixed)
	}
	fmt.Fprintf(w, "  Mismatches after reconciliation: %d\n", r.Totals.Remaining)
}
