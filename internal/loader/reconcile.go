package loader

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopdata/internal/dataset"
)

// Mismatch is an order whose stored total drifted from its items.
type Mismatch struct {
	OrderID  int64           `json:"order_id"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
}

// Reconciliation counts drift before and after the fix pass.
type Reconciliation struct {
	Found      int        `json:"found"`
	Fixed      int        `json:"fixed"`
	Remaining  int        `json:"remaining"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

type totalRow struct {
	OrderID         int64
	CurrentTotal    decimal.Decimal
	CalculatedTotal decimal.Decimal
}

const totalsSQL = `
	SELECT
		o.order_id AS order_id,
		o.total_amount AS current_total,
		COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS calculated_total
	FROM orders o
	LEFT JOIN order_items oi ON o.order_id = oi.order_id
	GROUP BY o.order_id, o.total_amount
	ORDER BY o.order_id
`

// FindMismatches recomputes every order total from its loaded items,
// rounded half-up to cents, and returns the orders off by more than
// dataset.TotalTolerance.
func FindMismatches(ctx context.Context, db *gorm.DB) ([]Mismatch, error) {
	var rows []totalRow
	if err := db.WithContext(ctx).Raw(totalsSQL).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("compute order totals: %w", err)
	}

	var out []Mismatch
	for _, r := range rows {
		computed := r.CalculatedTotal.Round(2)
		if r.CurrentTotal.Sub(computed).Abs().GreaterThan(dataset.TotalTolerance) {
			out = append(out, Mismatch{OrderID: r.OrderID, Stored: r.CurrentTotal, Computed: computed})
		}
	}
	return out, nil
}

// Reconcile overwrites drifted totals when apply is set. With apply unset it
// only counts, and Remaining equals Found.
func Reconcile(ctx context.Context, db *gorm.DB, apply bool) (Reconciliation, error) {
	found, err := FindMismatches(ctx, db)
	if err != nil {
		return Reconciliation{}, err
	}
	res := Reconciliation{Found: len(found), Remaining: len(found), Mismatches: found}
	if !apply || len(found) == 0 {
		return res, nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range found {
			q := tx.Exec("UPDATE orders SET total_amount = ? WHERE order_id = ?", m.Computed, m.OrderID)
			if q.Error != nil {
				return fmt.Errorf("fix total of order %d: %w", m.OrderID, q.Error)
			}
			res.Fixed += int(q.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}

	after, err := FindMismatches(ctx, db)
	if err != nil {
		return Reconciliation{}, err
	}
	res.Remaining = len(after)
	return res, nil
}
