// Package dataset holds the five generated collections and their flat CSV form.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Skotchmaster/shopdata/internal/models"
)

// Dataset is one complete generation run. Slices are in id order.
type Dataset struct {
	Customers  []models.Customer
	Products   []models.Product
	Orders     []models.Order
	OrderItems []models.OrderItem
	Reviews    []models.Review
}

// LoadOrder lists tables so that foreign-key targets precede referencing rows.
var LoadOrder = []string{
	models.TableCustomers,
	models.TableProducts,
	models.TableOrders,
	models.TableOrderItems,
	models.TableReviews,
}

// FileName is the CSV file holding table.
func FileName(table string) string {
	return table + ".csv"
}

// WriteCSV writes the five collections into dir, creating it if needed.
func (d *Dataset) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, table := range LoadOrder {
		path := filepath.Join(dir, FileName(table))
		if err := writeFile(path, func(w io.Writer) error { return d.WriteTable(w, table) }); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders one collection as CSV with its header row.
func (d *Dataset) WriteTable(w io.Writer, table string) error {
	cw := csv.NewWriter(w)

	var header []string
	var records [][]string
	switch table {
	case models.TableCustomers:
		header = models.CustomerColumns
		for _, c := range d.Customers {
			records = append(records, c.Record())
		}
	case models.TableProducts:
		header = models.ProductColumns
		for _, p := range d.Products {
			records = append(records, p.Record())
		}
	case models.TableOrders:
		header = models.OrderColumns
		for _, o := range d.Orders {
			records = append(records, o.Record())
		}
	case models.TableOrderItems:
		header = models.OrderItemColumns
		for _, i := range d.OrderItems {
			records = append(records, i.Record())
		}
	case models.TableReviews:
		header = models.ReviewColumns
		for _, r := range d.Reviews {
			records = append(records, r.Record())
		}
	default:
		return fmt.Errorf("unknown table %q", table)
	}

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%s header: %w", table, err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("%s records: %w", table, err)
	}
	return nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
