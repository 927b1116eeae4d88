package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopdata/internal/models"
)

const insertBatchSize = 500

type recordReader struct {
	cr     *csv.Reader
	at     map[string]int
	source string
}

// fields reads typed values out of one record by column name. The first
// failure sticks and later reads return zero values.
type fields struct {
	rec []string
	at  map[string]int
	err error
}

func (f *fields) raw(col string) string {
	return f.rec[f.at[col]]
}

func (f *fields) fail(col string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("column %s: %v", col, err)
	}
}

func (f *fields) str(col string) string {
	return f.raw(col)
}

func (f *fields) int64(col string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(f.raw(col)), 10, 64)
	if err != nil {
		f.fail(col, err)
	}
	return n
}

func (f *fields) int(col string) int {
	n, err := strconv.Atoi(strings.TrimSpace(f.raw(col)))
	if err != nil {
		f.fail(col, err)
	}
	return n
}

func (f *fields) decimal(col string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(f.raw(col)))
	if err != nil {
		f.fail(col, err)
	}
	return d
}

func (f *fields) bool(col string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(f.raw(col)))
	if err != nil {
		f.fail(col, err)
	}
	return b
}

func (f *fields) time(col string) time.Time {
	s := strings.TrimSpace(f.raw(col))
	t, err := time.ParseInLocation(models.TimestampLayout, s, time.UTC)
	if err != nil {
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339, s); rfcErr != nil {
			f.fail(col, err)
			return time.Time{}
		}
	}
	return t.UTC()
}

func decodeCustomer(f *fields) models.Customer {
	return models.Customer{
		CustomerID: f.str("customer_id"),
		Name:       f.str("name"),
		Email:      f.str("email"),
		SignupDate: f.time("signup_date"),
		Country:    f.str("country"),
		IsPremium:  f.bool("is_premium"),
	}
}

func decodeProduct(f *fields) models.Product {
	return models.Product{
		ProductID: f.int64("product_id"),
		SKU:       f.str("sku"),
		Name:      f.str("name"),
		Category:  models.Category(f.str("category")),
		Price:     f.decimal("price"),
		Cost:      f.decimal("cost"),
		CreatedAt: f.time("created_at"),
	}
}

func decodeOrder(f *fields) models.Order {
	return models.Order{
		OrderID:         f.int64("order_id"),
		CustomerID:      f.str("customer_id"),
		OrderDate:       f.time("order_date"),
		Status:          models.OrderStatus(f.str("status")),
		TotalAmount:     f.decimal("total_amount"),
		ShippingCountry: f.str("shipping_country"),
	}
}

func decodeOrderItem(f *fields) models.OrderItem {
	return models.OrderItem{
		OrderItemID: f.int64("order_item_id"),
		OrderID:     f.int64("order_id"),
		ProductID:   f.int64("product_id"),
		Quantity:    f.int("quantity"),
		UnitPrice:   f.decimal("unit_price"),
	}
}

func decodeReview(f *fields) models.Review {
	return models.Review{
		ReviewID:   f.int64("review_id"),
		ProductID:  f.int64("product_id"),
		CustomerID: f.str("customer_id"),
		Rating:     f.int("rating"),
		ReviewText: f.str("review_text"),
		CreatedAt:  f.time("created_at"),
	}
}

// insertAll decodes every remaining record of rr and creates the models in
// batches of insertBatchSize on tx.
func insertAll[T any](tx *gorm.DB, rr *recordReader, decode func(*fields) T) (int, error) {
	batch := make([]T, 0, insertBatchSize)
	rows := 0
	firstLine := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&batch, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert %s rows from line %d: %w", rr.source, firstLine, err)
		}
		rows += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := rr.cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, rr.source, err)
		}
		line, _ := rr.cr.FieldPos(0)

		f := &fields{rec: rec, at: rr.at}
		v := decode(f)
		if f.err != nil {
			return 0, fmt.Errorf("%w: %s line %d %v", ErrMalformedRecord, rr.source, line, f.err)
		}

		if len(batch) == 0 {
			firstLine = line
		}
		batch = append(batch, v)
		if len(batch) == insertBatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return rows, nil
}
