package store

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/shopdata/internal/models"
)

// Table is the hand-written DDL for one model. Models carry the column
// mapping gorm inserts with; the DDL adds the declared foreign keys and
// checks, which gorm can only derive from associations.
type Table struct {
	Name    string
	Model   any
	Columns []string
	DDL     string
}

// Tables is in load order: every referenced table precedes its referrers.
var Tables = []Table{
	{
		Name:    models.TableCustomers,
		Model:   &models.Customer{},
		Columns: models.CustomerColumns,
		DDL: `CREATE TABLE IF NOT EXISTS customers (
			customer_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			signup_date TIMESTAMP NOT NULL,
			country TEXT NOT NULL,
			is_premium BOOLEAN NOT NULL
		)`,
	},
	{
		Name:    models.TableProducts,
		Model:   &models.Product{},
		Columns: models.ProductColumns,
		DDL: `CREATE TABLE IF NOT EXISTS products (
			product_id INTEGER PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			price NUMERIC(10, 2) NOT NULL,
			cost NUMERIC(10, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	},
	{
		Name:    models.TableOrders,
		Model:   &models.Order{},
		Columns: models.OrderColumns,
		DDL: `CREATE TABLE IF NOT EXISTS orders (
			order_id INTEGER PRIMARY KEY,
			customer_id TEXT NOT NULL,
			order_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			total_amount NUMERIC(10, 2) NOT NULL,
			shipping_country TEXT NOT NULL,
			FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
		)`,
	},
	{
		Name:    models.TableOrderItems,
		Model:   &models.OrderItem{},
		Columns: models.OrderItemColumns,
		DDL: `CREATE TABLE IF NOT EXISTS order_items (
			order_item_id INTEGER PRIMARY KEY,
			order_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price NUMERIC(10, 2) NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(order_id),
			FOREIGN KEY (product_id) REFERENCES products(product_id)
		)`,
	},
	{
		Name:    models.TableReviews,
		Model:   &models.Review{},
		Columns: models.ReviewColumns,
		DDL: `CREATE TABLE IF NOT EXISTS reviews (
			review_id INTEGER PRIMARY KEY,
			product_id INTEGER NOT NULL,
			customer_id TEXT NOT NULL,
			rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
			review_text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (product_id) REFERENCES products(product_id),
			FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
		)`,
	},
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)",
	"CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders(order_date)",
	"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",
	"CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)",
	"CREATE INDEX IF NOT EXISTS idx_order_items_product_id ON order_items(product_id)",
	"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)",
	"CREATE INDEX IF NOT EXISTS idx_reviews_product_id ON reviews(product_id)",
	"CREATE INDEX IF NOT EXISTS idx_reviews_customer_id ON reviews(customer_id)",
}

func TableByName(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// ForeignKey is one declared reference, reported as "table.column".
type ForeignKey struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

func (fk ForeignKey) String() string {
	return fk.Table + "." + fk.Column
}

var ForeignKeys = []ForeignKey{
	{models.TableOrders, "customer_id", models.TableCustomers, "customer_id"},
	{models.TableOrderItems, "order_id", models.TableOrders, "order_id"},
	{models.TableOrderItems, "product_id", models.TableProducts, "product_id"},
	{models.TableReviews, "product_id", models.TableProducts, "product_id"},
	{models.TableReviews, "customer_id", models.TableCustomers, "customer_id"},
}

func (s *Store) CreateSchema(ctx context.Context) error {
	db := s.DB.WithContext(ctx)
	for _, t := range Tables {
		if err := db.Exec(t.DDL).Error; err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// DropTables removes every table, referrers first.
func (s *Store) DropTables(ctx context.Context) error {
	m := s.DB.WithContext(ctx).Migrator()
	for i := len(Tables) - 1; i >= 0; i-- {
		if err := m.DropTable(Tables[i].Model); err != nil {
			return fmt.Errorf("drop table %s: %w", Tables[i].Name, err)
		}
	}
	return nil
}
