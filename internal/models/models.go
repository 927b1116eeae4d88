package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is how every timestamp is rendered in CSV and stored in the database.
const TimestampLayout = "2006-01-02T15:04:05"

const (
	TableCustomers  = "customers"
	TableProducts   = "products"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableReviews    = "reviews"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategoryBooks       Category = "books"
	CategoryClothing    Category = "clothing"
	CategorySports      Category = "sports"
	CategoryToys        Category = "toys"
	CategoryAutomotive  Category = "automotive"
)

var Categories = []Category{
	CategoryElectronics, CategoryHome, CategoryBeauty, CategoryBooks,
	CategoryClothing, CategorySports, CategoryToys, CategoryAutomotive,
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
)

var OrderStatuses = []OrderStatus{StatusPending, StatusPaid, StatusShipped, StatusCancelled, StatusReturned}

type Customer struct {
	CustomerID string    `gorm:"column:customer_id;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Email      string    `gorm:"column:email;not null"`
	SignupDate time.Time `gorm:"column:signup_date;not null"`
	Country    string    `gorm:"column:country;not null"`
	IsPremium  bool      `gorm:"column:is_premium;not null"`
}

type Product struct {
	ProductID int64           `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	SKU       string          `gorm:"column:sku;unique;not null"`
	Name      string          `gorm:"column:name;not null"`
	Category  Category        `gorm:"column:category;index;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Cost      decimal.Decimal `gorm:"column:cost;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;autoCreateTime:false"`
}

// Order.TotalAmount is derived from the order's items and written once by
// reconciliation. ShippingCountry is a snapshot of the customer's country.
type Order struct {
	OrderID         int64           `gorm:"column:order_id;primaryKey;autoIncrement:false"`
	CustomerID      string          `gorm:"column:customer_id;index;not null"`
	OrderDate       time.Time       `gorm:"column:order_date;index;not null"`
	Status          OrderStatus     `gorm:"column:status;index;not null"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null"`
	ShippingCountry string          `gorm:"column:shipping_country;not null"`
}

// OrderItem.UnitPrice is the product price at the moment the item was created.
type OrderItem struct {
	OrderItemID int64           `gorm:"column:order_item_id;primaryKey;autoIncrement:false"`
	OrderID     int64           `gorm:"column:order_id;index;not null"`
	ProductID   int64           `gorm:"column:product_id;index;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
}

// LineTotal is quantity × unit price, unrounded.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Review struct {
	ReviewID   int64     `gorm:"column:review_id;primaryKey;autoIncrement:false"`
	ProductID  int64     `gorm:"column:product_id;index;not null"`
	CustomerID string    `gorm:"column:customer_id;index;not null"`
	Rating     int       `gorm:"column:rating;not null;check:rating >= 1 AND rating <= 5"`
	ReviewText string    `gorm:"column:review_text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (Customer) TableName() string  { return TableCustomers }
func (Product) TableName() string   { return TableProducts }
func (Order) TableName() string     { return TableOrders }
func (OrderItem) TableName() string { return TableOrderItems }
func (Review) TableName() string    { return TableReviews }

// Column lists double as CSV headers and as the expected field sets of the loader.
var (
	CustomerColumns  = []string{"customer_id", "name", "email", "signup_date", "country", "is_premium"}
	ProductColumns   = []string{"product_id", "sku", "name", "category", "price", "cost", "created_at"}
	OrderColumns     = []string{"order_id", "customer_id", "order_date", "status", "total_amount", "shipping_country"}
	OrderItemColumns = []string{"order_item_id", "order_id", "product_id", "quantity", "unit_price"}
	ReviewColumns    = []string{"review_id", "product_id", "customer_id", "rating", "review_text", "created_at"}
)

func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (c Customer) Record() []string {
	return []string{c.CustomerID, c.Name, c.Email, FormatTime(c.SignupDate), c.Country, strconv.FormatBool(c.IsPremium)}
}

func (p Product) Record() []string {
	return []string{itoa(p.ProductID), p.SKU, p.Name, string(p.Category), FormatMoney(p.Price), FormatMoney(p.Cost), FormatTime(p.CreatedAt)}
}

func (o Order) Record() []string {
	return []string{itoa(o.OrderID), o.CustomerID, FormatTime(o.OrderDate), string(o.Status), FormatMoney(o.TotalAmount), o.ShippingCountry}
}

func (i OrderItem) Record() []string {
	return []string{itoa(i.OrderItemID), itoa(i.OrderID), itoa(i.ProductID), strconv.Itoa(i.Quantity), FormatMoney(i.UnitPrice)}
}

func (r Review) Record() []string {
	return []string{itoa(r.ReviewID), itoa(r.ProductID), r.CustomerID, strconv.Itoa(r.Rating), r.ReviewText, FormatTime(r.CreatedAt)}
}
