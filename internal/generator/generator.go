// Package generator builds a referentially consistent dataset from a seed.
//
// Phases run strictly in order because each one reads the output of the
// previous: customers, products, orders with placeholder totals, order items
// (accumulating per-order sums), total reconciliation, reviews, and finally an
// advisory self-validation. Identical options reproduce identical output.
package generator

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopdata/internal/dataset"
	"github.com/Skotchmaster/shopdata/internal/models"
)

type Options struct {
	Seed      int64
	Reference time.Time

	Customers int
	Products  int
	Orders    int
	Reviews   int

	// Sizes of the eligible subsets reviews are drawn from.
	ReviewingCustomers int
	ReviewedProducts   int

	MaxItemsPerOrder int
	MaxQuantity      int
	PremiumRate      float64

	UseFaker bool
}

func DefaultOptions() Options {
	return Options{
		Seed:               42,
		Reference:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Customers:          500,
		Products:           200,
		Orders:             1500,
		Reviews:            800,
		ReviewingCustomers: 400,
		ReviewedProducts:   150,
		MaxItemsPerOrder:   6,
		MaxQuantity:        5,
		PremiumRate:        0.25,
		UseFaker:           true,
	}
}

// withDefaults fills the knobs that must be positive for sampling to work.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxItemsPerOrder <= 0 {
		o.MaxItemsPerOrder = def.MaxItemsPerOrder
	}
	if o.MaxQuantity <= 0 {
		o.MaxQuantity = def.MaxQuantity
	}
	if o.Reference.IsZero() {
		o.Reference = def.Reference
	}
	return o
}

const (
	minPrice         = 9.99
	maxPrice         = 999.99
	minCostRatio     = 0.3
	maxCostRatio     = 0.7
	signupWindowDays = 1095
	catalogWindow    = 730
	orderWindowDays  = 730
	reviewWindowDays = 600
	minReviewWords   = 5
	maxReviewWords   = 20
)

var (
	skuSuffixes   = []string{"A", "B", "C"}
	statusWeights = []int{5, 60, 25, 5, 5}
	ratings       = []int{5, 4, 3, 2, 1}
	ratingWeights = []int{40, 30, 15, 10, 5}
)

type Generator struct {
	opts  Options
	rng   *rand.Rand
	names NameSource
	log   *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Generator {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Generator{
		opts:  opts,
		rng:   rng,
		names: NewNameSource(opts.UseFaker, opts.Seed, rng),
		log:   logger,
	}
}

// Totals accumulates unrounded per-order sums while items are generated.
type Totals map[int64]decimal.Decimal

// Generate runs every phase and returns the dataset together with the
// self-validation findings. Findings never stop generation.
func (g *Generator) Generate() (*dataset.Dataset, []dataset.Finding) {
	d := &dataset.Dataset{}

	d.Customers = g.Customers()
	g.log.Info("customers_generated", "count", len(d.Customers))

	d.Products = g.Products()
	g.log.Info("products_generated", "count", len(d.Products))

	d.Orders = g.Orders(d.Customers)
	g.log.Info("orders_generated", "count", len(d.Orders))

	items, totals := g.OrderItems(d.Orders, d.Products)
	d.OrderItems = items
	g.log.Info("order_items_generated", "count", len(d.OrderItems))

	ReconcileTotals(d.Orders, totals)

	d.Reviews = g.Reviews(d.Customers, d.Products)
	g.log.Info("reviews_generated", "count", len(d.Reviews))

	findings := d.Validate()
	for _, f := range findings {
		g.log.Warn("invariant_violated", "check", f.Check, "count", f.Count)
	}
	return d, findings
}

func (g *Generator) daysAgo(maxDays int) time.Time {
	return g.opts.Reference.AddDate(0, 0, -g.rng.Intn(maxDays+1))
}

func (g *Generator) Customers() []models.Customer {
	out := make([]models.Customer, 0, g.opts.Customers)
	for i := 0; i < g.opts.Customers; i++ {
		id := uuid.Must(uuid.NewRandomFromReader(g.rng))
		name := g.names.Name()
		out = append(out, models.Customer{
			CustomerID: id.String(),
			Name:       name,
			Email:      g.names.Email(name),
			SignupDate: g.daysAgo(signupWindowDays),
			Country:    g.names.Country(),
			IsPremium:  g.rng.Float64() < g.opts.PremiumRate,
		})
	}
	return out
}

// Products assigns dense ids from 1. The id is part of the SKU, so SKUs stay
// unique whatever the random part yields. Cost may exceed price at the tails.
func (g *Generator) Products() []models.Product {
	out := make([]models.Product, 0, g.opts.Products)
	for i := 0; i < g.opts.Products; i++ {
		id := int64(i + 1)
		sku := fmt.Sprintf("SKU-%05d-%s-%04d", 10000+g.rng.Intn(90000), skuSuffixes[g.rng.Intn(len(skuSuffixes))], id)
		category := models.Categories[g.rng.Intn(len(models.Categories))]
		name := g.names.ProductName(category)
		price := decimal.NewFromFloat(minPrice + g.rng.Float64()*(maxPrice-minPrice)).Round(2)
		ratio := minCostRatio + g.rng.Float64()*(maxCostRatio-minCostRatio)
		cost := decimal.NewFromFloat(price.InexactFloat64() * ratio).Round(2)

		out = append(out, models.Product{
			ProductID: id,
			SKU:       sku,
			Name:      name,
			Category:  category,
			Price:     price,
			Cost:      cost,
			CreatedAt: g.daysAgo(catalogWindow),
		})
	}
	return out
}

// Orders copies the shipping country from the customer at creation time.
// TotalAmount stays zero until ReconcileTotals runs.
func (g *Generator) Orders(customers []models.Customer) []models.Order {
	if len(customers) == 0 {
		return nil
	}
	out := make([]models.Order, 0, g.opts.Orders)
	for i := 0; i < g.opts.Orders; i++ {
		c := customers[g.rng.Intn(len(customers))]
		out = append(out, models.Order{
			OrderID:         int64(i + 1),
			CustomerID:      c.CustomerID,
			OrderDate:       g.daysAgo(orderWindowDays),
			Status:          weighted(g.rng, models.OrderStatuses, statusWeights),
			TotalAmount:     decimal.Zero,
			ShippingCountry: c.Country,
		})
	}
	return out
}

// OrderItems draws distinct products per order and snapshots their price.
// Item ids come from one counter that runs across all orders.
func (g *Generator) OrderItems(orders []models.Order, products []models.Product) ([]models.OrderItem, Totals) {
	totals := make(Totals, len(orders))
	var out []models.OrderItem
	nextID := int64(1)

	for _, o := range orders {
		want := 1 + g.rng.Intn(g.opts.MaxItemsPerOrder)
		picked := sample(g.rng, len(products), want)

		for _, idx := range picked {
			p := products[idx]
			item := models.OrderItem{
				OrderItemID: nextID,
				OrderID:     o.OrderID,
				ProductID:   p.ProductID,
				Quantity:    1 + g.rng.Intn(g.opts.MaxQuantity),
				UnitPrice:   p.Price,
			}
			nextID++
			out = append(out, item)
			totals[o.OrderID] = totals[o.OrderID].Add(item.LineTotal())
		}
	}
	return out, totals
}

// ReconcileTotals writes each order's accumulated sum, rounded half-up to
// cents. Orders with no entry get 0.00.
func ReconcileTotals(orders []models.Order, totals Totals) {
	for i := range orders {
		sum, ok := totals[orders[i].OrderID]
		if !ok {
			orders[i].TotalAmount = decimal.Zero
			continue
		}
		orders[i].TotalAmount = sum.Round(2)
	}
}

// Reviews only reference members of two eligible subsets drawn up front.
// A review need not match any order.
func (g *Generator) Reviews(customers []models.Customer, products []models.Product) []models.Review {
	if len(customers) == 0 || len(products) == 0 {
		g.log.Warn("reviews_skipped", "reason", "no customers or products to review")
		return nil
	}

	reviewers := sample(g.rng, len(customers), g.opts.ReviewingCustomers)
	reviewed := sample(g.rng, len(products), g.opts.ReviewedProducts)
	if len(reviewers) == 0 || len(reviewed) == 0 {
		return nil
	}

	out := make([]models.Review, 0, g.opts.Reviews)
	for i := 0; i < g.opts.Reviews; i++ {
		p := products[reviewed[g.rng.Intn(len(reviewed))]]
		c := customers[reviewers[g.rng.Intn(len(reviewers))]]
		out = append(out, models.Review{
			ReviewID:   int64(i + 1),
			ProductID:  p.ProductID,
			CustomerID: c.CustomerID,
			Rating:     weighted(g.rng, ratings, ratingWeights),
			ReviewText: g.names.Text(minReviewWords, maxReviewWords),
			CreatedAt:  g.daysAgo(reviewWindowDays),
		})
	}
	return out
}

// sample returns k distinct indexes of [0,n) without replacement, or all n
// when k exceeds the population.
func sample(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	return rng.Perm(n)[:k]
}

func weighted[T any](rng *rand.Rand, values []T, weights []int) T {
	total := 0
	for _, w := range weights {
		total += w
	}
	r := rng.Intn(total)
	for i, w := range weights {
		if r < w {
			return values[i]
		}
		r -= w
	}
	return values[len(values)-1]
}
