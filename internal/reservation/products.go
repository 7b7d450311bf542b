package reservation

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/counter"
	"github.com/mgn-dev/alx-backend/internal/domain"
)

// Product is a catalog entry. The catalog is immutable for the
// service's runtime; only the reserved counter moves.
type Product struct {
	ItemID       int    `json:"itemId"`
	ItemName     string `json:"itemName"`
	Price        int    `json:"price"`
	InitialStock int64  `json:"initialStock"`
}

// ProductDetail is a Product plus its computed remaining stock.
type ProductDetail struct {
	Product
	CurrentStock int64 `json:"currentStock"`
}

// DefaultCatalog returns the built-in product list.
func DefaultCatalog() []Product {
	return []Product{
		{ItemID: 1, ItemName: "Suitcase 250", Price: 50, InitialStock: 4},
		{ItemID: 2, ItemName: "Suitcase 450", Price: 100, InitialStock: 10},
		{ItemID: 3, ItemName: "Suitcase 650", Price: 350, InitialStock: 2},
		{ItemID: 4, ItemName: "Suitcase 1050", Price: 550, InitialStock: 5},
	}
}

// itemKey is the per-product reserved-stock counter key.
func itemKey(id int) string { return fmt.Sprintf("item.%d", id) }

// ProductService reserves product stock by counting reservations
// upward against each product's fixed initial stock.
type ProductService struct {
	counters counter.Store
	catalog  map[int]Product
	order    []Product
	log      *zap.Logger
}

// NewProducts creates a product service over the given catalog.
func NewProducts(c counter.Store, catalog []Product, log *zap.Logger) *ProductService {
	byID := make(map[int]Product, len(catalog))
	for _, p := range catalog {
		byID[p.ItemID] = p
	}
	return &ProductService{counters: c, catalog: byID, order: catalog, log: log}
}

// Reset zeroes every product's reserved counter.
func (s *ProductService) Reset(ctx context.Context) error {
	for _, p := range s.order {
		if err := s.counters.Set(ctx, itemKey(p.ItemID), 0); err != nil {
			return err
		}
	}
	s.log.Info("product counters reset", zap.Int("products", len(s.order)))
	return nil
}

// List returns the catalog in definition order.
func (s *ProductService) List() []Product {
	out := make([]Product, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns a product with currentStock = initialStock − reserved.
func (s *ProductService) Get(ctx context.Context, id int) (*ProductDetail, error) {
	p, ok := s.catalog[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "product %d", id)
	}
	reserved, err := s.counters.Get(ctx, itemKey(id))
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: p, CurrentStock: p.InitialStock - reserved}, nil
}

// Reserve takes one unit of the product's stock. The increment is
// bounded by the initial stock inside a single atomic operation, so
// concurrent reservations cannot oversell.
func (s *ProductService) Reserve(ctx context.Context, id int) error {
	p, ok := s.catalog[id]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "product %d", id)
	}
	reserved, applied, err := s.counters.IncrWithCeiling(ctx, itemKey(id), p.InitialStock)
	if err != nil {
		return err
	}
	if !applied {
		return errors.Wrap(domain.ErrCapacityExceeded, "not enough stock available")
	}
	s.log.Info("product reserved",
		zap.Int("item_id", id),
		zap.Int64("reserved", reserved),
		zap.Int64("remaining", p.InitialStock-reserved),
	)
	return nil
}
