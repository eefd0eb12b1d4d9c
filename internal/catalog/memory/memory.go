package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
)

// Store keeps the catalog in process memory. Lists come back in insertion
// order.
type Store struct {
	mu         sync.Mutex
	categories []core.Category
	products   []core.Product
	orders     []core.Order
	newID      func() string
}

func New() *Store {
	return &Store{newID: uuid.NewString}
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return core.Category{}, notFound("category", id)
	}
	return s.categories[i], nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(c.ID)
	if i < 0 {
		return core.Category{}, notFound("category", c.ID)
	}
	s.categories[i] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return notFound("category", id)
	}
	s.categories = slices.Delete(s.categories, i, i+1)
	for j, p := range s.products {
		if p.HasCategory(id) {
			s.products[j] = p.WithoutCategory(id)
		}
	}
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Product, len(s.products))
	for i, p := range s.products {
		out[i] = cloneProduct(p)
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return core.Product{}, notFound("product", id)
	}
	return cloneProduct(s.products[i]), nil
}

func (s *Store) CreateProduct(_ context.Context, p core.Product) (core.Product, error) {
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p = cloneProduct(p)
	p.ID = s.newID()
	s.products = append(s.products, p)
	return cloneProduct(p), nil
}

func (s *Store) UpdateProduct(_ context.Context, p core.Product) (core.Product, error) {
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(p.ID)
	if i < 0 {
		return core.Product{}, notFound("product", p.ID)
	}
	s.products[i] = cloneProduct(p)
	return cloneProduct(p), nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return notFound("product", id)
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

func (s *Store) ListOrders(_ context.Context) ([]core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = cloneOrder(o)
	}
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.orderIndex(id)
	if i < 0 {
		return core.Order{}, notFound("order", id)
	}
	return cloneOrder(s.orders[i]), nil
}

func (s *Store) CreateOrder(_ context.Context, o core.Order) (core.Order, error) {
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o = cloneOrder(o)
	o.ID = s.newID()
	s.orders = append(s.orders, o)
	return cloneOrder(o), nil
}

func (s *Store) UpdateOrder(_ context.Context, o core.Order) (core.Order, error) {
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.orderIndex(o.ID)
	if i < 0 {
		return core.Order{}, notFound("order", o.ID)
	}
	s.orders[i] = cloneOrder(o)
	return cloneOrder(o), nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.orderIndex(id)
	if i < 0 {
		return notFound("order", id)
	}
	s.orders = slices.Delete(s.orders, i, i+1)
	return nil
}

func (s *Store) MarkOrderProcessed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.orderIndex(id)
	if i < 0 {
		return notFound("order", id)
	}
	at = at.UTC()
	s.orders[i].ProcessedAt = &at
	return nil
}

func (s *Store) categoryIndex(id string) int {
	id = core.NormalizeID(id)
	return slices.IndexFunc(s.categories, func(c core.Category) bool { return c.ID == id })
}

func (s *Store) productIndex(id string) int {
	id = core.NormalizeID(id)
	return slices.IndexFunc(s.products, func(p core.Product) bool { return p.ID == id })
}

func (s *Store) orderIndex(id string) int {
	id = core.NormalizeID(id)
	return slices.IndexFunc(s.orders, func(o core.Order) bool { return o.ID == id })
}

func cloneProduct(p core.Product) core.Product {
	p.CategoryIDs = append([]string{}, p.CategoryIDs...)
	return p
}

func cloneOrder(o core.Order) core.Order {
	o.ProductIDs = append([]string{}, o.ProductIDs...)
	if o.ProcessedAt != nil {
		at := *o.ProcessedAt
		o.ProcessedAt = &at
	}
	return o
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, catalog.ErrNotFound)
}

var _ catalog.Repository = (*Store)(nil)
