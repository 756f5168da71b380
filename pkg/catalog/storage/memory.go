package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mercator-hq/tabula/pkg/catalog"
)

// MemoryStore implements catalog.Store using in-memory maps.
type MemoryStore struct {
	products map[int64]*catalog.Product
	orders   map[int64]*catalog.Order
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]*catalog.Product),
		orders:   make(map[int64]*catalog.Order),
	}
}

// IDsAfter returns matching ids greater than after in ascending order.
func (s *MemoryStore) IDsAfter(ctx context.Context, query *catalog.Query, after int64, limit int) ([]int64, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, catalog.NewStorageError("memory", "ids_after", fmt.Errorf("limit must be positive, got %d", limit))
	}

	ids := s.matching(query, after)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Count returns the number of records matching query.
func (s *MemoryStore) Count(ctx context.Context, query *catalog.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, err
	}
	return int64(len(s.matching(query, 0))), nil
}

func (s *MemoryStore) matching(query *catalog.Query, after int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	switch query.Kind {
	case catalog.KindProduct:
		for id, p := range s.products {
			if id > after && query.MatchProduct(p) {
				ids = append(ids, id)
			}
		}
	case catalog.KindOrder:
		for id, o := range s.orders {
			if id > after && query.MatchOrder(o) {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// Products returns copies of the requested products ordered by id.
func (s *MemoryStore) Products(ctx context.Context, ids []int64) ([]*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := sortedIDs(ids)

	products := make([]*catalog.Product, 0, len(sorted))
	for _, id := range sorted {
		if p, ok := s.products[id]; ok {
			products = append(products, p.Clone())
		}
	}
	return products, nil
}

// Orders returns copies of the requested orders ordered by id.
func (s *MemoryStore) Orders(ctx context.Context, ids []int64) ([]*catalog.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := sortedIDs(ids)

	orders := make([]*catalog.Order, 0, len(sorted))
	for _, id := range sorted {
		if o, ok := s.orders[id]; ok {
			orders = append(orders, o.Clone())
		}
	}
	return orders, nil
}

// PutProduct stores a copy of the product.
func (s *MemoryStore) PutProduct(ctx context.Context, product *catalog.Product) error {
	if product == nil || product.ID <= 0 {
		return catalog.NewStorageError("memory", "put_product", fmt.Errorf("product must have a positive id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = normalizeProduct(product)
	return nil
}

// PutOrder stores a copy of the order.
func (s *MemoryStore) PutOrder(ctx context.Context, order *catalog.Order) error {
	if order == nil || order.ID <= 0 {
		return catalog.NewStorageError("memory", "put_order", fmt.Errorf("order must have a positive id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = normalizeOrder(order)
	return nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(ctx context.Context, kind catalog.Kind, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case catalog.KindProduct:
		_, ok := s.products[id]
		delete(s.products, id)
		return ok, nil
	case catalog.KindOrder:
		_, ok := s.orders[id]
		delete(s.orders, id)
		return ok, nil
	}
	return false, catalog.NewStorageError("memory", "delete", fmt.Errorf("unknown record kind %q", kind))
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[int64]*catalog.Product)
	s.orders = make(map[int64]*catalog.Order)
	return nil
}
