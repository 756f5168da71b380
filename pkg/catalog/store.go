package catalog

import "context"

// Store is the record source exports read from.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// IDsAfter returns at most limit ids of records matching query that are
	// strictly greater than after, in ascending order.
	IDsAfter(ctx context.Context, query *Query, after int64, limit int) ([]int64, error)

	// Count returns the number of records matching query.
	Count(ctx context.Context, query *Query) (int64, error)

	// Products loads products by id with their related entities, ordered by
	// id. Ids that no longer exist are skipped.
	Products(ctx context.Context, ids []int64) ([]*Product, error)

	// Orders loads orders by id with customer and shipping address, ordered
	// by id. Ids that no longer exist are skipped.
	Orders(ctx context.Context, ids []int64) ([]*Order, error)

	// PutProduct inserts or replaces a product.
	PutProduct(ctx context.Context, product *Product) error

	// PutOrder inserts or replaces an order.
	PutOrder(ctx context.Context, order *Order) error

	// Delete removes a record and reports whether it existed.
	Delete(ctx context.Context, kind Kind, id int64) (bool, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
