// Package cursor pages through a catalog query by primary key.
//
// Each page is requested as "id > last id seen, ordered by id, first N",
// so a page never depends on the position of earlier pages. Records
// deleted or inserted behind the cursor cannot shift later pages, and a
// deleted last id is still a valid starting point.
package cursor

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/tabula/pkg/catalog"
)

// DefaultBatchSize is the number of ids fetched per page.
const DefaultBatchSize = 10000

// Done is returned by Next once the query is exhausted.
var Done = errors.New("no more batches")

// KeySource lists primary keys of matching records in ascending order.
// catalog.Store implements it.
type KeySource interface {
	IDsAfter(ctx context.Context, query *catalog.Query, after int64, limit int) ([]int64, error)
}

// Batch is one page of ids in ascending order.
type Batch []int64

// Last returns the greatest id of the batch.
func (b Batch) Last() int64 {
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1]
}

// NextBatch returns the first size ids of query greater than after. An
// empty batch means the query is exhausted.
func NextBatch(ctx context.Context, src KeySource, query *catalog.Query, after int64, size int) (Batch, error) {
	ids, err := src.IDsAfter(ctx, query, after, size)
	if err != nil {
		return nil, err
	}
	if len(ids) > size {
		return nil, fmt.Errorf("key source returned %d ids for a page of %d", len(ids), size)
	}
	prev := after
	for _, id := range ids {
		if id <= prev {
			return nil, fmt.Errorf("key source returned id %d after %d", id, prev)
		}
		prev = id
	}
	return Batch(ids), nil
}

// Cursor iterates a query batch by batch. A Cursor is not safe for
// concurrent use.
type Cursor struct {
	src   KeySource
	query *catalog.Query
	size  int
	after int64
	done  bool
}

// New creates a cursor over query. A size below one uses DefaultBatchSize.
func New(src KeySource, query *catalog.Query, size int) *Cursor {
	if size < 1 {
		size = DefaultBatchSize
	}
	return &Cursor{
		src:   src,
		query: query,
		size:  size,
	}
}

// Next returns the next batch, or Done when no ids remain.
func (c *Cursor) Next(ctx context.Context) (Batch, error) {
	if c.done {
		return nil, Done
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch, err := NextBatch(ctx, c.src, c.query, c.after, c.size)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		c.done = true
		return nil, Done
	}
	c.after = batch.Last()
	return batch, nil
}

// After returns the greatest id yielded so far.
func (c *Cursor) After() int64 {
	return c.after
}

// Size returns the page bound.
func (c *Cursor) Size() int {
	return c.size
}

// Batches calls fn for every remaining batch in order. Iteration stops at
// the first error, which is returned.
func (c *Cursor) Batches(ctx context.Context, fn func(Batch) error) error {
	for {
		batch, err := c.Next(ctx)
		if errors.Is(err, Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
}
