package rag

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RetrieveBatch runs several retrievals concurrently and returns their
// results positionally aligned with queries. The first failure cancels the
// rest and is returned.
func (p *Processor) RetrieveBatch(ctx context.Context, queries []*Query) ([]*Result, error) {
	results := make([]*Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	// Request concurrency is limited outside the scoring pool; a request
	// holding a pool slot while its own scoring chunks wait for one would
	// deadlock.
	g.SetLimit(p.pool.Size())
	for i, q := range queries {
		g.Go(func() error {
			res, err := p.Retrieve(gctx, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
