package pdf

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit bounds a batch when the caller passes no limit.
const DefaultBatchLimit = 4

// GenerateBatch generates independent documents with at most limit running at
// once. Results are in request order. One failed document does not stop the
// others.
func (g *Generator) GenerateBatch(ctx context.Context, reqs []Request, limit int) []BatchResult {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	results := make([]BatchResult, len(reqs))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, req := range reqs {
		eg.Go(func() error {
			res, err := g.Generate(gctx, req.Config, req.Content)
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	return results
}
