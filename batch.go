package kitabi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome for one document of a batch.
type BatchResult struct {
	Name   string
	Record Record
	Err    error
}

// ProcessBatch processes docs with at most workers running at once and
// returns one result per document, in input order. A failing document does
// not stop the others; only ctx cancellation does. workers <= 0 means one.
func ProcessBatch(ctx context.Context, p *Pipeline, docs []Document, workers int, opts ...ProcessOption) []BatchResult {
	results := make([]BatchResult, len(docs))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, doc := range docs {
		results[i].Name = doc.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			rec, err := p.Process(ctx, doc, opts...)
			if err != nil {
				p.logger.Warn("document failed", "name", doc.Name, "error", err)
			}
			results[i].Record, results[i].Err = rec, err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
