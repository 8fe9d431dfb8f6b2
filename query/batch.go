package query

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit bounds how many portal sessions a batch holds open
// at once. The portal's CAPTCHA semantics are per-session, so each
// entry still runs a fully independent query.
const DefaultBatchLimit = 5

// BatchEntry pairs an input process number with its query result.
type BatchEntry struct {
	Processo string  `json:"processo"`
	Result   *Result `json:"resultado"`
}

// RunBatch runs one independent query per number with at most limit in
// flight. Entries come back in input order; a failing entry never
// affects its siblings. Cancelling ctx stops all in-flight queries.
func (e *Engine) RunBatch(ctx context.Context, numbers []string, limit int) []BatchEntry {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	entries := make([]BatchEntry, len(numbers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, number := range numbers {
		g.Go(func() error {
			entries[i] = BatchEntry{
				Processo: number,
				Result:   e.Run(ctx, number),
			}
			return nil
		})
	}
	g.Wait()

	return entries
}
