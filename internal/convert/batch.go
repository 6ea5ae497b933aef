package convert

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultParallel is the batch concurrency used when none is given.
// Each conversion runs its own ffmpeg processes.
const DefaultParallel = 4

// Item is the result of one request in a batch.
type Item struct {
	Request Request
	Outcome *Outcome
	Err     error
}

// RunBatch converts reqs with at most parallel conversions in flight.
// Items are returned in input order. A failing request does not stop the
// others; only ctx cancellation does, and requests not yet started then
// report ctx.Err().
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request, parallel int) []Item {
	if len(reqs) == 0 {
		return nil
	}
	if parallel < 1 {
		parallel = 1
	}

	items := make([]Item, len(reqs))
	var g errgroup.Group
	g.SetLimit(parallel)

	for i, req := range reqs {
		items[i].Request = req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Outcome, items[i].Err = p.Run(ctx, req)
			return nil
		})
	}
	_ = g.Wait() // goroutines report through items

	return items
}

// Failed returns the items that carry an error.
func Failed(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}
