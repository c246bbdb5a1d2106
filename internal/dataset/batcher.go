package dataset

import (
	"context"
	"errors"
	"math/rand"

	"mlforge/internal/model"
)

// BatcherOptions configures the epoch batcher.
type BatcherOptions struct {
	Inputs    [][]float64
	Labels    []int
	BatchSize int
	Epochs    int
	Seed      int64
}

// StartBatcher streams shuffled minibatches over a channel, reshuffling the
// sample order every epoch. The channel closes after the final epoch or when
// ctx is cancelled.
func StartBatcher(ctx context.Context, opts BatcherOptions) (<-chan model.Batch, error) {
	if len(opts.Inputs) == 0 {
		return nil, errors.New("batcher: no samples provided")
	}
	if len(opts.Inputs) != len(opts.Labels) {
		return nil, errors.New("batcher: inputs and labels length mismatch")
	}
	if opts.BatchSize <= 0 || opts.BatchSize > len(opts.Inputs) {
		opts.BatchSize = len(opts.Inputs)
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 1
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	out := make(chan model.Batch)
	go func() {
		defer close(out)
		rng := rand.New(rand.NewSource(opts.Seed))
		n := len(opts.Inputs)
		for epoch := 0; epoch < opts.Epochs; epoch++ {
			indices := rng.Perm(n)
			for start := 0; start < n; start += opts.BatchSize {
				end := start + opts.BatchSize
				if end > n {
					end = n
				}
				batch := model.Batch{
					Inputs: make([][]float64, 0, end-start),
					Labels: make([]int, 0, end-start),
				}
				for _, idx := range indices[start:end] {
					batch.Inputs = append(batch.Inputs, opts.Inputs[idx])
					batch.Labels = append(batch.Labels, opts.Labels[idx])
				}
				select {
				case <-ctx.Done():
					return
				case out <- batch:
				}
			}
		}
	}()
	return out, nil
}
