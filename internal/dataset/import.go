// Package dataset moves samples between CSV files, the store, and the
// training loop.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"mlforge/internal/storage/sqlite"
)

// ImportCSV parses every file in paths concurrently and stores the samples
// under tag. Each row is a feature vector followed by an integer label in
// the last column. It returns the number of samples imported.
func ImportCSV(ctx context.Context, store *sqlite.Store, paths []string, tag string, workers int) (int, error) {
	if len(paths) == 0 {
		return 0, fmt.Errorf("dataset: no csv paths provided")
	}
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	parsed := make([][]sqlite.Sample, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			samples, err := parseCSV(path, tag)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parsed[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, samples := range parsed {
		if err := store.InsertSamples(ctx, samples); err != nil {
			return total, err
		}
		total += len(samples)
	}
	return total, nil
}

func parseCSV(path, tag string) ([]sqlite.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var samples []sqlite.Sample
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d: need at least one feature and a label", i+1)
		}
		features := make([]float64, len(rec)-1)
		for j, field := range rec[:len(rec)-1] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			features[j] = v
		}
		label, err := strconv.Atoi(rec[len(rec)-1])
		if err != nil {
			return nil, fmt.Errorf("row %d label: %w", i+1, err)
		}
		samples = append(samples, sqlite.Sample{Features: features, Label: label, Tag: tag})
	}
	return samples, nil
}

// ToFeatures splits stored samples into a feature matrix (as rows) and a
// label slice.
func ToFeatures(samples []sqlite.Sample) ([][]float64, []int, error) {
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("dataset: no samples")
	}
	width := len(samples[0].Features)
	inputs := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	for i, sample := range samples {
		if len(sample.Features) != width {
			return nil, nil, fmt.Errorf("dataset: sample %d has %d features, want %d",
				sample.ID, len(sample.Features), width)
		}
		inputs[i] = sample.Features
		labels[i] = sample.Label
	}
	return inputs, labels, nil
}
