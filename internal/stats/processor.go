// Package stats provides a small named accumulator for summary statistics.
package stats

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Filter transforms a single sample.
type Filter func(float64) float64

// Processor accumulates float64 samples under a name and applies named filters.
type Processor struct {
	name    string
	data    []float64
	filters map[string]Filter
}

// NewProcessor constructs an empty Processor. An empty name defaults to "default".
func NewProcessor(name string) *Processor {
	if name == "" {
		name = "default"
	}
	return &Processor{
		name: name,
		filters: map[string]Filter{
			"square": func(x float64) float64 { return x * x },
			"cube":   func(x float64) float64 { return x * x * x },
			"abs":    math.Abs,
		},
	}
}

// Name returns the processor's name.
func (p *Processor) Name() string { return p.name }

// Len returns the number of accumulated samples.
func (p *Processor) Len() int { return len(p.data) }

// Add appends a single sample.
func (p *Processor) Add(v float64) {
	p.data = append(p.data, v)
}

// AddAll appends every sample in xs.
func (p *Processor) AddAll(xs []float64) {
	p.data = append(p.data, xs...)
}

// RegisterFilter stores fn under name, replacing any existing filter.
func (p *Processor) RegisterFilter(name string, fn Filter) {
	p.filters[name] = fn
}

// Mean returns the mean of the accumulated samples. ok is false when empty.
func (p *Processor) Mean() (mean float64, ok bool) {
	if len(p.data) == 0 {
		return 0, false
	}
	return stat.Mean(p.data, nil), true
}

// Median returns the median of the accumulated samples. ok is false when empty.
func (p *Processor) Median() (median float64, ok bool) {
	n := len(p.data)
	if n == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), p.data...)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2, true
	}
	return sorted[n/2], true
}

// ApplyFilter returns a copy of the data transformed by the named filter.
// Unknown names return the data unchanged.
func (p *Processor) ApplyFilter(name string) []float64 {
	out := append([]float64(nil), p.data...)
	fn, ok := p.filters[name]
	if !ok {
		return out
	}
	for i, v := range out {
		out[i] = fn(v)
	}
	return out
}

// StdDev returns the sample standard deviation of xs, or 0 for fewer than two points.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// FromCSV builds a Processor from the first column of a CSV file.
func FromCSV(path string) (*Processor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	p := NewProcessor("csv_" + path)
	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		p.Add(v)
	}
	return p, nil
}

// Summary aggregates basic descriptive statistics over a sample set.
type Summary struct {
	Min   float64
	Max   float64
	Sum   float64
	Count int
}

// Summarize computes a Summary over xs, honoring ctx cancellation.
// Min and Max are 0 for empty input.
func Summarize(ctx context.Context, xs []float64) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	s := Summary{Count: len(xs)}
	if len(xs) == 0 {
		return s, nil
	}
	s.Min = xs[0]
	s.Max = xs[0]
	for _, x := range xs {
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
		s.Sum += x
	}
	return s, nil
}
