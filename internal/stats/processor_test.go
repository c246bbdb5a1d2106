package stats

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMeanAndMedian(t *testing.T) {
	p := NewProcessor("t")
	if _, ok := p.Mean(); ok {
		t.Fatalf("expected no mean on empty data")
	}
	if _, ok := p.Median(); ok {
		t.Fatalf("expected no median on empty data")
	}

	p.AddAll([]float64{4, 1, 3, 2})
	mean, ok := p.Mean()
	if !ok || math.Abs(mean-2.5) > 1e-12 {
		t.Fatalf("mean = %v, ok = %v", mean, ok)
	}
	median, ok := p.Median()
	if !ok || math.Abs(median-2.5) > 1e-12 {
		t.Fatalf("median = %v, ok = %v", median, ok)
	}

	p.Add(5)
	median, _ = p.Median()
	if median != 3 {
		t.Fatalf("odd-length median = %v", median)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float64{7}); got != 0 {
		t.Fatalf("single-point stddev = %v", got)
	}
	// Sample (n-1) estimator: variance of {2,4,4,4,5,5,7,9} is 32/7.
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("stddev = %v, want %v", got, want)
	}
}

func TestApplyFilter(t *testing.T) {
	p := NewProcessor("t")
	p.AddAll([]float64{-2, 3})

	got := p.ApplyFilter("square")
	if got[0] != 4 || got[1] != 9 {
		t.Fatalf("square filter = %v", got)
	}

	got = p.ApplyFilter("nope")
	if got[0] != -2 || got[1] != 3 {
		t.Fatalf("unknown filter should pass through, got %v", got)
	}

	p.RegisterFilter("half", func(x float64) float64 { return x / 2 })
	got = p.ApplyFilter("half")
	if got[0] != -1 || got[1] != 1.5 {
		t.Fatalf("custom filter = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(context.Background(), []float64{3, -1, 2})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Min != -1 || s.Max != 3 || s.Sum != 4 || s.Count != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}

	s, err = Summarize(context.Background(), nil)
	if err != nil {
		t.Fatalf("summarize empty: %v", err)
	}
	if s.Min != 0 || s.Max != 0 || s.Count != 0 {
		t.Fatalf("empty summary %+v", s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Summarize(ctx, []float64{1}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vals.csv")
	if err := os.WriteFile(path, []byte("1.5\n2.5\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	p, err := FromCSV(path)
	if err != nil {
		t.Fatalf("from csv: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("len = %d", p.Len())
	}
	mean, _ := p.Mean()
	if mean != 2 {
		t.Fatalf("mean = %v", mean)
	}

	bad := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(bad, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := FromCSV(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}
