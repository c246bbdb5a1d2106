package mathx

import (
	"errors"
	"math"
	"testing"
)

func TestArithmetic(t *testing.T) {
	if got := Add(2, 3); got != 5 {
		t.Fatalf("Add(2,3) = %v", got)
	}
	if got := Subtract(2, 3); got != -1 {
		t.Fatalf("Subtract(2,3) = %v", got)
	}
	if got := Multiply(4, 2.5); got != 10 {
		t.Fatalf("Multiply(4,2.5) = %v", got)
	}
}

func TestDivideSafely(t *testing.T) {
	got, err := DivideSafely(10, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2.5 {
		t.Fatalf("DivideSafely(10,4) = %v", got)
	}

	if _, err := DivideSafely(10, 0); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestAverage(t *testing.T) {
	if got := Average(nil); got != 0 {
		t.Fatalf("Average(nil) = %v", got)
	}
	if got := Average([]float64{2, 4}); got != 3 {
		t.Fatalf("Average([2,4]) = %v", got)
	}
	if got := Average([]float64{1.5}); math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("Average([1.5]) = %v", got)
	}
}

func TestFibonacci(t *testing.T) {
	want := []int{0, 1, 1, 2, 3, 5, 8, 13, 21, 34}
	for n, w := range want {
		if got := Fibonacci(n); got != w {
			t.Fatalf("Fibonacci(%d) = %d, want %d", n, got, w)
		}
	}
	if got := Fibonacci(-3); got != 0 {
		t.Fatalf("Fibonacci(-3) = %d", got)
	}
}
