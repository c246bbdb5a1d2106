// Package mathx provides the basic arithmetic helpers used across the pipeline.
package mathx

import "errors"

// ErrDivideByZero is returned by DivideSafely when the denominator is zero.
var ErrDivideByZero = errors.New("mathx: divide by zero")

// Add returns the sum of a and b.
func Add(a, b float64) float64 {
	return a + b
}

// Subtract returns a minus b.
func Subtract(a, b float64) float64 {
	return a - b
}

// Multiply returns the product of a and b.
func Multiply(a, b float64) float64 {
	return a * b
}

// DivideSafely divides num by den, returning an error instead of Inf when den is zero.
func DivideSafely(num, den float64) (float64, error) {
	if den == 0 {
		return 0, ErrDivideByZero
	}
	return num / den, nil
}

// Average returns the mean of xs, or 0 for an empty slice.
func Average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Fibonacci returns the nth Fibonacci number, with Fibonacci(0) == 0.
func Fibonacci(n int) int {
	if n <= 0 {
		return 0
	}
	a, b := 0, 1
	for i := 1; i < n; i++ {
		a, b = b, a+b
	}
	return b
}
