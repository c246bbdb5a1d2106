// Package metrics provides classification scoring and training telemetry.
package metrics

import (
	"fmt"
	"time"
)

// Window accumulates timing stats across multiple epochs.
type Window struct {
	samples  int
	load     time.Duration
	compute  time.Duration
	epochs   int
	lastLoss float64
}

// Record adds a new epoch measurement to the window.
func (w *Window) Record(samples int, loadTime, computeTime time.Duration, loss float64) {
	w.samples += samples
	w.load += loadTime
	w.compute += computeTime
	w.epochs++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.load + w.compute
	if total > 0 {
		snap.SamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.epochs > 0 {
		snap.AvgLoadMS = (w.load.Seconds() * 1000) / float64(w.epochs)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.epochs)
	}
	snap.LastLoss = w.lastLoss

	w.samples = 0
	w.load = 0
	w.compute = 0
	w.epochs = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	SamplesPerSec float64
	AvgLoadMS     float64
	AvgComputeMS  float64
	LastLoss      float64
}

// Accuracy returns the fraction of predictions matching the true labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	correct := 0
	for i, label := range yTrue {
		if yPred[i] == label {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ConfusionMatrix counts predictions by (true, predicted) class. Row sums
// equal class-wise true counts and column sums equal predicted counts.
func ConfusionMatrix(yTrue, yPred []int, classes int) ([][]int, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("metrics: %d true labels but %d predictions", len(yTrue), len(yPred))
	}
	if classes <= 0 {
		return nil, fmt.Errorf("metrics: classes must be > 0 (got %d)", classes)
	}
	matrix := make([][]int, classes)
	for i := range matrix {
		matrix[i] = make([]int, classes)
	}
	for i, label := range yTrue {
		pred := yPred[i]
		if label < 0 || label >= classes || pred < 0 || pred >= classes {
			return nil, fmt.Errorf("metrics: label pair (%d,%d) outside %d classes", label, pred, classes)
		}
		matrix[label][pred]++
	}
	return matrix, nil
}
