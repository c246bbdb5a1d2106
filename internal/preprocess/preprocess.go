// Package preprocess implements the feature pipeline applied before training:
// z-score scaling, outlier removal, and the train/val/test split.
package preprocess

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrNotFitted is returned by Transform when Fit has not been called.
var ErrNotFitted = errors.New("preprocess: scaler not fitted")

// Scaler rescales each feature column to zero mean and unit variance.
type Scaler struct {
	mean []float64
	std  []float64
}

// Fit computes per-column population mean and standard deviation from X.
// Zero-variance columns get a standard deviation of 1 so Transform is a no-op
// on them.
func (s *Scaler) Fit(X *mat.Dense) {
	rows, cols := X.Dims()
	s.mean = make([]float64, cols)
	s.std = make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, X)
		sum := 0.0
		for _, v := range col {
			sum += v
		}
		mean := sum / float64(rows)
		variance := 0.0
		for _, v := range col {
			d := v - mean
			variance += d * d
		}
		variance /= float64(rows)
		std := math.Sqrt(variance)
		if std == 0 {
			std = 1
		}
		s.mean[j] = mean
		s.std[j] = std
	}
}

// Transform returns a scaled copy of X using the fitted statistics.
func (s *Scaler) Transform(X *mat.Dense) (*mat.Dense, error) {
	if s.mean == nil || s.std == nil {
		return nil, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(s.mean) {
		return nil, fmt.Errorf("preprocess: fitted on %d features, got %d", len(s.mean), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (X.At(i, j)-s.mean[j])/s.std[j])
		}
	}
	return out, nil
}

// FitTransform fits the scaler on X and returns the scaled copy.
func (s *Scaler) FitTransform(X *mat.Dense) *mat.Dense {
	s.Fit(X)
	out, _ := s.Transform(X)
	return out
}

// Split holds the three disjoint partitions produced by TrainTestSplit.
type Split struct {
	XTrain, XVal, XTest *mat.Dense
	YTrain, YVal, YTest []int
}

// TrainTestSplit shuffles sample indices with the given seed and partitions
// them into test, validation, and training sets. The first int(n*testFrac)
// shuffled indices become the test set, the next int(n*valFrac) the
// validation set, and the remainder the training set.
func TrainTestSplit(X *mat.Dense, y []int, testFrac, valFrac float64, seed int64) (Split, error) {
	rows, _ := X.Dims()
	if rows != len(y) {
		return Split{}, fmt.Errorf("preprocess: %d rows but %d labels", rows, len(y))
	}
	if testFrac < 0 || valFrac < 0 || testFrac+valFrac >= 1 {
		return Split{}, fmt.Errorf("preprocess: invalid split fractions test=%v val=%v", testFrac, valFrac)
	}

	rng := rand.New(rand.NewSource(seed))
	indices := rng.Perm(rows)

	nTest := int(float64(rows) * testFrac)
	nVal := int(float64(rows) * valFrac)

	testIdx := indices[:nTest]
	valIdx := indices[nTest : nTest+nVal]
	trainIdx := indices[nTest+nVal:]

	split := Split{}
	split.XTest, split.YTest = takeRows(X, y, testIdx)
	split.XVal, split.YVal = takeRows(X, y, valIdx)
	split.XTrain, split.YTrain = takeRows(X, y, trainIdx)
	return split, nil
}

// RemoveOutliers drops rows containing any feature whose absolute z-score
// meets or exceeds threshold. It returns the kept rows and a per-row mask
// that is true for kept rows.
func RemoveOutliers(X *mat.Dense, threshold float64) (*mat.Dense, []bool) {
	rows, cols := X.Dims()
	var s Scaler
	s.Fit(X)

	mask := make([]bool, rows)
	var keep []int
	for i := 0; i < rows; i++ {
		ok := true
		for j := 0; j < cols; j++ {
			z := math.Abs((X.At(i, j) - s.mean[j]) / s.std[j])
			if z >= threshold {
				ok = false
				break
			}
		}
		mask[i] = ok
		if ok {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, mask
	}
	kept := mat.NewDense(len(keep), cols, nil)
	for r, i := range keep {
		kept.SetRow(r, mat.Row(nil, i, X))
	}
	return kept, mask
}

// takeRows copies the selected rows and labels. A nil matrix is returned for
// an empty selection since gonum rejects zero-sized matrices.
func takeRows(X *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	if len(idx) == 0 {
		return nil, nil
	}
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	labels := make([]int, len(idx))
	for r, i := range idx {
		out.SetRow(r, mat.Row(nil, i, X))
		labels[r] = y[i]
	}
	return out, labels
}
