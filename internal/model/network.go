package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const logEpsilon = 1e-8

// Network is a dense feed-forward classifier with ReLU hidden layers and a
// softmax output, trained by full-batch gradient descent.
type Network struct {
	sizes   []int
	weights []*mat.Dense // sizes[i] x sizes[i+1]
	biases  []*mat.Dense // 1 x sizes[i+1]
	lr      float64
}

// NewNetwork constructs a network with the given layer sizes using
// Xavier-scaled random initialization. Adjacent layers are dimensioned to
// match by construction; sizes must name at least an input and output layer.
func NewNetwork(sizes []int, lr float64, seed int64) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("model: need at least input and output layer sizes, got %d", len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("model: layer %d size must be > 0 (got %d)", i, s)
		}
	}
	if lr <= 0 {
		lr = 0.01
	}

	rng := rand.New(rand.NewSource(seed))
	n := &Network{
		sizes:   append([]int(nil), sizes...),
		weights: make([]*mat.Dense, len(sizes)-1),
		biases:  make([]*mat.Dense, len(sizes)-1),
		lr:      lr,
	}
	for i := 0; i < len(sizes)-1; i++ {
		scale := math.Sqrt(2.0 / float64(sizes[i]))
		w := make([]float64, sizes[i]*sizes[i+1])
		for j := range w {
			w[j] = rng.NormFloat64() * scale
		}
		n.weights[i] = mat.NewDense(sizes[i], sizes[i+1], w)
		n.biases[i] = mat.NewDense(1, sizes[i+1], nil)
	}
	return n, nil
}

// NumClasses returns the width of the output layer.
func (n *Network) NumClasses() int { return n.sizes[len(n.sizes)-1] }

// InputSize returns the width of the input layer.
func (n *Network) InputSize() int { return n.sizes[0] }

// Forward runs a forward pass and returns the activations of every layer,
// input included. Hidden layers use ReLU; the output layer uses a
// numerically stable softmax, so each output row sums to 1.
func (n *Network) Forward(X *mat.Dense) ([]*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != n.sizes[0] {
		return nil, fmt.Errorf("model: expected %d input features, got %d", n.sizes[0], cols)
	}

	activations := make([]*mat.Dense, 0, len(n.weights)+1)
	activations = append(activations, X)
	current := X
	for i, w := range n.weights {
		_, width := w.Dims()
		z := mat.NewDense(rows, width, nil)
		z.Mul(current, w)
		for r := 0; r < rows; r++ {
			for c := 0; c < width; c++ {
				z.Set(r, c, z.At(r, c)+n.biases[i].At(0, c))
			}
		}
		if i < len(n.weights)-1 {
			z.Apply(func(_, _ int, v float64) float64 {
				return math.Max(0, v)
			}, z)
		} else {
			softmaxRows(z)
		}
		activations = append(activations, z)
		current = z
	}
	return activations, nil
}

// TrainEpoch runs one forward/backward pass over the full batch and applies
// an SGD update. Y is one-hot with one column per class. The returned value
// is the mean cross-entropy loss before the update.
func (n *Network) TrainEpoch(X, Y *mat.Dense) (float64, error) {
	activations, err := n.Forward(X)
	if err != nil {
		return 0, err
	}
	m, classes := Y.Dims()
	rows, _ := X.Dims()
	if m != rows || classes != n.NumClasses() {
		return 0, fmt.Errorf("model: labels are %dx%d, want %dx%d", m, classes, rows, n.NumClasses())
	}

	probs := activations[len(activations)-1]
	loss := 0.0
	for r := 0; r < m; r++ {
		for c := 0; c < classes; c++ {
			loss -= Y.At(r, c) * math.Log(probs.At(r, c)+logEpsilon)
		}
	}
	loss /= float64(m)

	n.backward(Y, activations)
	return loss, nil
}

// backward computes layer gradients from the softmax/cross-entropy error and
// applies the SGD update in place.
func (n *Network) backward(Y *mat.Dense, activations []*mat.Dense) {
	m, _ := Y.Dims()
	invM := 1.0 / float64(m)

	dz := &mat.Dense{}
	dz.Sub(activations[len(activations)-1], Y)

	for i := len(n.weights) - 1; i >= 0; i-- {
		dW := &mat.Dense{}
		dW.Mul(activations[i].T(), dz)
		dW.Scale(invM, dW)

		_, width := dz.Dims()
		db := mat.NewDense(1, width, nil)
		for c := 0; c < width; c++ {
			sum := 0.0
			for r := 0; r < m; r++ {
				sum += dz.At(r, c)
			}
			db.Set(0, c, sum*invM)
		}

		if i > 0 {
			// Propagate through the previous ReLU before the weights move.
			next := &mat.Dense{}
			next.Mul(dz, n.weights[i].T())
			prev := activations[i]
			rows, cols := next.Dims()
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					if prev.At(r, c) <= 0 {
						next.Set(r, c, 0)
					}
				}
			}
			dz = next
		}

		dW.Scale(n.lr, dW)
		n.weights[i].Sub(n.weights[i], dW)
		db.Scale(n.lr, db)
		n.biases[i].Sub(n.biases[i], db)
	}
}

// PredictMatrix returns the argmax class per row of X.
func (n *Network) PredictMatrix(X *mat.Dense) ([]int, error) {
	activations, err := n.Forward(X)
	if err != nil {
		return nil, err
	}
	probs := activations[len(activations)-1]
	rows, cols := probs.Dims()
	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		best, bestV := 0, probs.At(r, 0)
		for c := 1; c < cols; c++ {
			if v := probs.At(r, c); v > bestV {
				best, bestV = c, v
			}
		}
		out[r] = best
	}
	return out, nil
}

// TrainStep trains on one minibatch and returns its mean loss. It adapts the
// Batch form used by the data pipeline to the matrix API.
func (n *Network) TrainStep(batch Batch) float64 {
	X, Y, ok := n.batchMatrices(batch)
	if !ok {
		return 0
	}
	loss, err := n.TrainEpoch(X, Y)
	if err != nil {
		return 0
	}
	return loss
}

// Predict returns the argmax class per input row.
func (n *Network) Predict(inputs [][]float64) []int {
	X, ok := rowsToDense(inputs, n.sizes[0])
	if !ok {
		return nil
	}
	out, err := n.PredictMatrix(X)
	if err != nil {
		return nil
	}
	return out
}

func (n *Network) batchMatrices(batch Batch) (*mat.Dense, *mat.Dense, bool) {
	X, ok := rowsToDense(batch.Inputs, n.sizes[0])
	if !ok || len(batch.Labels) != len(batch.Inputs) {
		return nil, nil, false
	}
	Y := OneHot(batch.Labels, n.NumClasses())
	return X, Y, true
}

// OneHot encodes labels as a one-hot matrix with one column per class.
// Out-of-range labels wrap around, mirroring the clamping the sampler applies.
func OneHot(labels []int, classes int) *mat.Dense {
	Y := mat.NewDense(len(labels), classes, nil)
	for r, label := range labels {
		label %= classes
		if label < 0 {
			label += classes
		}
		Y.Set(r, label, 1)
	}
	return Y
}

func rowsToDense(rows [][]float64, width int) (*mat.Dense, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	out := mat.NewDense(len(rows), width, nil)
	for r, row := range rows {
		if len(row) != width {
			return nil, false
		}
		out.SetRow(r, row)
	}
	return out, true
}

// softmaxRows rewrites each row of z as a probability distribution using the
// max-shift for numerical stability.
func softmaxRows(z *mat.Dense) {
	rows, cols := z.Dims()
	for r := 0; r < rows; r++ {
		maxV := z.At(r, 0)
		for c := 1; c < cols; c++ {
			if v := z.At(r, c); v > maxV {
				maxV = v
			}
		}
		sum := 0.0
		for c := 0; c < cols; c++ {
			e := math.Exp(z.At(r, c) - maxV)
			z.Set(r, c, e)
			sum += e
		}
		inv := 1.0 / sum
		for c := 0; c < cols; c++ {
			z.Set(r, c, z.At(r, c)*inv)
		}
	}
}
