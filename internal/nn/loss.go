package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// minProbability clips probabilities before taking logarithms.
const minProbability = 1e-300

// LossFunction scores output activations against labels.
//
// Both methods work on sums over examples; the network divides by the
// minibatch size. Gradient returns dLoss/dz for the pre-activations z of the
// output layer.
type LossFunction interface {
	Name() string
	Score(labels, z *mat.Dense, act Activation) float64
	Gradient(labels, z *mat.Dense, act Activation) *mat.Dense
}

// MCXENT is multi-class cross entropy: -Σ y·log(a).
//
// Paired with Softmax the gradient collapses to a·Σy - y per row, which is
// a - y for one-hot labels. Multi-hot and all-zero rows are valid labels.
// With other activations the general chain rule through act.Backward is
// used.
type MCXENT struct{}

// Name returns "mcxent".
func (MCXENT) Name() string { return "mcxent" }

// Score returns the summed cross entropy.
func (MCXENT) Score(labels, z *mat.Dense, act Activation) float64 {
	a := act.Forward(z)
	r, c := a.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			y := labels.At(i, j)
			if y != 0 {
				s -= y * math.Log(math.Max(a.At(i, j), minProbability))
			}
		}
	}
	return s
}

// Gradient returns dLoss/dz.
func (MCXENT) Gradient(labels, z *mat.Dense, act Activation) *mat.Dense {
	a := act.Forward(z)
	if _, ok := act.(Softmax); ok {
		r, _ := a.Dims()
		for i := 0; i < r; i++ {
			y := labels.RawRowView(i)
			row := a.RawRowView(i)
			floats.Scale(floats.Sum(y), row)
			floats.Sub(row, y)
		}
		return a
	}
	var dA mat.Dense
	dA.Apply(func(i, j int, av float64) float64 {
		return -labels.At(i, j) / math.Max(av, minProbability)
	}, a)
	return act.Backward(z, a, &dA)
}

// MSE is the mean squared error over output units, summed over examples:
// Σ_examples (1/nOut) Σ_j (a_j - y_j)².
type MSE struct{}

// Name returns "mse".
func (MSE) Name() string { return "mse" }

// Score returns the summed squared error.
func (MSE) Score(labels, z *mat.Dense, act Activation) float64 {
	a := act.Forward(z)
	_, c := a.Dims()
	var d mat.Dense
	d.Sub(a, labels)
	return mat.Sum(mulElem(&d, &d)) / float64(c)
}

// Gradient returns dLoss/dz.
func (MSE) Gradient(labels, z *mat.Dense, act Activation) *mat.Dense {
	a := act.Forward(z)
	_, c := a.Dims()
	var dA mat.Dense
	dA.Sub(a, labels)
	dA.Scale(2/float64(c), &dA)
	return act.Backward(z, a, &dA)
}
