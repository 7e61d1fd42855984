package gradcheck

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Estimate is the finite-difference result for one parameter.
type Estimate struct {
	ID        Identity
	Numeric   float64 // (LossPlus - LossMinus) / (2ε); NaN when a loss is not finite
	LossPlus  float64 // Score at θ_i + ε
	LossMinus float64 // Score at θ_i - ε
}

// Finite reports whether both perturbed losses were finite.
func (e Estimate) Finite() bool {
	return isFinite(e.LossPlus) && isFinite(e.LossMinus)
}

// Estimator computes centered finite differences against one model.
//
// An Estimator mutates the model it wraps and must not be shared between
// goroutines. Replica sweeps give each worker its own Estimator bound to its
// own replica.
type Estimator struct {
	model   Model
	input   *mat.Dense
	labels  *mat.Dense
	epsilon float64
}

// NewEstimator creates an Estimator perturbing by ±epsilon.
func NewEstimator(m Model, input, labels *mat.Dense, epsilon float64) *Estimator {
	return &Estimator{model: m, input: input, labels: labels, epsilon: epsilon}
}

// Estimate perturbs the scalar addressed by id, scores the model twice and
// restores the original value.
//
// The restore runs in a deferred call: it happens even when Score returns a
// non-finite loss or panics, and it writes back the exact value read before
// the perturbation rather than an ε-adjusted one.
func (e *Estimator) Estimate(id Identity) Estimate {
	orig := e.model.Scalar(id)
	defer e.model.SetScalar(id, orig)

	e.model.SetScalar(id, orig+e.epsilon)
	plus := e.model.Score(e.input, e.labels)

	e.model.SetScalar(id, orig-e.epsilon)
	minus := e.model.Score(e.input, e.labels)

	est := Estimate{ID: id, LossPlus: plus, LossMinus: minus}
	if est.Finite() {
		est.Numeric = (plus - minus) / (2 * e.epsilon)
	} else {
		est.Numeric = math.NaN()
	}
	return est
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
