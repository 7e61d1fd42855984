package nn

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultLeakyReLUAlpha is the negative-side slope used when none is given.
const DefaultLeakyReLUAlpha = 0.01

// Activation is an element-wise (or, for Softmax, row-wise) non-linearity.
//
// Forward maps pre-activations z to activations a. Backward maps the loss
// gradient w.r.t. a back to the gradient w.r.t. z, given both z and a from
// the same forward pass. Neither method modifies its arguments.
type Activation interface {
	Name() string
	Forward(z *mat.Dense) *mat.Dense
	Backward(z, a, grad *mat.Dense) *mat.Dense
}

// Identity passes values through unchanged.
type Identity struct{}

// Name returns "identity".
func (Identity) Name() string { return "identity" }

// Forward returns a copy of z.
func (Identity) Forward(z *mat.Dense) *mat.Dense { return mat.DenseCopyOf(z) }

// Backward returns a copy of grad.
func (Identity) Backward(_, _, grad *mat.Dense) *mat.Dense { return mat.DenseCopyOf(grad) }

// Tanh applies the hyperbolic tangent.
type Tanh struct{}

// Name returns "tanh".
func (Tanh) Name() string { return "tanh" }

// Forward applies tanh(z).
func (Tanh) Forward(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return math.Tanh(v) })
}

// Backward computes grad ⊙ (1 - a²).
func (Tanh) Backward(_, a, grad *mat.Dense) *mat.Dense {
	return combine(a, grad, func(av, g float64) float64 { return g * (1 - av*av) })
}

// Sigmoid applies the logistic function.
type Sigmoid struct{}

// Name returns "sigmoid".
func (Sigmoid) Name() string { return "sigmoid" }

// Forward applies 1 / (1 + e^-z).
func (Sigmoid) Forward(z *mat.Dense) *mat.Dense {
	return apply(z, sigmoid)
}

// Backward computes grad ⊙ a ⊙ (1 - a).
func (Sigmoid) Backward(_, a, grad *mat.Dense) *mat.Dense {
	return combine(a, grad, func(av, g float64) float64 { return g * av * (1 - av) })
}

// ReLU applies max(0, z).
type ReLU struct{}

// Name returns "relu".
func (ReLU) Name() string { return "relu" }

// Forward applies max(0, z).
func (ReLU) Forward(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return math.Max(0, v) })
}

// Backward passes grad where z > 0.
func (ReLU) Backward(z, _, grad *mat.Dense) *mat.Dense {
	return combine(z, grad, func(zv, g float64) float64 {
		if zv > 0 {
			return g
		}
		return 0
	})
}

// LeakyReLU applies z for z > 0 and Alpha*z otherwise.
type LeakyReLU struct {
	Alpha float64
}

// NewLeakyReLU creates a LeakyReLU with the given slope.
func NewLeakyReLU(alpha float64) LeakyReLU {
	return LeakyReLU{Alpha: alpha}
}

// Name returns "leakyrelu".
func (LeakyReLU) Name() string { return "leakyrelu" }

// Forward applies the leaky rectifier.
func (l LeakyReLU) Forward(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return l.Alpha * v
	})
}

// Backward scales grad by 1 or Alpha depending on the sign of z.
func (l LeakyReLU) Backward(z, _, grad *mat.Dense) *mat.Dense {
	return combine(z, grad, func(zv, g float64) float64 {
		if zv > 0 {
			return g
		}
		return l.Alpha * g
	})
}

// Softmax normalises each row into a probability distribution.
type Softmax struct{}

// Name returns "softmax".
func (Softmax) Name() string { return "softmax" }

// Forward computes exp(z - max) / Σ exp(z - max) per row.
func (Softmax) Forward(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		copy(row, z.RawRowView(i))
		floats.AddConst(-floats.Max(row), row)
		for j := range row {
			row[j] = math.Exp(row[j])
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return out
}

// Backward applies the softmax Jacobian row by row:
// dz_j = a_j * (g_j - Σ_k g_k a_k).
func (Softmax) Backward(_, a, grad *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		ar, gr, or := a.RawRowView(i), grad.RawRowView(i), out.RawRowView(i)
		dot := floats.Dot(ar, gr)
		for j := range or {
			or[j] = ar[j] * (gr[j] - dot)
		}
	}
	return out
}

// ActivationByName returns the activation for a name such as "tanh" or
// "leakyrelu". LeakyReLU uses DefaultLeakyReLUAlpha.
func ActivationByName(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "identity", "linear":
		return Identity{}, nil
	case "tanh":
		return Tanh{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "relu":
		return ReLU{}, nil
	case "leakyrelu", "lrelu":
		return NewLeakyReLU(DefaultLeakyReLUAlpha), nil
	case "softmax":
		return Softmax{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown activation %q", ErrInvalidConfig, name)
	}
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func apply(z *mat.Dense, f func(float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f(v) }, z)
	return &out
}

func combine(x, grad *mat.Dense, f func(xv, g float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(i, j int, g float64) float64 { return f(x.At(i, j), g) }, grad)
	return &out
}
