package gradcheck_test

import (
	"fmt"
	"math"
	"slices"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"gonum.org/v1/gonum/mat"
)

// flatModel is a hand-written Model whose parameters live in one flat slice.
// Loss and gradient are closures over that slice, which makes it easy to
// plant bugs in the analytic gradient.
type flatModel struct {
	layers   [][]gradcheck.Group
	offsets  map[string]int
	theta    []float64
	loss     func(theta []float64) float64
	grad     func(theta []float64) []float64
	training gradcheck.Training
	inputErr error
	gradErr  error
	scores   int
}

func newFlatModel(layers [][]gradcheck.Group, loss func([]float64) float64, grad func([]float64) []float64) *flatModel {
	m := &flatModel{layers: layers, offsets: make(map[string]int), loss: loss, grad: grad}
	n := 0
	for l, groups := range layers {
		for _, g := range groups {
			m.offsets[fmt.Sprintf("%d_%s", l, g.Name)] = n
			n += g.Size()
		}
	}
	m.theta = make([]float64, n)
	for i := range m.theta {
		m.theta[i] = 0.1*float64(i+1) - 0.35*float64(i%3)
	}
	return m
}

func (m *flatModel) NumLayers() int { return len(m.layers) }

func (m *flatModel) NumParams() int { return len(m.theta) }

func (m *flatModel) ParameterGroups(layer int) []gradcheck.Group { return m.layers[layer] }

func (m *flatModel) Scalar(id gradcheck.Identity) float64 {
	return m.theta[m.offsets[id.Key()]+id.Offset]
}

func (m *flatModel) SetScalar(id gradcheck.Identity, v float64) {
	m.theta[m.offsets[id.Key()]+id.Offset] = v
}

func (m *flatModel) Score(_, _ *mat.Dense) float64 {
	m.scores++
	return m.loss(m.theta)
}

func (m *flatModel) Gradient(_, _ *mat.Dense) ([]float64, error) {
	if m.gradErr != nil {
		return nil, m.gradErr
	}
	return m.grad(m.theta), nil
}

func (m *flatModel) Training(int) gradcheck.Training { return m.training }

func (m *flatModel) ValidateInput(_, _ *mat.Dense) error { return m.inputErr }

// replicaModel adds Clone to flatModel.
type replicaModel struct {
	*flatModel
}

func (m replicaModel) Clone() gradcheck.Model {
	c := *m.flatModel
	c.theta = slices.Clone(m.theta)
	return replicaModel{&c}
}

// twoLayerGroups is a dense layer with bias followed by a no-bias layer.
func twoLayerGroups() [][]gradcheck.Group {
	return [][]gradcheck.Group{
		{{Name: "W", Shape: []int{2, 3}}, {Name: "b", Shape: []int{3}}},
		{{Name: "W", Shape: []int{3, 2}}},
	}
}

// quadratic returns loss = Σ c_i θ_i² / 2 + d_i θ_i with its exact gradient.
func quadratic() (func([]float64) float64, func([]float64) []float64) {
	coef := func(i int) (float64, float64) {
		return 0.5 + 0.25*float64(i%4), 0.3 - 0.1*float64(i%5)
	}
	loss := func(theta []float64) float64 {
		s := 0.0
		for i, v := range theta {
			c, d := coef(i)
			s += c*v*v/2 + d*v
		}
		return s
	}
	grad := func(theta []float64) []float64 {
		g := make([]float64, len(theta))
		for i, v := range theta {
			c, d := coef(i)
			g[i] = c*v + d
		}
		return g
	}
	return loss, grad
}

// quartic returns loss = Σ θ_i⁴ / 4 whose centered difference carries an
// ε²-order truncation error.
func quartic() (func([]float64) float64, func([]float64) []float64) {
	loss := func(theta []float64) float64 {
		s := 0.0
		for _, v := range theta {
			s += math.Pow(v, 4) / 4
		}
		return s
	}
	grad := func(theta []float64) []float64 {
		g := make([]float64, len(theta))
		for i, v := range theta {
			g[i] = v * v * v
		}
		return g
	}
	return loss, grad
}

// corrupt wraps grad so the listed indices report a wrong value.
func corrupt(grad func([]float64) []float64, bad ...int) func([]float64) []float64 {
	return func(theta []float64) []float64 {
		g := grad(theta)
		for _, i := range bad {
			g[i] = g[i]*3 + 1
		}
		return g
	}
}

func dummyBatch() (*mat.Dense, *mat.Dense) {
	return mat.NewDense(1, 1, []float64{0}), mat.NewDense(1, 1, []float64{0})
}

func quietConfig() gradcheck.Config {
	cfg := gradcheck.DefaultConfig()
	cfg.Logger = discardLogger()
	return cfg
}
