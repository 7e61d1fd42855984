package nn

import (
	"slices"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"gonum.org/v1/gonum/mat"
)

// Parameter represents a trainable parameter in a neural network.
//
// Values are stored row-major in a single float64 slice; the gradient has the
// same layout. Matrix views returned by Matrix and GradMatrix share that
// storage, so writes through either side are visible to the other.
//
// Example:
//
//	w := nn.NewParameter("W", 5, 6)
//	w.Data()[3] = 0.5
//	m := w.Matrix() // 5x6 view, m.At(0, 3) == 0.5
type Parameter struct {
	name  string    // Parameter name (e.g., "W", "b")
	shape []int     // Tensor shape
	data  []float64 // Values
	grad  []float64 // Gradient of the loss w.r.t. data
}

// NewParameter creates a zero-filled parameter with the given shape.
func NewParameter(name string, shape ...int) *Parameter {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Parameter{
		name:  name,
		shape: slices.Clone(shape),
		data:  make([]float64, n),
		grad:  make([]float64, n),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Shape returns a copy of the parameter shape.
func (p *Parameter) Shape() []int {
	return slices.Clone(p.shape)
}

// Size returns the number of scalars.
func (p *Parameter) Size() int {
	return len(p.data)
}

// Data returns the backing value slice.
func (p *Parameter) Data() []float64 {
	return p.data
}

// Grad returns the backing gradient slice.
func (p *Parameter) Grad() []float64 {
	return p.grad
}

// Matrix returns a 2-D view of the values: [shape[0], size/shape[0]] for
// tensors of rank two or more, [1, size] for vectors.
func (p *Parameter) Matrix() *mat.Dense {
	r, c := p.dims()
	return mat.NewDense(r, c, p.data)
}

// GradMatrix returns a 2-D view of the gradient with the Matrix layout.
func (p *Parameter) GradMatrix() *mat.Dense {
	r, c := p.dims()
	return mat.NewDense(r, c, p.grad)
}

// ZeroGrad clears the gradient.
func (p *Parameter) ZeroGrad() {
	clear(p.grad)
}

// Clone returns a deep copy with independent storage.
func (p *Parameter) Clone() *Parameter {
	return &Parameter{
		name:  p.name,
		shape: slices.Clone(p.shape),
		data:  slices.Clone(p.data),
		grad:  slices.Clone(p.grad),
	}
}

// Group describes the parameter for the gradient checker.
func (p *Parameter) Group() gradcheck.Group {
	return gradcheck.Group{Name: p.name, Shape: slices.Clone(p.shape)}
}

func (p *Parameter) dims() (int, int) {
	if len(p.shape) < 2 {
		return 1, len(p.data)
	}
	return p.shape[0], len(p.data) / p.shape[0]
}
