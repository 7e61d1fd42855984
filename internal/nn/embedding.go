package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Embedding maps integer indices to dense vectors.
//
// The input is a single column holding one index in [0, nIn) per example.
// The lookup is equivalent to a Linear layer applied to the one-hot encoding
// of the index: a = act(W[idx, :] + b).
//
// Shapes:
//   - Input: [batch_size, 1]
//   - W: [nIn, nOut] (one row per index)
//   - b: [nOut], absent when noBias is set
//   - Output: [batch_size, nOut]
//
// Example:
//
//	emb := nn.NewEmbedding(10, 4, nn.Tanh{}, false)
//	x := mat.NewDense(2, 1, []float64{3, 7})
//	out := emb.Forward(x) // [2, 4]
type Embedding struct {
	nIn    int
	nOut   int
	act    Activation
	weight *Parameter
	bias   *Parameter

	idx []int
	z   *mat.Dense
	a   *mat.Dense
}

// NewEmbedding creates an embedding table with nIn rows of width nOut.
func NewEmbedding(nIn, nOut int, act Activation, noBias bool) *Embedding {
	e := &Embedding{
		nIn:    nIn,
		nOut:   nOut,
		act:    act,
		weight: NewParameter("W", nIn, nOut),
	}
	if !noBias {
		e.bias = NewParameter("b", nOut)
	}
	return e
}

// Type returns "Embedding".
func (e *Embedding) Type() string { return "Embedding" }

// Parameters returns [W, b], or [W] without bias.
func (e *Embedding) Parameters() []*Parameter {
	if e.bias != nil {
		return []*Parameter{e.weight, e.bias}
	}
	return []*Parameter{e.weight}
}

// NumParams returns the number of trainable scalars.
func (e *Embedding) NumParams() int { return countParams(e.Parameters()) }

// Weight returns the embedding table.
func (e *Embedding) Weight() *Parameter { return e.weight }

// InputType returns FeedForward(1): one index column.
func (e *Embedding) InputType() InputType { return FeedForward(1) }

// OutputType returns FeedForward(nOut).
func (e *Embedding) OutputType() InputType { return FeedForward(e.nOut) }

// Forward looks up one row per example.
func (e *Embedding) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()
	e.idx = make([]int, batch)
	z := mat.NewDense(batch, e.nOut, nil)
	table := e.weight.Matrix()
	for n := 0; n < batch; n++ {
		e.idx[n] = int(x.At(n, 0))
		copy(z.RawRowView(n), table.RawRowView(e.idx[n]))
	}
	if e.bias != nil {
		addRowVector(z, e.bias.Data())
	}
	e.z = z
	e.a = e.act.Forward(z)
	return e.a
}

// Backward scatters the output gradient into the rows that were looked up.
// Indices are not differentiable, so dLoss/dx is zero.
func (e *Embedding) Backward(grad *mat.Dense) *mat.Dense {
	dZ := e.act.Backward(e.z, e.a, grad)
	gW := e.weight.GradMatrix()
	for n, idx := range e.idx {
		row := gW.RawRowView(idx)
		for j, g := range dZ.RawRowView(n) {
			row[j] += g
		}
	}
	if e.bias != nil {
		addColSums(e.bias.Grad(), dZ)
	}
	batch, _ := grad.Dims()
	return mat.NewDense(batch, 1, nil)
}

// Clone returns a deep copy.
func (e *Embedding) Clone() Layer {
	return &Embedding{
		nIn:    e.nIn,
		nOut:   e.nOut,
		act:    e.act,
		weight: e.weight.Clone(),
		bias:   cloneParam(e.bias),
	}
}

func (e *Embedding) validateInput(x *mat.Dense) error {
	batch, _ := x.Dims()
	for n := 0; n < batch; n++ {
		v := x.At(n, 0)
		if v != math.Trunc(v) || v < 0 || v >= float64(e.nIn) {
			return inputError("embedding index %v at row %d outside [0, %d)", v, n, e.nIn)
		}
	}
	return nil
}
