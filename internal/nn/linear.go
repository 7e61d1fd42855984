package nn

import (
	"gonum.org/v1/gonum/mat"
)

// affine is the shared z = x·W + b core of the fully connected layers.
type affine struct {
	weight *Parameter // [nIn, nOut]
	bias   *Parameter // [nOut] or nil
	x      *mat.Dense // Input of the most recent forward pass
}

func newAffine(nIn, nOut int, noBias bool) affine {
	f := affine{weight: NewParameter("W", nIn, nOut)}
	if !noBias {
		f.bias = NewParameter("b", nOut)
	}
	return f
}

func (f *affine) forward(x *mat.Dense) *mat.Dense {
	f.x = x
	var z mat.Dense
	z.Mul(x, f.weight.Matrix())
	if f.bias != nil {
		addRowVector(&z, f.bias.Data())
	}
	return &z
}

// backward accumulates dW = xᵀ·dZ and db = Σ_rows dZ, and returns dZ·Wᵀ.
func (f *affine) backward(dZ *mat.Dense) *mat.Dense {
	var dW mat.Dense
	dW.Mul(f.x.T(), dZ)
	gW := f.weight.GradMatrix()
	gW.Add(gW, &dW)
	if f.bias != nil {
		addColSums(f.bias.Grad(), dZ)
	}

	var dX mat.Dense
	dX.Mul(dZ, f.weight.Matrix().T())
	return &dX
}

func (f *affine) params() []*Parameter {
	if f.bias != nil {
		return []*Parameter{f.weight, f.bias}
	}
	return []*Parameter{f.weight}
}

func (f *affine) clone() affine {
	return affine{weight: f.weight.Clone(), bias: cloneParam(f.bias)}
}

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: a = act(x @ W + b)
// where:
//   - x is the input with shape [batch_size, nIn]
//   - W is the weight matrix with shape [nIn, nOut]
//   - b is the bias vector with shape [nOut], absent when noBias is set
//   - a is the output with shape [batch_size, nOut]
//
// Convolutional inputs are consumed in their flattened layout.
type Linear struct {
	affine
	nIn  int
	nOut int
	act  Activation
	in   InputType
	z    *mat.Dense
	a    *mat.Dense
}

// NewLinear creates a Linear layer with zero-filled parameters.
//
// Parameters:
//   - nIn: Number of input features
//   - nOut: Number of output features
//   - act: Activation applied to the affine output
//   - noBias: Omit the bias group entirely
//
// Returns a new Linear layer.
func NewLinear(nIn, nOut int, act Activation, noBias bool) *Linear {
	return &Linear{
		affine: newAffine(nIn, nOut, noBias),
		nIn:    nIn,
		nOut:   nOut,
		act:    act,
		in:     FeedForward(nIn),
	}
}

// Type returns "Linear".
func (l *Linear) Type() string { return "Linear" }

// Parameters returns [W, b], or [W] without bias.
func (l *Linear) Parameters() []*Parameter { return l.params() }

// NumParams returns nIn*nOut, plus nOut with bias.
func (l *Linear) NumParams() int { return countParams(l.params()) }

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter, or nil for a no-bias layer.
func (l *Linear) Bias() *Parameter { return l.bias }

// Activation returns the layer activation.
func (l *Linear) Activation() Activation { return l.act }

// InputType returns the consumed layout.
func (l *Linear) InputType() InputType { return l.in }

// OutputType returns FeedForward(nOut).
func (l *Linear) OutputType() InputType { return FeedForward(l.nOut) }

// Forward computes act(x @ W + b).
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	l.z = l.forward(x)
	l.a = l.act.Forward(l.z)
	return l.a
}

// Backward propagates dLoss/da through the activation and the affine map.
func (l *Linear) Backward(grad *mat.Dense) *mat.Dense {
	return l.backward(l.act.Backward(l.z, l.a, grad))
}

// Clone returns a deep copy.
func (l *Linear) Clone() Layer {
	c := l.cloneLinear()
	return &c
}

func (l *Linear) cloneLinear() Linear {
	return Linear{
		affine: l.affine.clone(),
		nIn:    l.nIn,
		nOut:   l.nOut,
		act:    l.act,
		in:     l.in,
	}
}

// Output is a Linear layer that also scores its activations against labels.
//
// The usual pairing is Softmax with MCXENT, whose combined gradient is
// a - y; any Activation/LossFunction pair is supported through the chain
// rule.
type Output struct {
	Linear
	loss LossFunction
}

// NewOutput creates an Output layer.
func NewOutput(nIn, nOut int, act Activation, loss LossFunction, noBias bool) *Output {
	return &Output{Linear: *NewLinear(nIn, nOut, act, noBias), loss: loss}
}

// Type returns "Output".
func (o *Output) Type() string { return "Output" }

// Loss returns the loss function.
func (o *Output) Loss() LossFunction { return o.loss }

// ComputeScore returns the summed loss of the most recent Forward.
func (o *Output) ComputeScore(labels *mat.Dense) float64 {
	return o.loss.Score(labels, o.z, o.act)
}

// BackwardLoss backpropagates scale * loss.
func (o *Output) BackwardLoss(labels *mat.Dense, scale float64) *mat.Dense {
	dZ := o.loss.Gradient(labels, o.z, o.act)
	dZ.Scale(scale, dZ)
	return o.backward(dZ)
}

// Clone returns a deep copy.
func (o *Output) Clone() Layer {
	return &Output{Linear: o.cloneLinear(), loss: o.loss}
}
