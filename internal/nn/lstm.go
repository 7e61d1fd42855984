package nn

import (
	"gonum.org/v1/gonum/mat"
)

// lstmStep caches one time step of the forward pass for BPTT.
type lstmStep struct {
	x          *mat.Dense // Input at t
	hPrev      *mat.Dense
	cPrev      *mat.Dense
	i, f, o, g *mat.Dense // Gate activations
	zg         *mat.Dense // Candidate pre-activation
	c          *mat.Dense // Cell state at t
	ac         *mat.Dense // act(c)
}

// LSTM is a long short-term memory layer without peephole connections.
//
// For each time step t, with gates stacked in the order i, f, o, g:
//
//	[zi zf zo zg] = x_t @ W + h_{t-1} @ RW + b
//	i, f, o = sigmoid(zi), sigmoid(zf), sigmoid(zo)
//	g = act(zg)
//	c_t = f*c_{t-1} + i*g
//	h_t = o * act(c_t)
//
// Shapes:
//   - Input: Recurrent(nIn, T)
//   - W: [nIn, 4*nOut]
//   - RW: [nOut, 4*nOut]
//   - b: [4*nOut], absent when noBias is set
//   - Output: Recurrent(nOut, T)
//
// Initial hidden and cell states are zero.
type LSTM struct {
	in     InputType
	nOut   int
	act    Activation
	weight *Parameter
	recur  *Parameter
	bias   *Parameter

	steps []lstmStep
}

// NewLSTM creates an LSTM layer with zero-filled parameters.
//
// Parameters:
//   - in: Recurrent input layout
//   - nOut: Hidden size
//   - act: Activation for the candidate and the cell output (commonly Tanh)
//   - noBias: Omit the bias group entirely
func NewLSTM(in InputType, nOut int, act Activation, noBias bool) (*LSTM, error) {
	if in.Kind != KindRecurrent || !in.valid() {
		return nil, configError("lstm: input must be recurrent, got %s", in)
	}
	if nOut <= 0 {
		return nil, configError("lstm: invalid hidden size %d", nOut)
	}
	l := &LSTM{
		in:     in,
		nOut:   nOut,
		act:    act,
		weight: NewParameter("W", in.Size, 4*nOut),
		recur:  NewParameter("RW", nOut, 4*nOut),
	}
	if !noBias {
		l.bias = NewParameter("b", 4*nOut)
	}
	return l, nil
}

// Type returns "LSTM".
func (l *LSTM) Type() string { return "LSTM" }

// Parameters returns [W, RW, b], or [W, RW] without bias.
func (l *LSTM) Parameters() []*Parameter {
	if l.bias != nil {
		return []*Parameter{l.weight, l.recur, l.bias}
	}
	return []*Parameter{l.weight, l.recur}
}

// NumParams returns the number of trainable scalars.
func (l *LSTM) NumParams() int { return countParams(l.Parameters()) }

// Bias returns the bias parameter, or nil.
func (l *LSTM) Bias() *Parameter { return l.bias }

// InputType returns the consumed layout.
func (l *LSTM) InputType() InputType { return l.in }

// OutputType returns Recurrent(nOut, T).
func (l *LSTM) OutputType() InputType { return Recurrent(l.nOut, l.in.TimeSteps) }

// Forward runs the sequence left to right.
func (l *LSTM) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()
	n := l.nOut
	steps := l.in.TimeSteps

	h := mat.NewDense(batch, n, nil)
	c := mat.NewDense(batch, n, nil)
	out := mat.NewDense(batch, steps*n, nil)
	l.steps = make([]lstmStep, steps)

	for t := 0; t < steps; t++ {
		xt := timeSlice(x, t, l.in.Size)

		var z, rec mat.Dense
		z.Mul(xt, l.weight.Matrix())
		rec.Mul(h, l.recur.Matrix())
		z.Add(&z, &rec)
		if l.bias != nil {
			addRowVector(&z, l.bias.Data())
		}

		gate := func(k int) *mat.Dense {
			return mat.DenseCopyOf(z.Slice(0, batch, k*n, (k+1)*n))
		}
		s := lstmStep{x: xt, hPrev: h, cPrev: c}
		s.i = apply(gate(0), sigmoid)
		s.f = apply(gate(1), sigmoid)
		s.o = apply(gate(2), sigmoid)
		s.zg = gate(3)
		s.g = l.act.Forward(s.zg)

		s.c = mulElem(s.f, c)
		s.c.Add(s.c, mulElem(s.i, s.g))
		s.ac = l.act.Forward(s.c)
		hNew := mulElem(s.o, s.ac)

		timeSlice(out, t, n).Copy(hNew)
		l.steps[t] = s
		h, c = hNew, s.c
	}
	return out
}

// Backward runs backpropagation through time over the cached sequence.
func (l *LSTM) Backward(grad *mat.Dense) *mat.Dense {
	batch, _ := grad.Dims()
	n := l.nOut
	steps := l.in.TimeSteps

	dX := mat.NewDense(batch, steps*l.in.Size, nil)
	dhNext := mat.NewDense(batch, n, nil)
	dcNext := mat.NewDense(batch, n, nil)
	gW := l.weight.GradMatrix()
	gRW := l.recur.GradMatrix()

	for t := steps - 1; t >= 0; t-- {
		s := l.steps[t]

		dh := mat.DenseCopyOf(timeSlice(grad, t, n))
		dh.Add(dh, dhNext)

		dc := l.act.Backward(s.c, s.ac, mulElem(dh, s.o))
		dc.Add(dc, dcNext)

		dz := mat.NewDense(batch, 4*n, nil)
		block := func(k int) *mat.Dense {
			return dz.Slice(0, batch, k*n, (k+1)*n).(*mat.Dense)
		}
		block(0).Copy(Sigmoid{}.Backward(nil, s.i, mulElem(dc, s.g)))
		block(1).Copy(Sigmoid{}.Backward(nil, s.f, mulElem(dc, s.cPrev)))
		block(2).Copy(Sigmoid{}.Backward(nil, s.o, mulElem(dh, s.ac)))
		block(3).Copy(l.act.Backward(s.zg, s.g, mulElem(dc, s.i)))

		var dW, dRW mat.Dense
		dW.Mul(s.x.T(), dz)
		gW.Add(gW, &dW)
		dRW.Mul(s.hPrev.T(), dz)
		gRW.Add(gRW, &dRW)
		if l.bias != nil {
			addColSums(l.bias.Grad(), dz)
		}

		timeSlice(dX, t, l.in.Size).Mul(dz, l.weight.Matrix().T())

		var dhPrev mat.Dense
		dhPrev.Mul(dz, l.recur.Matrix().T())
		dhNext = &dhPrev
		dcNext = mulElem(dc, s.f)
	}
	return dX
}

// Clone returns a deep copy.
func (l *LSTM) Clone() Layer {
	return &LSTM{
		in:     l.in,
		nOut:   l.nOut,
		act:    l.act,
		weight: l.weight.Clone(),
		recur:  l.recur.Clone(),
		bias:   cloneParam(l.bias),
	}
}

// RnnOutput applies a shared output layer at every time step and scores the
// whole sequence.
//
// Shapes:
//   - Input: Recurrent(nIn, T)
//   - W: [nIn, nOut]
//   - b: [nOut], absent when noBias is set
//   - Output and labels: Recurrent(nOut, T)
//
// The loss is summed over examples and time steps.
type RnnOutput struct {
	affine
	in   InputType
	nOut int
	act  Activation
	loss LossFunction
	z    *mat.Dense // [batch*T, nOut]
}

// NewRnnOutput creates a recurrent output layer.
func NewRnnOutput(in InputType, nOut int, act Activation, loss LossFunction, noBias bool) (*RnnOutput, error) {
	if in.Kind != KindRecurrent || !in.valid() {
		return nil, configError("rnnoutput: input must be recurrent, got %s", in)
	}
	if nOut <= 0 {
		return nil, configError("rnnoutput: invalid output size %d", nOut)
	}
	return &RnnOutput{
		affine: newAffine(in.Size, nOut, noBias),
		in:     in,
		nOut:   nOut,
		act:    act,
		loss:   loss,
	}, nil
}

// Type returns "RnnOutput".
func (r *RnnOutput) Type() string { return "RnnOutput" }

// Parameters returns [W, b], or [W] without bias.
func (r *RnnOutput) Parameters() []*Parameter { return r.params() }

// NumParams returns the number of trainable scalars.
func (r *RnnOutput) NumParams() int { return countParams(r.params()) }

// InputType returns the consumed layout.
func (r *RnnOutput) InputType() InputType { return r.in }

// OutputType returns Recurrent(nOut, T).
func (r *RnnOutput) OutputType() InputType { return Recurrent(r.nOut, r.in.TimeSteps) }

// Loss returns the loss function.
func (r *RnnOutput) Loss() LossFunction { return r.loss }

// Forward applies the output layer to every step.
func (r *RnnOutput) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()
	steps := r.in.TimeSteps
	r.z = r.forward(reshape(x, batch*steps, r.in.Size))
	return reshape(r.act.Forward(r.z), batch, steps*r.nOut)
}

// Backward propagates an external gradient through the activation.
func (r *RnnOutput) Backward(grad *mat.Dense) *mat.Dense {
	batch, _ := grad.Dims()
	a := r.act.Forward(r.z)
	dZ := r.act.Backward(r.z, a, reshape(grad, batch*r.in.TimeSteps, r.nOut))
	return reshape(r.backward(dZ), batch, r.in.Columns())
}

// ComputeScore returns the loss summed over examples and steps.
func (r *RnnOutput) ComputeScore(labels *mat.Dense) float64 {
	rows, _ := r.z.Dims()
	return r.loss.Score(reshape(labels, rows, r.nOut), r.z, r.act)
}

// BackwardLoss backpropagates scale * loss.
func (r *RnnOutput) BackwardLoss(labels *mat.Dense, scale float64) *mat.Dense {
	rows, _ := r.z.Dims()
	dZ := r.loss.Gradient(reshape(labels, rows, r.nOut), r.z, r.act)
	dZ.Scale(scale, dZ)
	return reshape(r.backward(dZ), rows/r.in.TimeSteps, r.in.Columns())
}

// Clone returns a deep copy.
func (r *RnnOutput) Clone() Layer {
	return &RnnOutput{
		affine: r.affine.clone(),
		in:     r.in,
		nOut:   r.nOut,
		act:    r.act,
		loss:   r.loss,
	}
}
