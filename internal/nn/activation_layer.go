package nn

import "gonum.org/v1/gonum/mat"

// ActivationLayer applies an activation on its own. It has no parameters and
// passes its input layout through unchanged.
type ActivationLayer struct {
	in  InputType
	act Activation
	x   *mat.Dense
	a   *mat.Dense
}

// NewActivationLayer creates a parameterless activation layer.
func NewActivationLayer(in InputType, act Activation) *ActivationLayer {
	return &ActivationLayer{in: in, act: act}
}

// Type returns "Activation".
func (l *ActivationLayer) Type() string { return "Activation" }

// Parameters returns nil.
func (l *ActivationLayer) Parameters() []*Parameter { return nil }

// NumParams returns 0.
func (l *ActivationLayer) NumParams() int { return 0 }

// InputType returns the consumed layout.
func (l *ActivationLayer) InputType() InputType { return l.in }

// OutputType returns the input layout.
func (l *ActivationLayer) OutputType() InputType { return l.in }

// Forward applies the activation.
func (l *ActivationLayer) Forward(x *mat.Dense) *mat.Dense {
	l.x = x
	l.a = l.act.Forward(x)
	return l.a
}

// Backward applies the activation derivative.
func (l *ActivationLayer) Backward(grad *mat.Dense) *mat.Dense {
	return l.act.Backward(l.x, l.a, grad)
}

// Clone returns a copy without forward state.
func (l *ActivationLayer) Clone() Layer {
	return &ActivationLayer{in: l.in, act: l.act}
}
