// Package nn implements the reference multi-layer network used to exercise
// the gradient checker.
//
// This package provides:
//   - Layer interface: forward pass, backward pass, ordered parameters
//   - Parameter: row-major float64 tensor with gradient
//   - Layers: Linear, Output, Embedding, LSTM, RnnOutput, Conv2D, MaxPool2D, ActivationLayer
//   - Activations: Identity, Tanh, Sigmoid, ReLU, LeakyReLU, Softmax
//   - Loss functions: MCXENT, MSE
//   - Network: a layer stack implementing gradcheck.Model
//
// All computation is double precision on gonum matrices, one example per row.
// Every layer with a bias accepts NoBias, which removes the bias group
// entirely rather than pinning it to zero.
package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Layer is the base interface for all network layers.
//
// A layer caches what its backward pass needs during Forward, so a Layer
// value is not safe for concurrent use; Network.Clone produces independent
// copies for parallel work.
type Layer interface {
	// Type returns the layer kind, e.g. "Linear".
	Type() string

	// Parameters returns the trainable parameters in flattening order:
	// weights before biases. Layers without parameters return nil.
	Parameters() []*Parameter

	// NumParams returns the number of trainable scalars.
	NumParams() int

	// InputType and OutputType describe the per-example layouts.
	InputType() InputType
	OutputType() InputType

	// Forward computes the layer output for a [batch, InputType().Columns()]
	// matrix.
	Forward(x *mat.Dense) *mat.Dense

	// Backward takes dLoss/dOutput from the most recent Forward, accumulates
	// parameter gradients and returns dLoss/dInput.
	Backward(grad *mat.Dense) *mat.Dense

	// Clone returns a deep copy with independent parameter storage.
	Clone() Layer
}

// OutputLayer is a layer that also computes the loss.
type OutputLayer interface {
	Layer

	// Loss returns the loss function.
	Loss() LossFunction

	// ComputeScore returns the loss of the most recent Forward summed over
	// the examples in the batch.
	ComputeScore(labels *mat.Dense) float64

	// BackwardLoss starts backpropagation from scale * loss, accumulates
	// parameter gradients and returns dLoss/dInput.
	BackwardLoss(labels *mat.Dense, scale float64) *mat.Dense
}

// inputValidator is implemented by layers with constraints on input values
// beyond the matrix shape.
type inputValidator interface {
	validateInput(x *mat.Dense) error
}

func countParams(params []*Parameter) int {
	n := 0
	for _, p := range params {
		n += p.Size()
	}
	return n
}

func cloneParam(p *Parameter) *Parameter {
	if p == nil {
		return nil
	}
	return p.Clone()
}
