package gradcheck

import "gonum.org/v1/gonum/mat"

// Updater names the parameter update rule a model is configured with.
type Updater string

// Known updaters.
const (
	UpdaterNone      Updater = "NONE"
	UpdaterSGD       Updater = "SGD"
	UpdaterAdam      Updater = "ADAM"
	UpdaterNesterovs Updater = "NESTEROVS"
	UpdaterRMSProp   Updater = "RMSPROP"
	UpdaterAdaGrad   Updater = "ADAGRAD"
)

// Training reports the per-layer switches that can make a forward pass
// or a reported gradient non-reproducible.
type Training struct {
	Updater      Updater
	LearningRate float64
	Dropout      float64 // Probability of dropping an input activation; 0 disables
	Stochastic   bool    // Any other randomness in the forward pass
}

// Parameters is the parameter access half of the model contract.
//
// ParameterGroups must list a layer's groups in the order they are
// flattened: weights before biases. A group a layer does not have
// (e.g. the bias of a no-bias layer) is simply absent.
type Parameters interface {
	NumLayers() int
	NumParams() int
	ParameterGroups(layer int) []Group
	Scalar(id Identity) float64
	SetScalar(id Identity, value float64)
}

// Model is the capability set the engine needs from a differentiable model.
type Model interface {
	Parameters

	// Score evaluates the loss with a single forward pass.
	Score(input, labels *mat.Dense) float64

	// Gradient runs one forward and backward pass and returns the analytic
	// gradient flattened in ParameterGroups order.
	Gradient(input, labels *mat.Dense) ([]float64, error)

	// Training reports the layer's determinism-relevant settings.
	Training(layer int) Training

	// ValidateInput rejects input and labels the model cannot score.
	ValidateInput(input, labels *mat.Dense) error
}

// Replicable is implemented by models that can produce independent copies.
// A replica must not share parameter storage with its source.
type Replicable interface {
	Clone() Model
}
