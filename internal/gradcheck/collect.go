package gradcheck

import "gonum.org/v1/gonum/mat"

// CollectAnalytic runs the model's single forward+backward pass on the
// unperturbed parameters and returns its self-reported gradient.
//
// A model that cannot produce a gradient for this input rejected the
// configuration; the error is a ConfigurationError wrapping the cause.
func CollectAnalytic(m Model, input, labels *mat.Dense) ([]float64, error) {
	grad, err := m.Gradient(input, labels)
	if err != nil {
		return nil, &ConfigurationError{Layer: -1, Reason: "collecting analytic gradient: " + err.Error(), Err: err}
	}
	return grad, nil
}

// AlignAnalytic checks that an analytic gradient lines up one-to-one with
// the enumerated parameters.
//
// A length mismatch is a ShapeMismatchError: the gradient is never truncated
// or padded to fit, because the disagreement means the model's gradient
// layout and its parameter layout have diverged.
func AlignAnalytic(grad []float64, vec ParameterVector) error {
	if len(grad) != len(vec) {
		return &ShapeMismatchError{Source: "analytic gradient", Want: len(vec), Got: len(grad)}
	}
	return nil
}
