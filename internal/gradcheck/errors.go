package gradcheck

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrConfiguration marks a model or run setup that cannot be checked
	// deterministically. Returned before any parameter is perturbed.
	ErrConfiguration = errors.New("gradcheck: invalid configuration")

	// ErrShapeMismatch marks a disagreement between the enumerated parameter
	// layout and the layout the model reports elsewhere (gradient length,
	// declared parameter count).
	ErrShapeMismatch = errors.New("gradcheck: parameter layout mismatch")

	// ErrNonFiniteLoss marks a perturbation that produced NaN or ±Inf.
	// It never aborts a run; it is attached to the affected Failure.
	ErrNonFiniteLoss = errors.New("gradcheck: non-finite loss")
)

// ConfigurationError provides detail about a rejected configuration.
type ConfigurationError struct {
	Layer  int    // Offending layer, or -1 when the problem is not layer specific
	Reason string // Human readable description
	Err    error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Layer >= 0 {
		return fmt.Sprintf("%v: layer %d: %s", ErrConfiguration, e.Layer, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
}

// Unwrap returns ErrConfiguration and the underlying cause so callers can
// match either with errors.Is.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// ShapeMismatchError reports two parameter counts that should agree.
type ShapeMismatchError struct {
	Source string // Which view disagreed (e.g. "analytic gradient")
	Want   int    // Count produced by the enumerator
	Got    int    // Count reported by Source
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: %s has %d values, enumerated %d parameters",
		ErrShapeMismatch, e.Source, e.Got, e.Want)
}

// Unwrap returns ErrShapeMismatch so callers can use errors.Is.
func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}

func configErrorf(layer int, format string, args ...any) error {
	return &ConfigurationError{Layer: layer, Reason: fmt.Sprintf(format, args...)}
}
