package gradcheck

import (
	"errors"
	"fmt"
	"log/slog"
)

// Config holds the settings of one check run. It is read once at the start
// of a run and never modified by the engine.
type Config struct {
	Epsilon              float64 // Perturbation size ε
	MaxRelError          float64 // Relative error threshold
	MinAbsError          float64 // Absolute error threshold for near-zero gradients
	PrintResults         bool    // Log every parameter's outcome, not only failures
	ReturnOnFirstFailure bool    // Stop the sweep at the first failing parameter

	// Workers > 1 sweeps parameters on that many private model replicas when
	// the model implements Replicable. Otherwise the sweep is sequential.
	Workers int

	// Logger receives per-parameter results and state transitions.
	// Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the settings used for double-precision networks.
func DefaultConfig() Config {
	return Config{
		Epsilon:     1e-6,
		MaxRelError: 1e-3,
		MinAbsError: 1e-8,
		Workers:     1,
	}
}

// Validate rejects settings that cannot produce a meaningful check.
func (c Config) Validate() error {
	var errs []error
	if !(c.Epsilon > 0) || !isFinite(c.Epsilon) {
		errs = append(errs, fmt.Errorf("epsilon must be positive and finite, got %g", c.Epsilon))
	}
	if !(c.MaxRelError > 0) {
		errs = append(errs, fmt.Errorf("max relative error must be positive, got %g", c.MaxRelError))
	}
	if !(c.MinAbsError >= 0) {
		errs = append(errs, fmt.Errorf("min absolute error must be non-negative, got %g", c.MinAbsError))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative, got %d", c.Workers))
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		return &ConfigurationError{Layer: -1, Reason: err.Error(), Err: err}
	}
	return nil
}

// Tolerance returns the comparator policy of this config.
func (c Config) Tolerance() Tolerance {
	return Tolerance{MaxRelError: c.MaxRelError, MinAbsError: c.MinAbsError}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
