// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gradcheck

import (
	"github.com/born-ml/gradcheck/internal/gradcheck"
	"gonum.org/v1/gonum/mat"
)

// Model interfaces

// Parameters exposes a model's trainable scalars.
type Parameters = gradcheck.Parameters

// Model is a differentiable model that can be checked.
type Model = gradcheck.Model

// Replicable is implemented by models that can be cloned for parallel sweeps.
type Replicable = gradcheck.Replicable

// Training describes how a layer would be trained.
type Training = gradcheck.Training

// Updater names a parameter update rule.
type Updater = gradcheck.Updater

// Updaters.
const (
	UpdaterNone      = gradcheck.UpdaterNone
	UpdaterSGD       = gradcheck.UpdaterSGD
	UpdaterAdam      = gradcheck.UpdaterAdam
	UpdaterNesterovs = gradcheck.UpdaterNesterovs
	UpdaterRMSProp   = gradcheck.UpdaterRMSProp
	UpdaterAdaGrad   = gradcheck.UpdaterAdaGrad
)

// Parameter identity

// Identity addresses one trainable scalar.
type Identity = gradcheck.Identity

// Group describes one named parameter tensor of a layer.
type Group = gradcheck.Group

// ParameterVector is the ordered list of every trainable scalar.
type ParameterVector = gradcheck.ParameterVector

// Enumerate lists every trainable scalar in (layer, group, offset) order.
func Enumerate(m Parameters) (ParameterVector, error) {
	return gradcheck.Enumerate(m)
}

// Configuration

// Config holds the check settings.
type Config = gradcheck.Config

// DefaultConfig returns epsilon 1e-6, max relative error 1e-3 and min
// absolute error 1e-8, with a sequential sweep.
func DefaultConfig() Config {
	return gradcheck.DefaultConfig()
}

// Tolerance is the comparator's acceptance policy.
type Tolerance = gradcheck.Tolerance

// Running checks

// Result is the outcome of a completed check.
type Result = gradcheck.Result

// Pair is one compared analytic/numeric gradient.
type Pair = gradcheck.Pair

// Failure describes one parameter that failed the comparison.
type Failure = gradcheck.Failure

// State is a stage of a check.
type State = gradcheck.State

// Check compares the analytic gradient of m against finite differences.
//
// Example:
//
//	res, err := gradcheck.Check(net, input, labels, gradcheck.DefaultConfig())
func Check(m Model, input, labels *mat.Dense, cfg Config) (*Result, error) {
	return gradcheck.Check(m, input, labels, cfg)
}

// CheckGradients is the positional form of Check.
//
// Example:
//
//	res, err := gradcheck.CheckGradients(net, 1e-6, 1e-3, 1e-8, true, false, input, labels)
func CheckGradients(
	m Model,
	epsilon, maxRelError, minAbsError float64,
	printResults, returnOnFirstFailure bool,
	input, labels *mat.Dense,
) (*Result, error) {
	return gradcheck.CheckGradients(m, epsilon, maxRelError, minAbsError, printResults, returnOnFirstFailure, input, labels)
}

// Errors

var (
	// ErrConfiguration is wrapped by every configuration error.
	ErrConfiguration = gradcheck.ErrConfiguration
	// ErrShapeMismatch is wrapped when parameter and gradient counts differ.
	ErrShapeMismatch = gradcheck.ErrShapeMismatch
	// ErrNonFiniteLoss marks pairs whose perturbed score was NaN or infinite.
	ErrNonFiniteLoss = gradcheck.ErrNonFiniteLoss
)

// ConfigurationError reports an invalid check setup.
type ConfigurationError = gradcheck.ConfigurationError

// ShapeMismatchError reports a parameter/gradient count mismatch.
type ShapeMismatchError = gradcheck.ShapeMismatchError
