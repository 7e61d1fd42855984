// Package gradcheck implements the gradient-checking engine.
//
// The engine certifies that a model's analytic gradient (produced by its own
// backpropagation) agrees with a centered finite-difference estimate obtained
// by perturbing every trainable scalar independently:
//
//	numeric_i = (score(θ + ε·e_i) - score(θ - ε·e_i)) / (2ε)
//
// A run moves through a linear pipeline of states:
//
//	Validating -> CollectingAnalytic -> Sweeping -> Scoring -> Done
//
// Configuration problems and gradient layout mismatches abort the run with an
// error. Gradient disagreement is never an error: it is reported as a failed
// Result listing every offending parameter.
//
// The model is borrowed for the duration of a run. Every perturbation is
// undone bit-for-bit before the next one starts, so the model is left exactly
// as it was found, whatever the outcome.
package gradcheck
