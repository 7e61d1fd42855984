package gradcheck

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Check certifies a model's analytic gradient against finite differences.
//
// The run proceeds Validating -> CollectingAnalytic -> Sweeping -> Scoring ->
// Done. A ConfigurationError (non-deterministic setup, unusable input or
// config) or a ShapeMismatchError (gradient layout disagreeing with the
// parameter layout) aborts the run and is returned as the error with a nil
// Result. Gradient disagreement is not an error: the returned Result has
// Pass == false and lists every failing parameter.
//
// The model's parameters are bit-identical to their pre-call values when
// Check returns, whatever the outcome.
//
// Example:
//
//	cfg := gradcheck.DefaultConfig()
//	res, err := gradcheck.Check(net, input, labels, cfg)
//	if err != nil {
//	    return err // engine misuse or broken model layout
//	}
//	if !res.Pass {
//	    fmt.Print(res)
//	}
func Check(m Model, input, labels *mat.Dense, cfg Config) (*Result, error) {
	r := &run{
		model:  m,
		input:  input,
		labels: labels,
		cfg:    cfg,
		log:    cfg.logger(),
		state:  StateValidating,
	}
	return r.execute()
}

// CheckGradients is the positional form of Check.
//
// Parameters:
//   - m: Model under test
//   - epsilon: Perturbation size
//   - maxRelError: Relative error threshold
//   - minAbsError: Absolute error threshold for near-zero gradients
//   - printResults: Log every parameter's outcome
//   - returnOnFirstFailure: Stop the sweep at the first failure
//   - input, labels: Minibatch to score
//
// Returns the check result, or an error if the run was aborted.
func CheckGradients(
	m Model,
	epsilon, maxRelError, minAbsError float64,
	printResults, returnOnFirstFailure bool,
	input, labels *mat.Dense,
) (*Result, error) {
	cfg := DefaultConfig()
	cfg.Epsilon = epsilon
	cfg.MaxRelError = maxRelError
	cfg.MinAbsError = minAbsError
	cfg.PrintResults = printResults
	cfg.ReturnOnFirstFailure = returnOnFirstFailure
	return Check(m, input, labels, cfg)
}

// run carries the state of a single Check call.
type run struct {
	model  Model
	input  *mat.Dense
	labels *mat.Dense
	cfg    Config
	log    *slog.Logger
	state  State
}

func (r *run) execute() (*Result, error) {
	if err := r.validate(); err != nil {
		return r.abort(err)
	}

	r.transition(StateCollectingAnalytic)
	grad, err := CollectAnalytic(r.model, r.input, r.labels)
	if err != nil {
		return r.abort(err)
	}
	vec, err := Enumerate(r.model)
	if err != nil {
		return r.abort(err)
	}
	if len(vec) == 0 {
		return r.abort(configErrorf(-1, "model has no trainable parameters"))
	}
	if err := AlignAnalytic(grad, vec); err != nil {
		return r.abort(err)
	}

	r.transition(StateSweeping)
	pairs := r.sweep(vec, grad)

	r.transition(StateScoring)
	res := r.score(pairs, len(vec))

	r.transition(StateDone)
	res.State = StateDone
	return res, nil
}

// validate rejects setups that would make the loss or the reported gradient
// non-reproducible.
func (r *run) validate() error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	if r.input == nil || r.labels == nil {
		return configErrorf(-1, "input and labels are required")
	}
	if err := r.model.ValidateInput(r.input, r.labels); err != nil {
		return &ConfigurationError{Layer: -1, Reason: "unsupported input: " + err.Error(), Err: err}
	}

	for layer := 0; layer < r.model.NumLayers(); layer++ {
		t := r.model.Training(layer)
		switch t.Updater {
		case UpdaterNone, "":
		case UpdaterSGD:
			if t.LearningRate != 1.0 {
				return configErrorf(layer, "SGD updater requires learning rate 1.0 for gradient checks, got %g", t.LearningRate)
			}
		default:
			return configErrorf(layer, "updater %s keeps state between steps; use %s or %s", t.Updater, UpdaterNone, UpdaterSGD)
		}
		if t.Dropout != 0 {
			return configErrorf(layer, "dropout %g draws random masks on every forward pass", t.Dropout)
		}
		if t.Stochastic {
			return configErrorf(layer, "stochastic forward pass")
		}
	}
	return nil
}

// sweep computes and compares the numeric gradient of every parameter.
func (r *run) sweep(vec ParameterVector, grad []float64) []Pair {
	if r.cfg.Workers > 1 {
		if rep, ok := r.model.(Replicable); ok {
			return r.sweepReplicas(rep, vec, grad)
		}
		r.log.Debug("gradcheck: model is not replicable, sweeping sequentially",
			"workers", r.cfg.Workers)
	}

	tol := r.cfg.Tolerance()
	est := NewEstimator(r.model, r.input, r.labels, r.cfg.Epsilon)
	pairs := make([]Pair, 0, len(vec))
	for _, e := range vec {
		p := comparePair(tol, est.Estimate(e.ID), grad[e.ID.Index])
		pairs = append(pairs, p)
		if !p.Passed && r.cfg.ReturnOnFirstFailure {
			break
		}
	}
	return pairs
}

// score aggregates the compared pairs into a Result.
func (r *run) score(pairs []Pair, total int) *Result {
	res := &Result{
		Pairs:    pairs,
		Total:    total,
		Complete: len(pairs) == total,
	}
	for _, p := range pairs {
		if p.RelError > res.MaxRel || math.IsInf(p.RelError, 1) {
			res.MaxRel = p.RelError
		}
		if !p.Passed {
			res.Failures = append(res.Failures, Failure{
				ID:       p.ID,
				Analytic: p.Analytic,
				Numeric:  p.Numeric,
				RelError: p.RelError,
				Err:      p.Err,
			})
		}
		if r.cfg.PrintResults {
			r.logPair(p)
		}
	}
	res.Pass = res.Complete && len(res.Failures) == 0

	level := slog.LevelDebug
	if r.cfg.PrintResults {
		level = slog.LevelInfo
	}
	r.log.Log(context.Background(), level, "gradcheck: finished",
		"pass", res.Pass,
		"checked", res.Checked(),
		"total", res.Total,
		"failures", len(res.Failures),
		"maxRelError", res.MaxRel)
	return res
}

func (r *run) logPair(p Pair) {
	attrs := []any{
		"param", p.ID.String(),
		"key", p.ID.Key(),
		"analytic", p.Analytic,
		"numeric", p.Numeric,
		"relError", p.RelError,
	}
	switch {
	case p.Passed:
		r.log.Info("gradcheck: parameter passed", attrs...)
	case p.Err != nil:
		r.log.Warn("gradcheck: parameter FAILED", append(attrs, "err", p.Err)...)
	default:
		r.log.Warn("gradcheck: parameter FAILED", attrs...)
	}
}

func (r *run) transition(next State) {
	r.log.Debug("gradcheck: state transition", "from", r.state.String(), "to", next.String())
	r.state = next
}

func (r *run) abort(err error) (*Result, error) {
	r.log.Error("gradcheck: aborted", "state", r.state.String(), "err", err)
	r.state = StateAborted
	return nil, err
}

// comparePair applies the tolerance policy to one estimate.
func comparePair(tol Tolerance, est Estimate, analytic float64) Pair {
	p := Pair{ID: est.ID, Analytic: analytic, Numeric: est.Numeric}
	if !est.Finite() {
		p.RelError = math.Inf(1)
		p.Err = fmt.Errorf("%w: score(+ε)=%g score(-ε)=%g", ErrNonFiniteLoss, est.LossPlus, est.LossMinus)
		return p
	}
	p.RelError, p.Passed = tol.Compare(analytic, est.Numeric)
	return p
}
