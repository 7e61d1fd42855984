package gradcheck

import (
	"fmt"
	"io"
	"strings"
)

// State is a stage of a check run.
type State int

// Run states. Transitions only move forward.
const (
	StateValidating State = iota
	StateCollectingAnalytic
	StateSweeping
	StateScoring
	StateDone
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateCollectingAnalytic:
		return "collecting-analytic"
	case StateSweeping:
		return "sweeping"
	case StateScoring:
		return "scoring"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Pair is the comparison of one parameter's analytic and numeric gradient.
type Pair struct {
	ID       Identity
	Analytic float64
	Numeric  float64
	RelError float64 // +Inf when either value is not finite
	Passed   bool
	Err      error // ErrNonFiniteLoss when a perturbed loss was NaN/Inf
}

// Failure describes one parameter whose gradients disagree.
type Failure struct {
	ID       Identity
	Analytic float64
	Numeric  float64
	RelError float64
	Err      error // ErrNonFiniteLoss for non-finite perturbed losses, else nil
}

// String formats the failure on one line.
func (f Failure) String() string {
	s := fmt.Sprintf("%s (%s) analytic=%.10g numeric=%.10g relError=%.6g",
		f.ID, f.ID.Key(), f.Analytic, f.Numeric, f.RelError)
	if f.Err != nil {
		s += ": " + f.Err.Error()
	}
	return s
}

// Result is the outcome of a completed (not aborted) check run.
type Result struct {
	Pass     bool      // True only after a complete sweep with zero failures
	Failures []Failure // Failing parameters in enumeration order
	Pairs    []Pair    // Every compared parameter in enumeration order
	Total    int       // Number of enumerated parameters
	Complete bool      // False when the sweep stopped early
	MaxRel   float64   // Largest relative error seen among compared pairs
	State    State     // Always StateDone for a returned Result
}

// Checked returns the number of parameters compared.
func (r *Result) Checked() int {
	return len(r.Pairs)
}

// Passed returns the number of parameters that passed.
func (r *Result) Passed() int {
	return len(r.Pairs) - len(r.Failures)
}

// Report writes a human readable summary followed by every failure.
func (r *Result) Report(w io.Writer) error {
	verdict := "PASS"
	if !r.Pass {
		verdict = "FAIL"
	}
	_, err := fmt.Fprintf(w, "GradientCheck: %s, %d/%d parameters checked, %d passed, %d failed, max relative error %.6g\n",
		verdict, r.Checked(), r.Total, r.Passed(), len(r.Failures), r.MaxRel)
	if err != nil {
		return err
	}
	if !r.Complete {
		if _, err := fmt.Fprintln(w, "  sweep stopped at first failure"); err != nil {
			return err
		}
	}
	for _, f := range r.Failures {
		if _, err := fmt.Fprintf(w, "  FAILED %s\n", f); err != nil {
			return err
		}
	}
	return nil
}

// String returns the Report output.
func (r *Result) String() string {
	var sb strings.Builder
	_ = r.Report(&sb)
	return sb.String()
}
