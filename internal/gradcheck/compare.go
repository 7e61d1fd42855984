package gradcheck

import "math"

// Tolerance is the comparator's acceptance policy.
type Tolerance struct {
	MaxRelError float64 // Relative error must be strictly below this
	MinAbsError float64 // Absolute-error threshold used when both gradients are near zero
}

// Compare scores one analytic/numeric pair.
//
// With denom = |a| + |n|:
//   - denom > MinAbsError: relErr = |a - n| / denom, pass iff relErr < MaxRelError
//   - otherwise both values are near zero and the pair passes iff
//     |a - n| < MinAbsError
//
// Identical values always pass with relErr = 0, whatever the thresholds.
// A NaN or infinite input yields relErr = +Inf and a failure.
func (t Tolerance) Compare(analytic, numeric float64) (relErr float64, ok bool) {
	if !isFinite(analytic) || !isFinite(numeric) {
		return math.Inf(1), false
	}

	diff := math.Abs(analytic - numeric)
	if diff == 0 {
		return 0, true
	}
	denom := math.Abs(analytic) + math.Abs(numeric)
	if denom > t.MinAbsError {
		relErr = diff / denom
		return relErr, relErr < t.MaxRelError
	}

	if denom > 0 {
		relErr = diff / denom
	}
	return relErr, diff < t.MinAbsError
}

// RelativeError returns |a - n| / (|a| + |n|), or 0 when both are zero.
func RelativeError(analytic, numeric float64) float64 {
	denom := math.Abs(analytic) + math.Abs(numeric)
	if denom == 0 {
		return 0
	}
	return math.Abs(analytic-numeric) / denom
}
