// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gradcheck verifies analytic gradients against centered finite
// differences.
//
// # Overview
//
// A check runs in five stages:
//   - Validate the configuration and the model's training setup
//   - Collect the analytic gradient once
//   - Enumerate every trainable scalar in (layer, group, offset) order
//   - Sweep: perturb each scalar by ±epsilon and score the model twice
//   - Compare each analytic/numeric pair and aggregate a Result
//
// Every perturbation is restored before the next one starts, so the model's
// parameters are bit-identical before and after a check.
//
// # Basic Usage
//
//	cfg := gradcheck.DefaultConfig() // eps 1e-6, maxRel 1e-3, minAbs 1e-8
//	res, err := gradcheck.Check(model, input, labels, cfg)
//	if err != nil {
//	    // configuration error or shape mismatch: nothing was compared
//	}
//	if !res.Pass {
//	    res.Report(os.Stdout)
//	}
//
// # Acceptance
//
// With denom = |analytic| + |numeric|, a pair passes when
// |analytic - numeric| / denom < MaxRelError, or, when denom is at most
// MinAbsError, when |analytic - numeric| < MinAbsError. Non-finite
// estimates always fail.
//
// # Parallel Sweep
//
// Models implementing Replicable can be swept by several workers, each on a
// private clone. Results are identical to a sequential sweep.
//
//	cfg.Workers = runtime.NumCPU()
package gradcheck
