package gradcheck

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/born-ml/gradcheck/internal/parallel"
)

// sweepReplicas checks parameters concurrently, one private model replica
// per worker. The borrowed model itself is never perturbed.
//
// Pairs arrive in completion order and are re-sorted by identity so the
// report matches a sequential sweep. With ReturnOnFirstFailure, workers skip
// every index above the lowest failure seen so far and the result is cut
// right after the lowest failing index, which is the failure a sequential
// sweep would have stopped at.
func (r *run) sweepReplicas(rep Replicable, vec ParameterVector, grad []float64) []Pair {
	pcfg := parallel.Config{Enabled: true, NumWorkers: r.cfg.Workers, MinChunkSize: 1}
	workers := pcfg.Workers(len(vec))

	estimators := make([]*Estimator, workers)
	for w := range estimators {
		estimators[w] = NewEstimator(rep.Clone(), r.input, r.labels, r.cfg.Epsilon)
	}
	r.log.Debug("gradcheck: replica sweep", "workers", workers, "params", len(vec))

	tol := r.cfg.Tolerance()
	var firstFail atomic.Int64
	firstFail.Store(int64(len(vec)))

	var mu sync.Mutex
	pairs := make([]Pair, 0, len(vec))

	parallel.ForWorker(len(vec), func(w, i int) {
		if r.cfg.ReturnOnFirstFailure && int64(i) > firstFail.Load() {
			return
		}
		e := vec[i]
		p := comparePair(tol, estimators[w].Estimate(e.ID), grad[e.ID.Index])

		mu.Lock()
		pairs = append(pairs, p)
		mu.Unlock()

		if !p.Passed {
			lowerTo(&firstFail, int64(i))
		}
	}, pcfg)

	slices.SortFunc(pairs, func(a, b Pair) int {
		return a.ID.Compare(b.ID)
	})

	if r.cfg.ReturnOnFirstFailure {
		cut := firstFail.Load()
		if cut < int64(len(vec)) {
			n, _ := slices.BinarySearchFunc(pairs, cut, func(p Pair, idx int64) int {
				return int(int64(p.ID.Index) - idx)
			})
			pairs = pairs[:n+1]
		}
	}
	return pairs
}

// lowerTo atomically sets v to min(v, x).
func lowerTo(v *atomic.Int64, x int64) {
	for {
		cur := v.Load()
		if x >= cur || v.CompareAndSwap(cur, x) {
			return
		}
	}
}
