package gradcheck_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Pass(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)
	input, labels := dummyBatch()

	res, err := gradcheck.Check(m, input, labels, quietConfig())
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Failures)
	assert.Equal(t, gradcheck.StateDone, res.State)
	assert.Equal(t, 15, res.Total)
	assert.Equal(t, 15, res.Checked())
	assert.Equal(t, 15, res.Passed())
	assert.Less(t, res.MaxRel, 1e-3)
}

func TestCheckGradients_Positional(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)
	input, labels := dummyBatch()

	res, err := gradcheck.CheckGradients(m, 1e-6, 1e-3, 1e-8, false, false, input, labels)
	require.NoError(t, err)
	assert.True(t, res.Pass)
}

func TestCheck_ReportsEveryFailure(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, corrupt(grad, 4, 7, 12))
	input, labels := dummyBatch()

	res, err := gradcheck.Check(m, input, labels, quietConfig())
	require.NoError(t, err, "gradient mismatch is a result, not an error")
	assert.False(t, res.Pass)
	assert.True(t, res.Complete)
	require.Len(t, res.Failures, 3)

	got := []string{res.Failures[0].ID.String(), res.Failures[1].ID.String(), res.Failures[2].ID.String()}
	assert.Equal(t, []string{"0_W[4]", "0_b[1]", "1_W[3]"}, got)
	for _, f := range res.Failures {
		assert.NoError(t, f.Err)
		assert.GreaterOrEqual(t, f.RelError, 1e-3)
	}
}

func TestCheck_ReturnOnFirstFailure(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, corrupt(grad, 7, 12))
	input, labels := dummyBatch()

	cfg := quietConfig()
	cfg.ReturnOnFirstFailure = true
	res, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)

	assert.False(t, res.Pass)
	assert.False(t, res.Complete)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 7, res.Failures[0].ID.Index)
	assert.Equal(t, 8, res.Checked())
	assert.Equal(t, 16, m.scores, "sweep stopped after the failing parameter")
}

func TestCheck_ReturnOnFirstFailure_CleanSweepPasses(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)
	input, labels := dummyBatch()

	cfg := quietConfig()
	cfg.ReturnOnFirstFailure = true
	res, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.True(t, res.Complete)
}

func TestCheck_RestoresState(t *testing.T) {
	loss, grad := quadratic()
	for _, name := range []string{"pass", "fail", "fail-fast"} {
		t.Run(name, func(t *testing.T) {
			g := grad
			if name != "pass" {
				g = corrupt(grad, 0, 9)
			}
			m := newFlatModel(twoLayerGroups(), loss, g)
			input, labels := dummyBatch()
			before := slices.Clone(m.theta)

			cfg := quietConfig()
			cfg.ReturnOnFirstFailure = name == "fail-fast"
			_, err := gradcheck.Check(m, input, labels, cfg)
			require.NoError(t, err)

			for i := range before {
				assert.Equal(t, math.Float64bits(before[i]), math.Float64bits(m.theta[i]), "parameter %d", i)
			}
		})
	}
}

func TestCheck_Idempotent(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, corrupt(grad, 3, 11))
	input, labels := dummyBatch()

	first, err := gradcheck.Check(m, input, labels, quietConfig())
	require.NoError(t, err)
	second, err := gradcheck.Check(m, input, labels, quietConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCheck_NonFiniteLossContinues(t *testing.T) {
	_, grad := quadratic()
	quad, _ := quadratic()
	loss := func(theta []float64) float64 {
		if theta[1] > 1 {
			return math.Inf(1)
		}
		return quad(theta)
	}
	m := newFlatModel(twoLayerGroups(), loss, grad)
	m.theta[1] = 1 // +ε crosses the threshold
	input, labels := dummyBatch()

	res, err := gradcheck.Check(m, input, labels, quietConfig())
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.True(t, res.Complete, "sweep continues past a non-finite loss")
	require.Len(t, res.Failures, 1)

	f := res.Failures[0]
	assert.Equal(t, 1, f.ID.Index)
	assert.True(t, math.IsInf(f.RelError, 1))
	assert.ErrorIs(t, f.Err, gradcheck.ErrNonFiniteLoss)
	assert.Equal(t, 1.0, m.theta[1])
}

func TestCheck_ShapeMismatchAborts(t *testing.T) {
	loss, grad := quadratic()
	short := func(theta []float64) []float64 { return grad(theta)[:14] }
	m := newFlatModel(twoLayerGroups(), loss, short)
	input, labels := dummyBatch()

	res, err := gradcheck.Check(m, input, labels, quietConfig())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, gradcheck.ErrShapeMismatch)
	assert.NotErrorIs(t, err, gradcheck.ErrConfiguration)
	assert.Zero(t, m.scores, "no perturbation before abort")
}

func TestCheck_ConfigurationErrors(t *testing.T) {
	loss, grad := quadratic()
	input, labels := dummyBatch()
	errBadInput := errors.New("expected 5 input columns")

	tests := []struct {
		name   string
		setup  func(m *flatModel, cfg *gradcheck.Config)
		layer  int
		substr string
	}{
		{"dropout", func(m *flatModel, _ *gradcheck.Config) { m.training.Dropout = 0.5 }, 0, "dropout"},
		{"stateful updater", func(m *flatModel, _ *gradcheck.Config) { m.training.Updater = gradcheck.UpdaterAdam }, 0, "ADAM"},
		{"sgd learning rate", func(m *flatModel, _ *gradcheck.Config) {
			m.training.Updater = gradcheck.UpdaterSGD
			m.training.LearningRate = 0.1
		}, 0, "learning rate"},
		{"stochastic", func(m *flatModel, _ *gradcheck.Config) { m.training.Stochastic = true }, 0, "stochastic"},
		{"epsilon", func(_ *flatModel, cfg *gradcheck.Config) { cfg.Epsilon = 0 }, -1, "epsilon"},
		{"max rel", func(_ *flatModel, cfg *gradcheck.Config) { cfg.MaxRelError = -1 }, -1, "relative"},
		{"workers", func(_ *flatModel, cfg *gradcheck.Config) { cfg.Workers = -2 }, -1, "workers"},
		{"input", func(m *flatModel, _ *gradcheck.Config) { m.inputErr = errBadInput }, -1, "input columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFlatModel(twoLayerGroups(), loss, grad)
			cfg := quietConfig()
			tt.setup(m, &cfg)

			res, err := gradcheck.Check(m, input, labels, cfg)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, gradcheck.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.substr)

			var ce *gradcheck.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.layer, ce.Layer)
			assert.Zero(t, m.scores)
		})
	}
}

func TestCheck_InputErrorIsWrapped(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)
	m.inputErr = errors.New("labels have 2 rows, input has 3")
	input, labels := dummyBatch()

	_, err := gradcheck.Check(m, input, labels, quietConfig())
	assert.ErrorIs(t, err, m.inputErr)
	assert.ErrorIs(t, err, gradcheck.ErrConfiguration)
}

func TestCheck_GradientErrorIsConfiguration(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)
	m.gradErr = errors.New("backward pass needs a forward pass first")
	input, labels := dummyBatch()

	res, err := gradcheck.Check(m, input, labels, quietConfig())
	assert.Nil(t, res)
	require.ErrorIs(t, err, gradcheck.ErrConfiguration)
	assert.ErrorIs(t, err, m.gradErr)
	assert.NotErrorIs(t, err, gradcheck.ErrShapeMismatch)

	var ce *gradcheck.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, -1, ce.Layer)
	assert.Zero(t, m.scores)
}

func TestCheck_ZeroGradientPassesWithoutAbsoluteThreshold(t *testing.T) {
	// The second layer does not affect the loss, so both its analytic and
	// numeric gradients are exactly zero.
	groups := twoLayerGroups()
	first := 0
	for _, g := range groups[0] {
		first += g.Size()
	}
	loss := func(theta []float64) float64 {
		s := 0.0
		for _, v := range theta[:first] {
			s += v * v
		}
		return s
	}
	grad := func(theta []float64) []float64 {
		g := make([]float64, len(theta))
		for i, v := range theta[:first] {
			g[i] = 2 * v
		}
		return g
	}
	m := newFlatModel(groups, loss, grad)
	input, labels := dummyBatch()
	cfg := quietConfig()
	cfg.MinAbsError = 0

	res, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)
	assert.True(t, res.Pass, res.String())
}

func TestCheck_SGDWithUnitLearningRate(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)
	m.training = gradcheck.Training{Updater: gradcheck.UpdaterSGD, LearningRate: 1.0}
	input, labels := dummyBatch()

	res, err := gradcheck.Check(m, input, labels, quietConfig())
	require.NoError(t, err)
	assert.True(t, res.Pass)
}

func TestCheck_NilInput(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, grad)

	_, err := gradcheck.Check(m, nil, nil, quietConfig())
	assert.ErrorIs(t, err, gradcheck.ErrConfiguration)
}

func TestCheck_PrintResults(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, corrupt(grad, 2))
	input, labels := dummyBatch()

	var buf bytes.Buffer
	cfg := gradcheck.DefaultConfig()
	cfg.PrintResults = true
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	_, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 14, strings.Count(out, "parameter passed"))
	assert.Equal(t, 1, strings.Count(out, "parameter FAILED"))
	assert.Contains(t, out, "param=0_W[2]")
	assert.Contains(t, out, "gradcheck: finished")
}

func TestResult_Report(t *testing.T) {
	loss, grad := quadratic()
	m := newFlatModel(twoLayerGroups(), loss, corrupt(grad, 9))
	input, labels := dummyBatch()

	cfg := quietConfig()
	cfg.ReturnOnFirstFailure = true
	res, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)

	report := res.String()
	assert.Contains(t, report, "GradientCheck: FAIL, 10/15 parameters checked, 9 passed, 1 failed")
	assert.Contains(t, report, "sweep stopped at first failure")
	assert.Contains(t, report, "FAILED 1_W[0] (1_W)")
}
