package gradcheck_test

import (
	"slices"
	"testing"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wideGroups() [][]gradcheck.Group {
	return [][]gradcheck.Group{
		{{Name: "W", Shape: []int{8, 6}}, {Name: "b", Shape: []int{6}}},
		{{Name: "W", Shape: []int{6, 6}}},
		{{Name: "W", Shape: []int{6, 3}}, {Name: "b", Shape: []int{3}}},
	}
}

func TestCheck_ReplicaSweepMatchesSequential(t *testing.T) {
	loss, grad := quadratic()
	bad := corrupt(grad, 5, 40, 77, 100)
	input, labels := dummyBatch()

	seqModel := newFlatModel(wideGroups(), loss, bad)
	seq, err := gradcheck.Check(seqModel, input, labels, quietConfig())
	require.NoError(t, err)

	parModel := replicaModel{newFlatModel(wideGroups(), loss, bad)}
	before := slices.Clone(parModel.theta)
	cfg := quietConfig()
	cfg.Workers = 4
	par, err := gradcheck.Check(parModel, input, labels, cfg)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
	assert.Equal(t, before, parModel.theta)
	assert.Zero(t, parModel.scores, "the borrowed model is never perturbed by a replica sweep")
}

func TestCheck_ReplicaSweepFirstFailure(t *testing.T) {
	loss, grad := quadratic()
	input, labels := dummyBatch()

	m := replicaModel{newFlatModel(wideGroups(), loss, corrupt(grad, 31, 60, 90))}
	cfg := quietConfig()
	cfg.Workers = 3
	cfg.ReturnOnFirstFailure = true

	res, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.False(t, res.Complete)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 31, res.Failures[0].ID.Index)
	require.Len(t, res.Pairs, 32)
	for i, p := range res.Pairs {
		assert.Equal(t, i, p.ID.Index)
	}
}

func TestCheck_WorkersWithoutReplicasFallsBack(t *testing.T) {
	loss, grad := quadratic()
	input, labels := dummyBatch()

	m := newFlatModel(wideGroups(), loss, grad)
	cfg := quietConfig()
	cfg.Workers = 4

	res, err := gradcheck.Check(m, input, labels, cfg)
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Equal(t, 2*res.Total, m.scores)
}
