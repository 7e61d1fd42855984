package nn_test

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"github.com/born-ml/gradcheck/internal/nn"
	"github.com/born-ml/gradcheck/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func checkConfig() gradcheck.Config {
	cfg := gradcheck.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func denseNetwork(t *testing.T, mutate func(*nn.NetworkConfig)) *nn.Network {
	t.Helper()
	cfg := nn.NetworkConfig{
		Seed:       12345,
		WeightInit: nn.WeightInitXavier,
		InputType:  nn.FeedForward(4),
		Layers: []nn.LayerConfig{
			nn.LinearConfig{NOut: 5, LayerOptions: nn.LayerOptions{Activation: nn.Tanh{}}},
			nn.OutputConfig{NOut: 3},
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	net, err := nn.NewNetwork(cfg)
	require.NoError(t, err)
	return net
}

func TestNetwork_InfersSizes(t *testing.T) {
	net := denseNetwork(t, nil)
	require.Equal(t, 2, net.NumLayers())
	assert.Equal(t, 4*5+5+5*3+3, net.NumParams())
	assert.Equal(t, nn.FeedForward(3), net.OutputType())
	assert.Contains(t, net.Summary(), "total params=43")
}

func TestNetwork_DefaultActivations(t *testing.T) {
	net := denseNetwork(t, func(c *nn.NetworkConfig) {
		c.Layers = []nn.LayerConfig{
			nn.LinearConfig{NOut: 5},
			nn.OutputConfig{NOut: 3, Loss: nn.MSE{}},
		}
	})
	hidden := net.Layers()[0].(*nn.Linear)
	assert.Equal(t, nn.Sigmoid{}, hidden.Activation())
	out := net.Layers()[1].(*nn.Output)
	assert.Equal(t, nn.Identity{}, out.Activation())

	net = denseNetwork(t, nil)
	assert.Equal(t, nn.Softmax{}, net.Layers()[1].(*nn.Output).Activation())
}

func TestNetwork_Deterministic(t *testing.T) {
	a := denseNetwork(t, nil)
	b := denseNetwork(t, nil)
	assert.Equal(t, a.Params(), b.Params())

	c := denseNetwork(t, func(cfg *nn.NetworkConfig) { cfg.Seed = 7 })
	assert.NotEqual(t, a.Params(), c.Params())
}

func TestNetwork_ConfigErrors(t *testing.T) {
	cases := map[string]nn.NetworkConfig{
		"no layers": {InputType: nn.FeedForward(4)},
		"no input type": {Layers: []nn.LayerConfig{
			nn.OutputConfig{NOut: 3},
		}},
		"last not output": {InputType: nn.FeedForward(4), Layers: []nn.LayerConfig{
			nn.LinearConfig{NOut: 3},
		}},
		"output not last": {InputType: nn.FeedForward(4), Layers: []nn.LayerConfig{
			nn.OutputConfig{NOut: 3},
			nn.OutputConfig{NOut: 3},
		}},
		"nIn mismatch": {InputType: nn.FeedForward(4), Layers: []nn.LayerConfig{
			nn.LinearConfig{NIn: 5, NOut: 3},
			nn.OutputConfig{NOut: 3},
		}},
		"dense after lstm": {InputType: nn.Recurrent(4, 2), Layers: []nn.LayerConfig{
			nn.LSTMConfig{NOut: 3},
			nn.OutputConfig{NOut: 3},
		}},
		"embedding on vector": {InputType: nn.FeedForward(4), Layers: []nn.LayerConfig{
			nn.EmbeddingConfig{NIn: 4, NOut: 3},
			nn.OutputConfig{NOut: 3},
		}},
		"dropout out of range": {InputType: nn.FeedForward(4), Layers: []nn.LayerConfig{
			nn.OutputConfig{NOut: 3, LayerOptions: nn.LayerOptions{Dropout: 1}},
		}},
		"negative l2": {InputType: nn.FeedForward(4), L2: -1, Layers: []nn.LayerConfig{
			nn.OutputConfig{NOut: 3},
		}},
		"activation layer without activation": {InputType: nn.FeedForward(4), Layers: []nn.LayerConfig{
			nn.ActivationConfig{},
			nn.OutputConfig{NOut: 3},
		}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := nn.NewNetwork(cfg)
			require.ErrorIs(t, err, nn.ErrInvalidConfig)
		})
	}
}

func TestNetwork_ValidateInput(t *testing.T) {
	net := denseNetwork(t, nil)
	x := scenario.Uniform(2, 4, 1)
	y := scenario.OneHot(2, 3, 1)
	require.NoError(t, net.ValidateInput(x, y))

	require.ErrorIs(t, net.ValidateInput(scenario.Uniform(2, 5, 1), y), nn.ErrInvalidInput)
	require.ErrorIs(t, net.ValidateInput(x, scenario.OneHot(3, 3, 1)), nn.ErrInvalidInput)
	require.ErrorIs(t, net.ValidateInput(x, scenario.OneHot(2, 4, 1)), nn.ErrInvalidInput)
	require.ErrorIs(t, net.ValidateInput(nil, y), nn.ErrInvalidInput)

	bad := mat.DenseCopyOf(x)
	bad.Set(1, 1, math.NaN())
	require.ErrorIs(t, net.ValidateInput(bad, y), nn.ErrInvalidInput)
}

func TestNetwork_ParametersAddressing(t *testing.T) {
	net := denseNetwork(t, nil)
	groups := net.ParameterGroups(1)
	require.Len(t, groups, 2)
	assert.Equal(t, gradcheck.Group{Name: "W", Shape: []int{5, 3}}, groups[0])
	assert.Equal(t, gradcheck.Group{Name: "b", Shape: []int{3}}, groups[1])

	id := gradcheck.Identity{Layer: 1, Group: "b", Offset: 2}
	net.SetScalar(id, 0.25)
	assert.Equal(t, 0.25, net.Scalar(id))
	assert.Equal(t, 0.25, net.Params()[net.NumParams()-1])

	assert.Panics(t, func() { net.Scalar(gradcheck.Identity{Layer: 0, Group: "RW"}) })
	assert.Panics(t, func() { net.Scalar(gradcheck.Identity{Layer: 2, Group: "W"}) })
	assert.Panics(t, func() { net.Scalar(gradcheck.Identity{Layer: 0, Group: "b", Offset: 5}) })
}

func TestNetwork_SetParams(t *testing.T) {
	net := denseNetwork(t, nil)
	values := make([]float64, net.NumParams())
	for i := range values {
		values[i] = float64(i)
	}
	require.NoError(t, net.SetParams(values))
	assert.Equal(t, values, net.Params())
	require.ErrorIs(t, net.SetParams(values[1:]), nn.ErrInvalidConfig)
}

func TestNetwork_CloneIsIndependent(t *testing.T) {
	net := denseNetwork(t, nil)
	clone := net.CloneNetwork()
	assert.Equal(t, net.Params(), clone.Params())

	clone.SetScalar(gradcheck.Identity{Layer: 0, Group: "W"}, 99)
	assert.NotEqual(t, 99.0, net.Scalar(gradcheck.Identity{Layer: 0, Group: "W"}))

	x, y := scenario.Uniform(3, 4, 2), scenario.OneHot(3, 3, 1)
	assert.Equal(t, net.Score(x, y), net.Clone().Score(x, y))
}

func TestNetwork_GradientPasses(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*nn.NetworkConfig)
	}{
		{"tanh/softmax/mcxent", nil},
		{"leakyrelu/identity/mse", func(c *nn.NetworkConfig) {
			c.Layers = []nn.LayerConfig{
				nn.LinearConfig{NOut: 5, LayerOptions: nn.LayerOptions{Activation: nn.NewLeakyReLU(nn.DefaultLeakyReLUAlpha)}},
				nn.OutputConfig{NOut: 3, Loss: nn.MSE{}},
			}
		}},
		{"sigmoid output with mcxent", func(c *nn.NetworkConfig) {
			c.Layers = []nn.LayerConfig{
				nn.LinearConfig{NOut: 5},
				nn.OutputConfig{NOut: 3, LayerOptions: nn.LayerOptions{Activation: nn.Sigmoid{}}},
			}
		}},
		{"activation layer", func(c *nn.NetworkConfig) {
			c.Layers = []nn.LayerConfig{
				nn.LinearConfig{NOut: 5, LayerOptions: nn.LayerOptions{Activation: nn.Identity{}, NoBias: true}},
				nn.ActivationConfig{Activation: nn.Tanh{}},
				nn.OutputConfig{NOut: 3},
			}
		}},
		{"l1 and l2", func(c *nn.NetworkConfig) {
			c.L1 = 0.01
			c.L2 = 0.05
		}},
		{"sgd with unit learning rate", func(c *nn.NetworkConfig) {
			c.Updater = gradcheck.UpdaterSGD
			c.LearningRate = 1.0
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net := denseNetwork(t, tc.mutate)
			x, y := scenario.Uniform(4, 4, 3), scenario.OneHot(4, 3, 1)

			res, err := gradcheck.Check(net, x, y, checkConfig())
			require.NoError(t, err)
			assert.True(t, res.Pass, res.String())
			assert.Equal(t, net.NumParams(), res.Checked())
		})
	}
}

func TestNetwork_RecurrentGradientPasses(t *testing.T) {
	for _, noBias := range []bool{false, true} {
		c, err := scenario.RnnOutput(scenario.Options{Minibatch: 3, TimeSteps: 4, NoBias: noBias})
		require.NoError(t, err)

		res, err := gradcheck.Check(c.Network, c.Input, c.Labels, checkConfig())
		require.NoError(t, err)
		assert.True(t, res.Pass, "%s\n%s", c.Name, res)
	}
}

func TestNetwork_GradientPassesWithUnnormalisedLabels(t *testing.T) {
	c, err := scenario.DenseOutput(scenario.Options{Minibatch: 2})
	require.NoError(t, err)
	labels := mat.NewDense(2, 3, []float64{
		1, 1, 0,
		0, 0, 0,
	})
	require.NoError(t, c.Network.ValidateInput(c.Input, labels))

	res, err := gradcheck.Check(c.Network, c.Input, labels, checkConfig())
	require.NoError(t, err)
	assert.True(t, res.Pass, res.String())
}

func TestNetwork_RegularizationIsScored(t *testing.T) {
	x, y := scenario.Uniform(2, 4, 3), scenario.OneHot(2, 3, 1)
	plain := denseNetwork(t, nil)
	reg := denseNetwork(t, func(c *nn.NetworkConfig) { c.L2 = 0.1 })
	assert.Greater(t, reg.Score(x, y), plain.Score(x, y))
}

func TestNetwork_CheckRestoresParameters(t *testing.T) {
	net := denseNetwork(t, nil)
	before := net.Params()
	x, y := scenario.Uniform(4, 4, 3), scenario.OneHot(4, 3, 1)

	_, err := gradcheck.Check(net, x, y, checkConfig())
	require.NoError(t, err)
	assert.Equal(t, before, net.Params())
}

func TestNetwork_ReplicaSweepMatchesSequential(t *testing.T) {
	x, y := scenario.Uniform(4, 4, 3), scenario.OneHot(4, 3, 1)

	seq, err := gradcheck.Check(denseNetwork(t, nil), x, y, checkConfig())
	require.NoError(t, err)

	cfg := checkConfig()
	cfg.Workers = 4
	par, err := gradcheck.Check(denseNetwork(t, nil), x, y, cfg)
	require.NoError(t, err)

	assert.Equal(t, seq.Pairs, par.Pairs)
	assert.Equal(t, seq.Pass, par.Pass)
}

func TestNetwork_RejectsUnsupportedTraining(t *testing.T) {
	x, y := scenario.Uniform(2, 4, 3), scenario.OneHot(2, 3, 1)
	cases := map[string]func(*nn.NetworkConfig){
		"dropout": func(c *nn.NetworkConfig) {
			c.Layers = []nn.LayerConfig{
				nn.LinearConfig{NOut: 5, LayerOptions: nn.LayerOptions{Dropout: 0.5}},
				nn.OutputConfig{NOut: 3},
			}
		},
		"adam":              func(c *nn.NetworkConfig) { c.Updater = gradcheck.UpdaterAdam },
		"sgd learning rate": func(c *nn.NetworkConfig) { c.Updater = gradcheck.UpdaterSGD; c.LearningRate = 0.1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			net := denseNetwork(t, mutate)
			before := net.Params()

			res, err := gradcheck.Check(net, x, y, checkConfig())
			require.ErrorIs(t, err, gradcheck.ErrConfiguration)
			assert.Nil(t, res)
			assert.Equal(t, before, net.Params())
		})
	}
}

func TestNetwork_DropoutChangesTrainingScore(t *testing.T) {
	net := denseNetwork(t, func(c *nn.NetworkConfig) {
		c.Layers = []nn.LayerConfig{
			nn.LinearConfig{NOut: 5},
			nn.OutputConfig{NOut: 3, LayerOptions: nn.LayerOptions{Dropout: 0.5}},
		}
	})
	assert.Equal(t, 0.5, net.Training(1).Dropout)
	assert.Zero(t, net.Training(0).Dropout)

	x, y := scenario.Uniform(4, 4, 3), scenario.OneHot(4, 3, 1)
	scores := map[float64]bool{}
	for range 8 {
		scores[net.Score(x, y)] = true
	}
	assert.Greater(t, len(scores), 1)

	// Inference never drops.
	assert.True(t, mat.Equal(net.Output(x), net.Output(x)))
}

func TestNetwork_EmbeddingIndexOutOfRange(t *testing.T) {
	c, err := scenario.Embedding(scenario.Options{Minibatch: 2})
	require.NoError(t, err)
	c.Input.Set(1, 0, 5)

	res, err := gradcheck.Check(c.Network, c.Input, c.Labels, checkConfig())
	require.ErrorIs(t, err, gradcheck.ErrConfiguration)
	require.ErrorIs(t, err, nn.ErrInvalidInput)
	assert.Nil(t, res)
}

func TestNetwork_EnumerationOrder(t *testing.T) {
	c, err := scenario.RnnOutput(scenario.Options{Minibatch: 1})
	require.NoError(t, err)

	vec, err := gradcheck.Enumerate(c.Network)
	require.NoError(t, err)
	require.Len(t, vec, c.Network.NumParams())

	var keys []string
	for _, e := range vec {
		if len(keys) == 0 || keys[len(keys)-1] != e.ID.Key() {
			keys = append(keys, e.ID.Key())
		}
	}
	assert.Equal(t, []string{"0_W", "0_RW", "0_b", "1_W", "1_b"}, keys)
	assert.Equal(t, c.Network.Params(), vec.Values())
}
