// Package scenario builds the reference gradient-check workloads: small
// networks with and without bias groups, paired with a deterministic
// minibatch.
package scenario

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"github.com/born-ml/gradcheck/internal/nn"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Seed is the seed used for weights and data unless a Case overrides it.
const Seed = 12345

// Sizes shared by the feed-forward scenarios.
const (
	nIn       = 5
	nOut      = 3
	layerSize = 6
)

// Case is a ready-to-check network with its minibatch.
type Case struct {
	Name    string
	Network *nn.Network
	Input   *mat.Dense
	Labels  *mat.Dense
}

// Options selects one variant of a scenario.
type Options struct {
	Minibatch int
	// NoBias removes the bias of the layer under test. Which layer that
	// is depends on the scenario.
	NoBias bool
	// OutputNoBias removes the output layer bias (DenseOutput only).
	OutputNoBias bool
	// TimeSteps is the sequence length for RnnOutput; zero selects 1.
	TimeSteps int
}

func (o Options) validate() error {
	if o.Minibatch <= 0 {
		return fmt.Errorf("scenario: minibatch must be positive, got %d", o.Minibatch)
	}
	if o.TimeSteps < 0 {
		return fmt.Errorf("scenario: time steps must be non-negative, got %d", o.TimeSteps)
	}
	return nil
}

// Scenario names a builder and the minibatch sizes it is checked with.
type Scenario struct {
	Name        string
	Minibatches []int
	Build       func(Options) (*Case, error)

	outputBias bool // Whether OutputNoBias is a separate axis
}

// Variants returns every minibatch and bias combination of the scenario.
func (s Scenario) Variants() []Options {
	outputAxis := []bool{false}
	if s.outputBias {
		outputAxis = []bool{false, true}
	}
	var out []Options
	for _, mb := range s.Minibatches {
		for _, noBias := range []bool{false, true} {
			for _, outNoBias := range outputAxis {
				out = append(out, Options{Minibatch: mb, NoBias: noBias, OutputNoBias: outNoBias})
			}
		}
	}
	return out
}

// All returns every scenario in a fixed order.
func All() []Scenario {
	return []Scenario{
		{Name: "dense-output", Minibatches: []int{1, 4}, Build: DenseOutput, outputBias: true},
		{Name: "rnn-output", Minibatches: []int{1, 4}, Build: RnnOutput},
		{Name: "embedding", Minibatches: []int{1, 4}, Build: Embedding},
		{Name: "cnn-subsampling", Minibatches: []int{1, 3}, Build: CNN},
	}
}

// ByName returns the scenario with the given name.
func ByName(name string) (Scenario, bool) {
	for _, s := range All() {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

func normal() nn.LayerOptions {
	return nn.LayerOptions{WeightInit: nn.WeightInitDistribution, Dist: nn.NormalDistribution(0, 1)}
}

func withBias(opts nn.LayerOptions, act nn.Activation, noBias bool) nn.LayerOptions {
	opts.Activation = act
	opts.NoBias = noBias
	return opts
}

// DenseOutput is Dense(tanh, bias) -> Dense(tanh) -> Output(softmax, MCXENT)
// on 5 inputs. NoBias applies to the second dense layer and OutputNoBias to
// the output layer.
func DenseOutput(o Options) (*Case, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	net, err := nn.NewNetwork(nn.NetworkConfig{
		Seed:      Seed,
		InputType: nn.FeedForward(nIn),
		Layers: []nn.LayerConfig{
			nn.LinearConfig{NIn: nIn, NOut: layerSize, LayerOptions: withBias(normal(), nn.Tanh{}, false)},
			nn.LinearConfig{NIn: layerSize, NOut: layerSize, LayerOptions: withBias(normal(), nn.Tanh{}, o.NoBias)},
			nn.OutputConfig{NIn: layerSize, NOut: nOut, Loss: nn.MCXENT{}, LayerOptions: withBias(normal(), nn.Softmax{}, o.OutputNoBias)},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Case{
		Name:    fmt.Sprintf("dense-output(minibatch=%d, denseNoBias=%t, outNoBias=%t)", o.Minibatch, o.NoBias, o.OutputNoBias),
		Network: net,
		Input:   Uniform(o.Minibatch, nIn, Seed),
		Labels:  OneHot(o.Minibatch, nOut, 1),
	}, nil
}

// RnnOutput is LSTM(tanh) -> RnnOutput(softmax, MCXENT). NoBias applies to
// the output layer.
func RnnOutput(o Options) (*Case, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	steps := max(o.TimeSteps, 1)
	net, err := nn.NewNetwork(nn.NetworkConfig{
		Seed:      Seed,
		InputType: nn.Recurrent(nIn, steps),
		Layers: []nn.LayerConfig{
			nn.LSTMConfig{NIn: nIn, NOut: layerSize, LayerOptions: withBias(normal(), nn.Tanh{}, false)},
			nn.RnnOutputConfig{NIn: layerSize, NOut: nOut, Loss: nn.MCXENT{}, LayerOptions: withBias(normal(), nn.Softmax{}, o.NoBias)},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Case{
		Name:    fmt.Sprintf("rnn-output(minibatch=%d, T=%d, rnnOutNoBias=%t)", o.Minibatch, steps, o.NoBias),
		Network: net,
		Input:   Uniform(o.Minibatch, nIn*steps, Seed),
		Labels:  OneHot(o.Minibatch, nOut, steps),
	}, nil
}

// Embedding is Embedding(tanh) -> Output(softmax, MCXENT) over 5 indices.
// NoBias applies to the embedding layer.
func Embedding(o Options) (*Case, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	net, err := nn.NewNetwork(nn.NetworkConfig{
		Seed:      Seed,
		InputType: nn.FeedForward(1),
		Layers: []nn.LayerConfig{
			nn.EmbeddingConfig{NIn: nIn, NOut: layerSize, LayerOptions: withBias(normal(), nn.Tanh{}, o.NoBias)},
			nn.OutputConfig{NIn: layerSize, NOut: nOut, Loss: nn.MCXENT{}, LayerOptions: withBias(normal(), nn.Softmax{}, false)},
		},
	})
	if err != nil {
		return nil, err
	}
	input := mat.NewDense(o.Minibatch, 1, nil)
	for i := 0; i < o.Minibatch; i++ {
		input.Set(i, 0, float64(i%nIn))
	}
	return &Case{
		Name:    fmt.Sprintf("embedding(minibatch=%d, embeddingNoBias=%t)", o.Minibatch, o.NoBias),
		Network: net,
		Input:   input,
		Labels:  OneHot(o.Minibatch, nOut, 1),
	}, nil
}

// CNN is Conv(2x2, 1->3) -> MaxPool(2x2, stride 1) -> Conv(2x2, 3->2) ->
// Output(softmax, MCXENT) on a 5x5x1 image, trained with SGD at learning
// rate 1.0. NoBias applies to the second convolution.
//
//	5x5x1 -> conv -> 4x4x3 -> pool -> 3x3x3 -> conv -> 2x2x2 -> output 4
func CNN(o Options) (*Case, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	const (
		height, width, depth = 5, 5, 1
		classes              = 4
	)
	kernel, stride := [2]int{2, 2}, [2]int{1, 1}

	net, err := nn.NewNetwork(nn.NetworkConfig{
		Seed:         Seed,
		Updater:      gradcheck.UpdaterSGD,
		LearningRate: 1.0,
		WeightInit:   nn.WeightInitDistribution,
		Dist:         nn.NormalDistribution(0, 1),
		InputType:    nn.ConvolutionalFlat(height, width, depth),
		Layers: []nn.LayerConfig{
			nn.Conv2DConfig{NIn: depth, NOut: 3, Kernel: kernel, Stride: stride},
			nn.MaxPool2DConfig{Kernel: kernel, Stride: stride},
			nn.Conv2DConfig{NIn: 3, NOut: 2, Kernel: kernel, Stride: stride, LayerOptions: nn.LayerOptions{NoBias: o.NoBias}},
			nn.OutputConfig{NIn: 2 * 2 * 2, NOut: classes, Loss: nn.MCXENT{}, LayerOptions: nn.LayerOptions{Activation: nn.Softmax{}}},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Case{
		Name:    fmt.Sprintf("cnn-subsampling(minibatch=%d, cnnNoBias=%t)", o.Minibatch, o.NoBias),
		Network: net,
		Input:   Uniform(o.Minibatch, height*width*depth, Seed),
		Labels:  OneHot(o.Minibatch, classes, 1),
	}, nil
}

// Uniform returns a rows x cols matrix of U[0, 1) draws.
func Uniform(rows, cols int, seed uint64) *mat.Dense {
	u := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, seed+1)}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = u.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

// OneHot returns labels for rows examples of steps time steps each, laid
// out as [rows, steps*classes]. Example i at step t is class (i+t) % classes.
func OneHot(rows, classes, steps int) *mat.Dense {
	labels := mat.NewDense(rows, steps*classes, nil)
	for i := 0; i < rows; i++ {
		for t := 0; t < steps; t++ {
			labels.Set(i, t*classes+(i+t)%classes, 1)
		}
	}
	return labels
}
