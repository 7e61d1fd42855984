package nn

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/born-ml/gradcheck/internal/gradcheck"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NetworkConfig describes a layer stack.
//
// Example:
//
//	net, err := nn.NewNetwork(nn.NetworkConfig{
//	    Seed:       12345,
//	    WeightInit: nn.WeightInitDistribution,
//	    Dist:       nn.NormalDistribution(0, 1),
//	    InputType:  nn.FeedForward(6),
//	    Layers: []nn.LayerConfig{
//	        nn.LinearConfig{NOut: 6, LayerOptions: nn.LayerOptions{Activation: nn.Tanh{}, NoBias: true}},
//	        nn.OutputConfig{NOut: 4},
//	    },
//	})
type NetworkConfig struct {
	// Seed drives weight initialisation and dropout masks.
	Seed uint64

	// Updater and LearningRate describe how the network would be trained.
	// The zero value is gradcheck.UpdaterNone.
	Updater      gradcheck.Updater
	LearningRate float64

	// L1 and L2 regularisation coefficients, applied to weight groups
	// ("W" and "RW") but not to biases. The penalty added to the score is
	// L1*Σ|w| + L2/2*Σw².
	L1 float64
	L2 float64

	// WeightInit and Dist are the defaults for every layer.
	WeightInit WeightInit
	Dist       *Distribution

	// InputType is the layout of the network input.
	InputType InputType

	// Layers in forward order. The last layer must be an output layer.
	Layers []LayerConfig
}

// Network is a stack of layers ending in an output layer.
//
// It implements gradcheck.Model and gradcheck.Replicable: parameters are
// addressed by (layer, group, offset) with groups in each layer's
// Parameters order, and the score is the mean loss over the minibatch plus
// the regularisation penalty.
//
// A Network caches forward state and is not safe for concurrent use. Use
// Clone to obtain independent copies.
type Network struct {
	cfg     NetworkConfig
	layers  []Layer
	options []LayerOptions
	output  OutputLayer
	rng     *rand.Rand
	masks   []*mat.Dense // Dropout masks of the most recent training pass
}

// NewNetwork builds and initialises a network.
//
// Layer sizes left at zero are inferred from the previous layer's output
// layout. Returns an error wrapping ErrInvalidConfig when the stack cannot
// be built.
func NewNetwork(cfg NetworkConfig) (*Network, error) {
	if len(cfg.Layers) == 0 {
		return nil, configError("network has no layers")
	}
	if !cfg.InputType.valid() {
		return nil, configError("invalid input type %s", cfg.InputType)
	}
	if cfg.Updater == "" {
		cfg.Updater = gradcheck.UpdaterNone
	}
	if cfg.L1 < 0 || cfg.L2 < 0 {
		return nil, configError("regularisation coefficients must be non-negative")
	}

	wi := newInitializer(cfg.Seed, cfg.WeightInit, cfg.Dist)
	n := &Network{
		cfg:     cfg,
		layers:  make([]Layer, len(cfg.Layers)),
		options: make([]LayerOptions, len(cfg.Layers)),
		rng:     rand.New(rand.NewPCG(cfg.Seed, ^cfg.Seed)),
	}

	in := cfg.InputType
	for i, lc := range cfg.Layers {
		if lc == nil {
			return nil, configError("layer %d: missing configuration", i)
		}
		opts := lc.layerOptions()
		if opts.Dropout < 0 || opts.Dropout >= 1 {
			return nil, configError("layer %d: dropout %v outside [0, 1)", i, opts.Dropout)
		}
		layer, err := lc.build(in, wi)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		_, isOutput := layer.(OutputLayer)
		if isOutput != (i == len(cfg.Layers)-1) {
			return nil, configError("layer %d: output layer must be last and only last", i)
		}
		n.layers[i] = layer
		n.options[i] = opts
		in = layer.OutputType()
	}
	n.output = n.layers[len(n.layers)-1].(OutputLayer)
	return n, nil
}

// Layers returns the layer stack.
func (n *Network) Layers() []Layer {
	return n.layers
}

// InputType returns the network input layout.
func (n *Network) InputType() InputType {
	return n.cfg.InputType
}

// OutputType returns the layout of the output and of the labels.
func (n *Network) OutputType() InputType {
	return n.output.OutputType()
}

// NumLayers returns the number of layers.
func (n *Network) NumLayers() int {
	return len(n.layers)
}

// NumParams returns the total number of trainable scalars.
func (n *Network) NumParams() int {
	total := 0
	for _, l := range n.layers {
		total += l.NumParams()
	}
	return total
}

// ParameterGroups returns the groups of one layer in flattening order.
func (n *Network) ParameterGroups(layer int) []gradcheck.Group {
	params := n.layers[layer].Parameters()
	groups := make([]gradcheck.Group, len(params))
	for i, p := range params {
		groups[i] = p.Group()
	}
	return groups
}

// Scalar returns the parameter addressed by id.
// It panics if the identity does not name a parameter of this network.
func (n *Network) Scalar(id gradcheck.Identity) float64 {
	return n.param(id).Data()[id.Offset]
}

// SetScalar overwrites the parameter addressed by id.
func (n *Network) SetScalar(id gradcheck.Identity, v float64) {
	n.param(id).Data()[id.Offset] = v
}

func (n *Network) param(id gradcheck.Identity) *Parameter {
	if id.Layer < 0 || id.Layer >= len(n.layers) {
		panic(fmt.Sprintf("nn: parameter %s: layer out of range", id))
	}
	for _, p := range n.layers[id.Layer].Parameters() {
		if p.Name() == id.Group {
			if id.Offset < 0 || id.Offset >= p.Size() {
				panic(fmt.Sprintf("nn: parameter %s: offset out of range", id))
			}
			return p
		}
	}
	panic(fmt.Sprintf("nn: parameter %s: unknown group", id))
}

// Params returns a flat copy of every parameter in (layer, group, offset)
// order.
func (n *Network) Params() []float64 {
	out := make([]float64, 0, n.NumParams())
	for _, l := range n.layers {
		for _, p := range l.Parameters() {
			out = append(out, p.Data()...)
		}
	}
	return out
}

// SetParams overwrites every parameter from a flat vector in Params order.
func (n *Network) SetParams(values []float64) error {
	if len(values) != n.NumParams() {
		return configError("parameter vector has %d values, network has %d", len(values), n.NumParams())
	}
	off := 0
	for _, l := range n.layers {
		for _, p := range l.Parameters() {
			off += copy(p.Data(), values[off:off+p.Size()])
		}
	}
	return nil
}

// Training reports the training settings of a layer.
func (n *Network) Training(layer int) gradcheck.Training {
	return gradcheck.Training{
		Updater:      n.cfg.Updater,
		LearningRate: n.cfg.LearningRate,
		Dropout:      n.options[layer].Dropout,
	}
}

// ValidateInput checks that a batch matches the network layouts and that
// every value is finite. Layers with value constraints (embedding indices)
// check those too.
func (n *Network) ValidateInput(input, labels *mat.Dense) error {
	if input == nil || labels == nil {
		return inputError("input and labels are required")
	}
	rows, cols := input.Dims()
	lrows, lcols := labels.Dims()
	switch {
	case rows == 0:
		return inputError("empty minibatch")
	case cols != n.cfg.InputType.Columns():
		return inputError("input has %d columns, %s needs %d", cols, n.cfg.InputType, n.cfg.InputType.Columns())
	case lrows != rows:
		return inputError("labels have %d rows, input has %d", lrows, rows)
	case lcols != n.OutputType().Columns():
		return inputError("labels have %d columns, output needs %d", lcols, n.OutputType().Columns())
	}
	if !allFinite(input) || !allFinite(labels) {
		return inputError("non-finite value in input or labels")
	}
	if v, ok := n.layers[0].(inputValidator); ok {
		return v.validateInput(input)
	}
	return nil
}

func allFinite(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Output runs inference without dropout.
func (n *Network) Output(input *mat.Dense) *mat.Dense {
	return n.forward(input, false)
}

// Score returns the mean loss over the minibatch plus regularisation,
// computed in training mode.
func (n *Network) Score(input, labels *mat.Dense) float64 {
	n.forward(input, true)
	batch, _ := input.Dims()
	return n.output.ComputeScore(labels)/float64(batch) + n.penalty()
}

// Gradient returns dScore/dθ flattened in (layer, group, offset) order.
func (n *Network) Gradient(input, labels *mat.Dense) ([]float64, error) {
	if err := n.ValidateInput(input, labels); err != nil {
		return nil, err
	}
	for _, l := range n.layers {
		for _, p := range l.Parameters() {
			p.ZeroGrad()
		}
	}

	n.forward(input, true)
	batch, _ := input.Dims()
	g := n.output.BackwardLoss(labels, 1/float64(batch))
	for i := len(n.layers) - 1; i >= 0; i-- {
		if i < len(n.layers)-1 {
			g = n.layers[i].Backward(g)
		}
		if i > 0 && n.masks[i] != nil {
			g.MulElem(g, n.masks[i])
		}
	}

	grad := make([]float64, 0, n.NumParams())
	for _, l := range n.layers {
		for _, p := range l.Parameters() {
			if isWeight(p) {
				n.addPenaltyGrad(p)
			}
			grad = append(grad, p.Grad()...)
		}
	}
	return grad, nil
}

// forward runs the stack. In training mode each layer's input is passed
// through an inverted dropout mask when the layer has dropout enabled.
// Index inputs are never dropped.
func (n *Network) forward(input *mat.Dense, train bool) *mat.Dense {
	n.masks = make([]*mat.Dense, len(n.layers))
	x := input
	for i, l := range n.layers {
		if p := n.options[i].Dropout; train && p > 0 && !consumesIndices(l) {
			n.masks[i] = n.dropoutMask(x, p)
			x = mulElem(x, n.masks[i])
		}
		x = l.Forward(x)
	}
	return x
}

func (n *Network) dropoutMask(x *mat.Dense, p float64) *mat.Dense {
	r, c := x.Dims()
	mask := mat.NewDense(r, c, nil)
	keep := 1 / (1 - p)
	mask.Apply(func(_, _ int, _ float64) float64 {
		if n.rng.Float64() < p {
			return 0
		}
		return keep
	}, mask)
	return mask
}

func consumesIndices(l Layer) bool {
	_, ok := l.(*Embedding)
	return ok
}

func isWeight(p *Parameter) bool {
	return p.Name() == "W" || p.Name() == "RW"
}

func (n *Network) penalty() float64 {
	if n.cfg.L1 == 0 && n.cfg.L2 == 0 {
		return 0
	}
	s := 0.0
	for _, l := range n.layers {
		for _, p := range l.Parameters() {
			if !isWeight(p) {
				continue
			}
			s += n.cfg.L1 * floats.Norm(p.Data(), 1)
			s += 0.5 * n.cfg.L2 * floats.Dot(p.Data(), p.Data())
		}
	}
	return s
}

func (n *Network) addPenaltyGrad(p *Parameter) {
	if n.cfg.L1 == 0 && n.cfg.L2 == 0 {
		return
	}
	g := p.Grad()
	for i, w := range p.Data() {
		g[i] += n.cfg.L2 * w
		switch {
		case w > 0:
			g[i] += n.cfg.L1
		case w < 0:
			g[i] -= n.cfg.L1
		}
	}
}

// Clone returns an independent copy with the same parameters.
func (n *Network) Clone() gradcheck.Model {
	return n.CloneNetwork()
}

// CloneNetwork is Clone with the concrete type.
func (n *Network) CloneNetwork() *Network {
	c := &Network{
		cfg:     n.cfg,
		layers:  make([]Layer, len(n.layers)),
		options: n.options,
		rng:     rand.New(rand.NewPCG(n.cfg.Seed, ^n.cfg.Seed)),
	}
	for i, l := range n.layers {
		c.layers[i] = l.Clone()
	}
	c.output = c.layers[len(c.layers)-1].(OutputLayer)
	return c
}

// Summary returns one line per layer with its layouts and parameter count.
func (n *Network) Summary() string {
	var b strings.Builder
	for i, l := range n.layers {
		fmt.Fprintf(&b, "%d %-10s %s -> %s params=%d\n", i, l.Type(), l.InputType(), l.OutputType(), l.NumParams())
	}
	fmt.Fprintf(&b, "total params=%d", n.NumParams())
	return b.String()
}
