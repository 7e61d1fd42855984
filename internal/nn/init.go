package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// WeightInit selects how weight tensors are initialised. Biases always start
// at zero (except the LSTM forget gate, see LSTMConfig).
type WeightInit int

// Weight initialisation schemes.
const (
	// WeightInitDefault defers to the network-level setting, which itself
	// defaults to Xavier.
	WeightInitDefault WeightInit = iota
	// WeightInitXavier draws from U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
	WeightInitXavier
	// WeightInitDistribution draws from the configured Distribution.
	WeightInitDistribution
	// WeightInitZero fills weights with zeros.
	WeightInitZero
)

// Distribution is a normal distribution for WeightInitDistribution.
type Distribution struct {
	Mean float64
	Std  float64
}

// NormalDistribution returns N(mean, std²).
func NormalDistribution(mean, std float64) *Distribution {
	return &Distribution{Mean: mean, Std: std}
}

// initializer fills weight tensors from one seeded source, layer by layer,
// so a given seed and configuration always produce the same network.
type initializer struct {
	src  rand.Source
	init WeightInit
	dist *Distribution
}

func newInitializer(seed uint64, init WeightInit, dist *Distribution) *initializer {
	if init == WeightInitDefault {
		init = WeightInitXavier
	}
	return &initializer{src: rand.NewPCG(seed, seed), init: init, dist: dist}
}

// fill initialises data for a weight tensor with the given fan in/out,
// using the layer's override when set.
func (in *initializer) fill(data []float64, fanIn, fanOut int, opts LayerOptions) {
	scheme, dist := in.init, in.dist
	if opts.WeightInit != WeightInitDefault {
		scheme = opts.WeightInit
	}
	if opts.Dist != nil {
		dist = opts.Dist
	}

	switch scheme {
	case WeightInitZero:
		clear(data)
	case WeightInitDistribution:
		if dist == nil {
			dist = NormalDistribution(0, 1)
		}
		n := distuv.Normal{Mu: dist.Mean, Sigma: dist.Std, Src: in.src}
		for i := range data {
			data[i] = n.Rand()
		}
	default:
		bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
		u := distuv.Uniform{Min: -bound, Max: bound, Src: in.src}
		for i := range data {
			data[i] = u.Rand()
		}
	}
}
