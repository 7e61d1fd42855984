// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/gradcheck/internal/nn"
)

// Errors

// ErrInvalidConfig is wrapped by every network construction error.
var ErrInvalidConfig = nn.ErrInvalidConfig

// ErrInvalidInput is wrapped by every input validation error.
var ErrInvalidInput = nn.ErrInvalidInput

// Network

// Network is a seeded layer stack implementing gradcheck.Model.
type Network = nn.Network

// NetworkConfig describes a layer stack.
type NetworkConfig = nn.NetworkConfig

// NewNetwork builds and initialises a network.
//
// Example:
//
//	net, err := nn.NewNetwork(nn.NetworkConfig{
//	    InputType: nn.FeedForward(4),
//	    Layers:    []nn.LayerConfig{nn.OutputConfig{NOut: 3}},
//	})
func NewNetwork(cfg NetworkConfig) (*Network, error) {
	return nn.NewNetwork(cfg)
}

// Layer is the interface implemented by every layer.
type Layer = nn.Layer

// OutputLayer is a layer that also computes the loss.
type OutputLayer = nn.OutputLayer

// Parameter is a trainable tensor with its gradient.
type Parameter = nn.Parameter

// Layer configurations

// LayerConfig describes one layer of a NetworkConfig.
type LayerConfig = nn.LayerConfig

// LayerOptions holds settings shared by parameterised layers.
type LayerOptions = nn.LayerOptions

// LinearConfig configures a fully connected hidden layer.
type LinearConfig = nn.LinearConfig

// OutputConfig configures a fully connected output layer.
type OutputConfig = nn.OutputConfig

// EmbeddingConfig configures an embedding lookup.
type EmbeddingConfig = nn.EmbeddingConfig

// LSTMConfig configures an LSTM layer.
type LSTMConfig = nn.LSTMConfig

// RnnOutputConfig configures a per-time-step output layer.
type RnnOutputConfig = nn.RnnOutputConfig

// Conv2DConfig configures a convolution layer.
type Conv2DConfig = nn.Conv2DConfig

// MaxPool2DConfig configures a max pooling layer.
type MaxPool2DConfig = nn.MaxPool2DConfig

// ActivationConfig configures a parameterless activation layer.
type ActivationConfig = nn.ActivationConfig

// Layers

// Linear represents a fully connected (dense) layer.
type Linear = nn.Linear

// Output represents a fully connected output layer.
type Output = nn.Output

// Embedding represents an index lookup layer.
type Embedding = nn.Embedding

// LSTM represents a long short-term memory layer.
type LSTM = nn.LSTM

// RnnOutput represents a per-time-step output layer.
type RnnOutput = nn.RnnOutput

// Conv2D represents a 2D convolutional layer.
type Conv2D = nn.Conv2D

// MaxPool2D represents a 2D max pooling layer.
type MaxPool2D = nn.MaxPool2D

// Input layouts

// InputType describes a per-example layout.
type InputType = nn.InputType

// FeedForward returns a flat vector input type.
func FeedForward(size int) InputType { return nn.FeedForward(size) }

// Recurrent returns a sequence input type.
func Recurrent(size, timeSteps int) InputType { return nn.Recurrent(size, timeSteps) }

// ConvolutionalFlat returns an image input type stored flattened per row.
func ConvolutionalFlat(height, width, channels int) InputType {
	return nn.ConvolutionalFlat(height, width, channels)
}

// Activations

// Activation is an element-wise or row-wise non-linearity.
type Activation = nn.Activation

// Identity passes values through unchanged.
type Identity = nn.Identity

// Tanh applies the hyperbolic tangent.
type Tanh = nn.Tanh

// Sigmoid applies the logistic function.
type Sigmoid = nn.Sigmoid

// ReLU applies max(0, z).
type ReLU = nn.ReLU

// LeakyReLU applies z for z > 0 and Alpha*z otherwise.
type LeakyReLU = nn.LeakyReLU

// Softmax normalises each row into a probability distribution.
type Softmax = nn.Softmax

// DefaultLeakyReLUAlpha is the default LeakyReLU slope.
const DefaultLeakyReLUAlpha = nn.DefaultLeakyReLUAlpha

// NewLeakyReLU creates a LeakyReLU with the given slope.
func NewLeakyReLU(alpha float64) LeakyReLU { return nn.NewLeakyReLU(alpha) }

// ActivationByName returns the activation for a name such as "tanh".
func ActivationByName(name string) (Activation, error) { return nn.ActivationByName(name) }

// Loss functions

// LossFunction scores output activations against labels.
type LossFunction = nn.LossFunction

// MCXENT is multi-class cross entropy.
type MCXENT = nn.MCXENT

// MSE is the mean squared error.
type MSE = nn.MSE

// Initialization

// WeightInit selects how weight tensors are initialised.
type WeightInit = nn.WeightInit

// Weight initialisation schemes.
const (
	WeightInitDefault      = nn.WeightInitDefault
	WeightInitXavier       = nn.WeightInitXavier
	WeightInitDistribution = nn.WeightInitDistribution
	WeightInitZero         = nn.WeightInitZero
)

// Distribution is a normal distribution for WeightInitDistribution.
type Distribution = nn.Distribution

// NormalDistribution returns N(mean, std²).
func NormalDistribution(mean, std float64) *Distribution { return nn.NormalDistribution(mean, std) }
