// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the reference network used with the gradient checker.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Output, Embedding, LSTM, RnnOutput, Conv2D, MaxPool2D, ActivationLayer
//   - Activations: Identity, Tanh, Sigmoid, ReLU, LeakyReLU, Softmax
//   - Loss functions: MCXENT, MSE
//   - Network: a seeded layer stack built from a NetworkConfig
//   - Initialization: Xavier, normal distribution, zeros
//
// Every parameterised layer accepts NoBias, which removes its bias group.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/gradcheck/gradcheck"
//	    "github.com/born-ml/gradcheck/nn"
//	)
//
//	func main() {
//	    net, err := nn.NewNetwork(nn.NetworkConfig{
//	        Seed:      12345,
//	        InputType: nn.FeedForward(5),
//	        Layers: []nn.LayerConfig{
//	            nn.LinearConfig{NOut: 6, LayerOptions: nn.LayerOptions{Activation: nn.Tanh{}}},
//	            nn.OutputConfig{NOut: 3, LayerOptions: nn.LayerOptions{NoBias: true}},
//	        },
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    res, err := gradcheck.Check(net, input, labels, gradcheck.DefaultConfig())
//	}
//
// # Input Layouts
//
// Every batch is a matrix with one example per row:
//
//	nn.FeedForward(n)              // n columns
//	nn.Recurrent(n, T)             // T*n columns, one block per time step
//	nn.ConvolutionalFlat(h, w, c)  // c*h*w columns, channel-major
//
// Sizes left at zero in a layer config are inferred from the previous
// layer's output layout.
//
// # Parameter Layout
//
// Parameters are exposed per layer in a fixed group order:
//
//	Linear, Output, RnnOutput, Embedding: W [nIn, nOut], b [nOut]
//	LSTM:                                 W [nIn, 4n], RW [n, 4n], b [4n] (gates i, f, o, g)
//	Conv2D:                               W [nOut, nIn, kh, kw], b [nOut]
package nn
