package nn

import (
	"math"

	"github.com/born-ml/gradcheck/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// MaxPool2D is a 2D max pooling (subsampling) layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value in each
// pooling window. It has no learnable parameters, so it contributes nothing
// to the parameter vector but still routes gradients to the winning inputs.
//
// Output dimensions:
//
//	out_h = (height + 2*padding_h - kernel_h) / stride_h + 1
//	out_w = (width + 2*padding_w - kernel_w) / stride_w + 1
//
// Padding cells never win.
//
// Example (2x2 pool, stride 1):
//
//	Input: [[1,2,3],    Output: [[5,6],
//	        [4,5,6],             [8,9]]
//	        [7,8,9]]
type MaxPool2D struct {
	in      InputType
	out     InputType
	kernel  [2]int
	stride  [2]int
	padding [2]int

	argmax [][]int // Per example: input column of each output's maximum
	par    parallel.Config
}

// NewMaxPool2D creates a max pooling layer.
//
// Returns ErrInvalidConfig for a non-convolutional input, a window that
// lies entirely in padding, or a geometry that produces an empty output.
func NewMaxPool2D(in InputType, kernel, stride, padding [2]int) (*MaxPool2D, error) {
	if in.Kind != KindConvolutional || !in.valid() {
		return nil, configError("maxpool2d: input must be convolutional, got %s", in)
	}
	if kernel[0] <= 0 || kernel[1] <= 0 || stride[0] <= 0 || stride[1] <= 0 {
		return nil, configError("maxpool2d: invalid geometry kernel=%v stride=%v", kernel, stride)
	}
	if padding[0] < 0 || padding[1] < 0 || padding[0] >= kernel[0] || padding[1] >= kernel[1] {
		return nil, configError("maxpool2d: padding %v must be smaller than kernel %v", padding, kernel)
	}
	hOut := (in.Height+2*padding[0]-kernel[0])/stride[0] + 1
	wOut := (in.Width+2*padding[1]-kernel[1])/stride[1] + 1
	if in.Height+2*padding[0] < kernel[0] || in.Width+2*padding[1] < kernel[1] || hOut <= 0 || wOut <= 0 {
		return nil, configError("maxpool2d: kernel %v too large for input %dx%d", kernel, in.Height, in.Width)
	}
	return &MaxPool2D{
		in:      in,
		out:     ConvolutionalFlat(hOut, wOut, in.Channels),
		kernel:  kernel,
		stride:  stride,
		padding: padding,
		par:     parallel.DefaultConfig(),
	}, nil
}

// Type returns "MaxPool2D".
func (p *MaxPool2D) Type() string { return "MaxPool2D" }

// Parameters returns nil.
func (p *MaxPool2D) Parameters() []*Parameter { return nil }

// NumParams returns 0.
func (p *MaxPool2D) NumParams() int { return 0 }

// InputType returns the consumed layout.
func (p *MaxPool2D) InputType() InputType { return p.in }

// OutputType returns the produced layout.
func (p *MaxPool2D) OutputType() InputType { return p.out }

// Forward takes the maximum of every window, remembering its position.
func (p *MaxPool2D) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()
	chans, h, w := p.in.Channels, p.in.Height, p.in.Width
	hOut, wOut := p.out.Height, p.out.Width
	out := mat.NewDense(batch, chans*hOut*wOut, nil)

	p.argmax = make([][]int, batch)
	for n := range p.argmax {
		p.argmax[n] = make([]int, chans*hOut*wOut)
	}

	parallel.ForBatch(batch, chans, func(n, ch int) {
		src := x.RawRowView(n)
		dst := out.RawRowView(n)
		arg := p.argmax[n]
		for oy := 0; oy < hOut; oy++ {
			for ox := 0; ox < wOut; ox++ {
				best, bestIdx := math.Inf(-1), -1
				for ky := 0; ky < p.kernel[0]; ky++ {
					iy := oy*p.stride[0] - p.padding[0] + ky
					if iy < 0 || iy >= h {
						continue
					}
					for kx := 0; kx < p.kernel[1]; kx++ {
						ix := ox*p.stride[1] - p.padding[1] + kx
						if ix < 0 || ix >= w {
							continue
						}
						idx := ch*h*w + iy*w + ix
						if bestIdx < 0 || src[idx] > best {
							best, bestIdx = src[idx], idx
						}
					}
				}
				o := ch*hOut*wOut + oy*wOut + ox
				dst[o] = best
				arg[o] = bestIdx
			}
		}
	}, p.par)
	return out
}

// Backward routes each output gradient to the input that won its window.
func (p *MaxPool2D) Backward(grad *mat.Dense) *mat.Dense {
	batch, _ := grad.Dims()
	chans := p.in.Channels
	per := p.out.Height * p.out.Width
	dX := mat.NewDense(batch, p.in.Columns(), nil)

	// Windows of one channel only read that channel, so (n, ch) cells are disjoint.
	parallel.ForBatch(batch, chans, func(n, ch int) {
		g := grad.RawRowView(n)
		dst := dX.RawRowView(n)
		arg := p.argmax[n]
		for o := ch * per; o < (ch+1)*per; o++ {
			dst[arg[o]] += g[o]
		}
	}, p.par)
	return dX
}

// Clone returns a copy without forward state.
func (p *MaxPool2D) Clone() Layer {
	return &MaxPool2D{
		in:      p.in,
		out:     p.out,
		kernel:  p.kernel,
		stride:  p.stride,
		padding: p.padding,
		par:     p.par,
	}
}
