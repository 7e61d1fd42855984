package nn

import (
	"github.com/born-ml/gradcheck/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: a = act(Conv2D(x, W) + b)
//
// Input layout:  ConvolutionalFlat(height, width, nIn)
// Weight shape:  [nOut, nIn, kernel_h, kernel_w]
// Bias shape:    [nOut], absent when noBias is set
// Output layout: ConvolutionalFlat(out_h, out_w, nOut)
//
// Where:
//
//	out_h = (height + 2*padding_h - kernel_h) / stride_h + 1
//	out_w = (width + 2*padding_w - kernel_w) / stride_w + 1
//
// The forward pass lowers the input with im2col and runs a single gonum
// matrix product; the backward pass reuses the column buffer for dW and
// scatters dCols back with col2im.
type Conv2D struct {
	in      InputType
	out     InputType
	kernel  [2]int
	stride  [2]int
	padding [2]int
	act     Activation

	weight *Parameter // [nOut, nIn, kernel_h, kernel_w]
	bias   *Parameter // [nOut] or nil

	cols *mat.Dense // [batch*out_h*out_w, nIn*kernel_h*kernel_w]
	z    *mat.Dense
	a    *mat.Dense
	par  parallel.Config
}

// NewConv2D creates a Conv2D layer with zero-filled parameters.
//
// Parameters:
//   - in: Convolutional input layout
//   - nOut: Number of output channels (filters)
//   - kernel, stride, padding: Spatial geometry as [height, width]
//   - act: Activation applied to the convolution output
//   - noBias: Omit the bias group entirely
//
// Returns ErrInvalidConfig for a non-convolutional input or a geometry
// that produces an empty output.
func NewConv2D(in InputType, nOut int, kernel, stride, padding [2]int, act Activation, noBias bool) (*Conv2D, error) {
	if in.Kind != KindConvolutional || !in.valid() {
		return nil, configError("conv2d: input must be convolutional, got %s", in)
	}
	if nOut <= 0 {
		return nil, configError("conv2d: invalid output channels %d", nOut)
	}
	if kernel[0] <= 0 || kernel[1] <= 0 || stride[0] <= 0 || stride[1] <= 0 || padding[0] < 0 || padding[1] < 0 {
		return nil, configError("conv2d: invalid geometry kernel=%v stride=%v padding=%v", kernel, stride, padding)
	}
	hOut := (in.Height+2*padding[0]-kernel[0])/stride[0] + 1
	wOut := (in.Width+2*padding[1]-kernel[1])/stride[1] + 1
	if in.Height+2*padding[0] < kernel[0] || in.Width+2*padding[1] < kernel[1] || hOut <= 0 || wOut <= 0 {
		return nil, configError("conv2d: kernel %v too large for input %dx%d", kernel, in.Height, in.Width)
	}

	c := &Conv2D{
		in:      in,
		out:     ConvolutionalFlat(hOut, wOut, nOut),
		kernel:  kernel,
		stride:  stride,
		padding: padding,
		act:     act,
		weight:  NewParameter("W", nOut, in.Channels, kernel[0], kernel[1]),
		par:     parallel.DefaultConfig(),
	}
	if !noBias {
		c.bias = NewParameter("b", nOut)
	}
	return c, nil
}

// Type returns "Conv2D".
func (c *Conv2D) Type() string { return "Conv2D" }

// Parameters returns [W, b], or [W] without bias.
func (c *Conv2D) Parameters() []*Parameter {
	if c.bias != nil {
		return []*Parameter{c.weight, c.bias}
	}
	return []*Parameter{c.weight}
}

// NumParams returns the number of trainable scalars.
func (c *Conv2D) NumParams() int { return countParams(c.Parameters()) }

// Weight returns the kernel parameter.
func (c *Conv2D) Weight() *Parameter { return c.weight }

// Bias returns the bias parameter, or nil.
func (c *Conv2D) Bias() *Parameter { return c.bias }

// InputType returns the consumed layout.
func (c *Conv2D) InputType() InputType { return c.in }

// OutputType returns the produced layout.
func (c *Conv2D) OutputType() InputType { return c.out }

// Forward computes act(conv(x, W) + b).
func (c *Conv2D) Forward(x *mat.Dense) *mat.Dense {
	batch, _ := x.Dims()
	hw := c.out.Height * c.out.Width
	nOut := c.out.Channels

	c.cols = c.im2col(x, batch)

	// [batch*hw, K] @ [K, nOut] -> [batch*hw, nOut]
	var zc mat.Dense
	zc.Mul(c.cols, c.weight.Matrix().T())
	if c.bias != nil {
		addRowVector(&zc, c.bias.Data())
	}

	// Rearrange [batch*hw, nOut] into [batch, nOut*hw].
	z := mat.NewDense(batch, nOut*hw, nil)
	for n := 0; n < batch; n++ {
		row := z.RawRowView(n)
		for p := 0; p < hw; p++ {
			src := zc.RawRowView(n*hw + p)
			for o := 0; o < nOut; o++ {
				row[o*hw+p] = src[o]
			}
		}
	}

	c.z = z
	c.a = c.act.Forward(z)
	return c.a
}

// Backward accumulates dW and db and returns dLoss/dx.
func (c *Conv2D) Backward(grad *mat.Dense) *mat.Dense {
	dZ := c.act.Backward(c.z, c.a, grad)
	batch, _ := dZ.Dims()
	hw := c.out.Height * c.out.Width
	nOut := c.out.Channels

	dZc := mat.NewDense(batch*hw, nOut, nil)
	for n := 0; n < batch; n++ {
		row := dZ.RawRowView(n)
		for p := 0; p < hw; p++ {
			dst := dZc.RawRowView(n*hw + p)
			for o := 0; o < nOut; o++ {
				dst[o] = row[o*hw+p]
			}
		}
	}

	// dW [nOut, K] += dZcᵀ @ cols
	var dW mat.Dense
	dW.Mul(dZc.T(), c.cols)
	gW := c.weight.GradMatrix()
	gW.Add(gW, &dW)
	if c.bias != nil {
		addColSums(c.bias.Grad(), dZc)
	}

	// dCols [batch*hw, K] = dZc @ W
	var dCols mat.Dense
	dCols.Mul(dZc, c.weight.Matrix())
	return c.col2im(&dCols, batch)
}

// Clone returns a deep copy.
func (c *Conv2D) Clone() Layer {
	return &Conv2D{
		in:      c.in,
		out:     c.out,
		kernel:  c.kernel,
		stride:  c.stride,
		padding: c.padding,
		act:     c.act,
		weight:  c.weight.Clone(),
		bias:    cloneParam(c.bias),
		par:     c.par,
	}
}

// im2col transforms [batch, C*H*W] into [batch*out_h*out_w, C*kh*kw].
// Padding positions are zero.
func (c *Conv2D) im2col(x *mat.Dense, batch int) *mat.Dense {
	chans, h, w := c.in.Channels, c.in.Height, c.in.Width
	kh, kw := c.kernel[0], c.kernel[1]
	hOut, wOut := c.out.Height, c.out.Width
	cols := mat.NewDense(batch*hOut*wOut, chans*kh*kw, nil)

	parallel.For(batch, func(n int) {
		src := x.RawRowView(n)
		for oy := 0; oy < hOut; oy++ {
			for ox := 0; ox < wOut; ox++ {
				dst := cols.RawRowView(n*hOut*wOut + oy*wOut + ox)
				for ch := 0; ch < chans; ch++ {
					for ky := 0; ky < kh; ky++ {
						iy := oy*c.stride[0] - c.padding[0] + ky
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < kw; kx++ {
							ix := ox*c.stride[1] - c.padding[1] + kx
							if ix < 0 || ix >= w {
								continue
							}
							dst[ch*kh*kw+ky*kw+kx] = src[ch*h*w+iy*w+ix]
						}
					}
				}
			}
		}
	}, c.par)
	return cols
}

// col2im is the adjoint of im2col: it sums column gradients back into
// [batch, C*H*W]. Each example writes only its own row.
func (c *Conv2D) col2im(dCols *mat.Dense, batch int) *mat.Dense {
	chans, h, w := c.in.Channels, c.in.Height, c.in.Width
	kh, kw := c.kernel[0], c.kernel[1]
	hOut, wOut := c.out.Height, c.out.Width
	dX := mat.NewDense(batch, chans*h*w, nil)

	parallel.For(batch, func(n int) {
		dst := dX.RawRowView(n)
		for oy := 0; oy < hOut; oy++ {
			for ox := 0; ox < wOut; ox++ {
				src := dCols.RawRowView(n*hOut*wOut + oy*wOut + ox)
				for ch := 0; ch < chans; ch++ {
					for ky := 0; ky < kh; ky++ {
						iy := oy*c.stride[0] - c.padding[0] + ky
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < kw; kx++ {
							ix := ox*c.stride[1] - c.padding[1] + kx
							if ix < 0 || ix >= w {
								continue
							}
							dst[ch*h*w+iy*w+ix] += src[ch*kh*kw+ky*kw+kx]
						}
					}
				}
			}
		}
	}, c.par)
	return dX
}
