package nn

// LayerOptions holds settings shared by every parameterised layer.
type LayerOptions struct {
	// Activation applied to the layer output. Nil selects the layer default:
	// Tanh for LSTM, Softmax for MCXENT outputs, Identity for other
	// outputs and Sigmoid otherwise.
	Activation Activation

	// NoBias removes the bias group from the layer.
	NoBias bool

	// WeightInit and Dist override the network-level initialisation.
	WeightInit WeightInit
	Dist       *Distribution

	// Dropout is the probability of zeroing each input activation during
	// training. Zero disables dropout.
	Dropout float64
}

// LayerConfig describes one layer of a NetworkConfig. The layer is built
// once its input layout is known, so sizes that follow from the previous
// layer may be left at zero.
type LayerConfig interface {
	layerOptions() LayerOptions
	build(in InputType, wi *initializer) (Layer, error)
}

// LinearConfig configures a fully connected hidden layer.
type LinearConfig struct {
	NIn  int // Inferred from the input layout when zero
	NOut int
	LayerOptions
}

// OutputConfig configures a fully connected output layer.
type OutputConfig struct {
	NIn  int
	NOut int
	Loss LossFunction // Nil selects MCXENT
	LayerOptions
}

// EmbeddingConfig configures an embedding lookup. NIn is the number of
// distinct indices and cannot be inferred.
type EmbeddingConfig struct {
	NIn  int
	NOut int
	LayerOptions
}

// LSTMConfig configures an LSTM layer.
type LSTMConfig struct {
	NIn  int
	NOut int
	// ForgetGateBiasInit is the initial forget gate bias; zero selects 1.0.
	ForgetGateBiasInit float64
	LayerOptions
}

// RnnOutputConfig configures a per-time-step output layer.
type RnnOutputConfig struct {
	NIn  int
	NOut int
	Loss LossFunction // Nil selects MCXENT
	LayerOptions
}

// Conv2DConfig configures a convolution layer. Geometry is [height, width].
type Conv2DConfig struct {
	NIn     int // Input channels, inferred when zero
	NOut    int // Output channels
	Kernel  [2]int
	Stride  [2]int // Zero selects {1, 1}
	Padding [2]int
	LayerOptions
}

// MaxPool2DConfig configures a max pooling (subsampling) layer.
type MaxPool2DConfig struct {
	Kernel  [2]int
	Stride  [2]int // Zero selects the kernel size
	Padding [2]int
	Dropout float64
}

// ActivationConfig configures a parameterless activation layer.
type ActivationConfig struct {
	Activation Activation
	Dropout    float64
}

const defaultForgetGateBias = 1.0

func orActivation(act, def Activation) Activation {
	if act == nil {
		return def
	}
	return act
}

func outputActivation(act Activation, loss LossFunction) Activation {
	if act != nil {
		return act
	}
	if _, ok := loss.(MCXENT); ok {
		return Softmax{}
	}
	return Identity{}
}

func orLoss(loss LossFunction) LossFunction {
	if loss == nil {
		return MCXENT{}
	}
	return loss
}

// feedForwardIn resolves nIn for a layer that consumes flat vectors.
// Convolutional inputs are flattened.
func feedForwardIn(kind string, nIn int, in InputType) (int, error) {
	if in.Kind == KindRecurrent {
		return 0, configError("%s: cannot consume %s", kind, in)
	}
	cols := in.Columns()
	if nIn == 0 {
		nIn = cols
	}
	if nIn != cols {
		return 0, configError("%s: nIn %d does not match input %s", kind, nIn, in)
	}
	return nIn, nil
}

func recurrentIn(kind string, nIn int, in InputType) (InputType, error) {
	if in.Kind != KindRecurrent {
		return InputType{}, configError("%s: input must be recurrent, got %s", kind, in)
	}
	if nIn != 0 && nIn != in.Size {
		return InputType{}, configError("%s: nIn %d does not match input %s", kind, nIn, in)
	}
	return in, nil
}

func checkOut(kind string, nOut int) error {
	if nOut <= 0 {
		return configError("%s: nOut must be positive, got %d", kind, nOut)
	}
	return nil
}

func (c LinearConfig) layerOptions() LayerOptions { return c.LayerOptions }

func (c LinearConfig) build(in InputType, wi *initializer) (Layer, error) {
	nIn, err := feedForwardIn("linear", c.NIn, in)
	if err != nil {
		return nil, err
	}
	if err := checkOut("linear", c.NOut); err != nil {
		return nil, err
	}
	l := NewLinear(nIn, c.NOut, orActivation(c.Activation, Sigmoid{}), c.NoBias)
	l.in = in
	wi.fill(l.weight.Data(), nIn, c.NOut, c.LayerOptions)
	return l, nil
}

func (c OutputConfig) layerOptions() LayerOptions { return c.LayerOptions }

func (c OutputConfig) build(in InputType, wi *initializer) (Layer, error) {
	nIn, err := feedForwardIn("output", c.NIn, in)
	if err != nil {
		return nil, err
	}
	if err := checkOut("output", c.NOut); err != nil {
		return nil, err
	}
	loss := orLoss(c.Loss)
	o := NewOutput(nIn, c.NOut, outputActivation(c.Activation, loss), loss, c.NoBias)
	o.in = in
	wi.fill(o.weight.Data(), nIn, c.NOut, c.LayerOptions)
	return o, nil
}

func (c EmbeddingConfig) layerOptions() LayerOptions { return c.LayerOptions }

func (c EmbeddingConfig) build(in InputType, wi *initializer) (Layer, error) {
	if in.Kind != KindFeedForward || in.Size != 1 {
		return nil, configError("embedding: input must be a single index column, got %s", in)
	}
	if c.NIn <= 0 {
		return nil, configError("embedding: nIn (number of indices) must be positive, got %d", c.NIn)
	}
	if err := checkOut("embedding", c.NOut); err != nil {
		return nil, err
	}
	e := NewEmbedding(c.NIn, c.NOut, orActivation(c.Activation, Sigmoid{}), c.NoBias)
	wi.fill(e.weight.Data(), c.NIn, c.NOut, c.LayerOptions)
	return e, nil
}

func (c LSTMConfig) layerOptions() LayerOptions { return c.LayerOptions }

func (c LSTMConfig) build(in InputType, wi *initializer) (Layer, error) {
	in, err := recurrentIn("lstm", c.NIn, in)
	if err != nil {
		return nil, err
	}
	l, err := NewLSTM(in, c.NOut, orActivation(c.Activation, Tanh{}), c.NoBias)
	if err != nil {
		return nil, err
	}
	wi.fill(l.weight.Data(), in.Size, c.NOut, c.LayerOptions)
	wi.fill(l.recur.Data(), c.NOut, c.NOut, c.LayerOptions)
	if l.bias != nil {
		fgb := c.ForgetGateBiasInit
		if fgb == 0 {
			fgb = defaultForgetGateBias
		}
		forget := l.bias.Data()[c.NOut : 2*c.NOut]
		for i := range forget {
			forget[i] = fgb
		}
	}
	return l, nil
}

func (c RnnOutputConfig) layerOptions() LayerOptions { return c.LayerOptions }

func (c RnnOutputConfig) build(in InputType, wi *initializer) (Layer, error) {
	in, err := recurrentIn("rnnoutput", c.NIn, in)
	if err != nil {
		return nil, err
	}
	loss := orLoss(c.Loss)
	r, err := NewRnnOutput(in, c.NOut, outputActivation(c.Activation, loss), loss, c.NoBias)
	if err != nil {
		return nil, err
	}
	wi.fill(r.weight.Data(), in.Size, c.NOut, c.LayerOptions)
	return r, nil
}

func (c Conv2DConfig) layerOptions() LayerOptions { return c.LayerOptions }

func (c Conv2DConfig) build(in InputType, wi *initializer) (Layer, error) {
	if in.Kind != KindConvolutional {
		return nil, configError("conv2d: input must be convolutional, got %s", in)
	}
	if c.NIn != 0 && c.NIn != in.Channels {
		return nil, configError("conv2d: nIn %d does not match input %s", c.NIn, in)
	}
	stride := c.Stride
	if stride == [2]int{} {
		stride = [2]int{1, 1}
	}
	conv, err := NewConv2D(in, c.NOut, c.Kernel, stride, c.Padding, orActivation(c.Activation, Sigmoid{}), c.NoBias)
	if err != nil {
		return nil, err
	}
	area := c.Kernel[0] * c.Kernel[1]
	wi.fill(conv.weight.Data(), in.Channels*area, c.NOut*area, c.LayerOptions)
	return conv, nil
}

func (c MaxPool2DConfig) layerOptions() LayerOptions { return LayerOptions{Dropout: c.Dropout} }

func (c MaxPool2DConfig) build(in InputType, _ *initializer) (Layer, error) {
	stride := c.Stride
	if stride == [2]int{} {
		stride = c.Kernel
	}
	return NewMaxPool2D(in, c.Kernel, stride, c.Padding)
}

func (c ActivationConfig) layerOptions() LayerOptions { return LayerOptions{Dropout: c.Dropout} }

func (c ActivationConfig) build(in InputType, _ *initializer) (Layer, error) {
	if c.Activation == nil {
		return nil, configError("activation layer: activation is required")
	}
	return NewActivationLayer(in, c.Activation), nil
}
