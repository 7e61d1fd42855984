package nn

import "fmt"

// InputKind distinguishes the layouts a layer can consume.
type InputKind int

// Input kinds.
const (
	KindFeedForward InputKind = iota + 1
	KindRecurrent
	KindConvolutional
)

// InputType describes the per-example layout of a layer's input or output.
//
// Every batch is a 2-D matrix with one example per row:
//   - FeedForward(n): n columns
//   - Recurrent(n, T): T*n columns, time-major (step t occupies columns [t*n, (t+1)*n))
//   - ConvolutionalFlat(h, w, c): c*h*w columns, channel-major then row-major
type InputType struct {
	Kind      InputKind
	Size      int // Feature count for FeedForward and Recurrent
	TimeSteps int // Recurrent sequence length
	Height    int // Convolutional height
	Width     int // Convolutional width
	Channels  int // Convolutional depth
}

// FeedForward returns a flat vector input type.
func FeedForward(size int) InputType {
	return InputType{Kind: KindFeedForward, Size: size}
}

// Recurrent returns a sequence input type.
func Recurrent(size, timeSteps int) InputType {
	return InputType{Kind: KindRecurrent, Size: size, TimeSteps: timeSteps}
}

// ConvolutionalFlat returns an image input type stored flattened per row.
func ConvolutionalFlat(height, width, channels int) InputType {
	return InputType{Kind: KindConvolutional, Height: height, Width: width, Channels: channels}
}

// Columns returns the number of matrix columns one example occupies.
func (t InputType) Columns() int {
	switch t.Kind {
	case KindFeedForward:
		return t.Size
	case KindRecurrent:
		return t.Size * t.TimeSteps
	case KindConvolutional:
		return t.Channels * t.Height * t.Width
	default:
		return 0
	}
}

// String returns a readable description.
func (t InputType) String() string {
	switch t.Kind {
	case KindFeedForward:
		return fmt.Sprintf("FeedForward(%d)", t.Size)
	case KindRecurrent:
		return fmt.Sprintf("Recurrent(%d, T=%d)", t.Size, t.TimeSteps)
	case KindConvolutional:
		return fmt.Sprintf("Convolutional(h=%d, w=%d, c=%d)", t.Height, t.Width, t.Channels)
	default:
		return "InputType(unset)"
	}
}

func (t InputType) valid() bool {
	switch t.Kind {
	case KindFeedForward:
		return t.Size > 0
	case KindRecurrent:
		return t.Size > 0 && t.TimeSteps > 0
	case KindConvolutional:
		return t.Height > 0 && t.Width > 0 && t.Channels > 0
	default:
		return false
	}
}
