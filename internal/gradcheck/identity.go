package gradcheck

import (
	"cmp"
	"fmt"
)

// Identity addresses one trainable scalar inside a model.
//
// Layer, Group and Offset locate the scalar inside a layer's parameter
// tensors (Offset is the row-major flat offset within the group). Index is
// the scalar's position in the flattened parameter vector and is what the
// engine sorts and aligns on.
type Identity struct {
	Layer  int
	Group  string
	Offset int
	Index  int
}

// Key returns the "layer_group" key of the tensor holding this scalar,
// e.g. "1_W".
func (id Identity) Key() string {
	return fmt.Sprintf("%d_%s", id.Layer, id.Group)
}

// String returns a compact form such as "1_W[7]".
func (id Identity) String() string {
	return fmt.Sprintf("%d_%s[%d]", id.Layer, id.Group, id.Offset)
}

// Compare orders identities by their position in the flattened vector.
func (id Identity) Compare(other Identity) int {
	return cmp.Compare(id.Index, other.Index)
}

// Group describes one parameter tensor of a layer.
type Group struct {
	Name  string // Group name, e.g. "W", "RW", "b"
	Shape []int  // Tensor shape; values are stored row-major
}

// Size returns the number of scalars in the group.
func (g Group) Size() int {
	if len(g.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range g.Shape {
		n *= d
	}
	return n
}

// Entry pairs an identity with the scalar's value at enumeration time.
type Entry struct {
	ID    Identity
	Value float64
}

// ParameterVector is the ordered flattening of a model's trainable scalars.
type ParameterVector []Entry

// Values returns the scalar values in enumeration order.
func (v ParameterVector) Values() []float64 {
	out := make([]float64, len(v))
	for i, e := range v {
		out[i] = e.Value
	}
	return out
}
