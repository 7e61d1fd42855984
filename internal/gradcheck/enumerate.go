package gradcheck

// Enumerate builds the ordered flattening of a model's trainable scalars.
//
// Order: layers in architectural order, within a layer the groups in the
// order ParameterGroups lists them, within a group row-major flat order.
// Values are read through Scalar; no parameter storage is copied or
// allocated on the model's side.
//
// Returns a ConfigurationError for malformed groups (empty name, non-positive
// dimension, duplicate name within a layer) and a ShapeMismatchError when the
// enumerated count disagrees with NumParams.
func Enumerate(m Parameters) (ParameterVector, error) {
	total := m.NumParams()
	if total < 0 {
		return nil, configErrorf(-1, "negative parameter count %d", total)
	}

	vec := make(ParameterVector, 0, total)
	for layer := 0; layer < m.NumLayers(); layer++ {
		seen := make(map[string]bool)
		for _, g := range m.ParameterGroups(layer) {
			if g.Name == "" {
				return nil, configErrorf(layer, "parameter group without a name")
			}
			if seen[g.Name] {
				return nil, configErrorf(layer, "duplicate parameter group %q", g.Name)
			}
			seen[g.Name] = true
			for _, d := range g.Shape {
				if d <= 0 {
					return nil, configErrorf(layer, "group %q has invalid shape %v", g.Name, g.Shape)
				}
			}

			size := g.Size()
			for off := 0; off < size; off++ {
				id := Identity{Layer: layer, Group: g.Name, Offset: off, Index: len(vec)}
				vec = append(vec, Entry{ID: id, Value: m.Scalar(id)})
			}
		}
	}

	if len(vec) != total {
		return nil, &ShapeMismatchError{Source: "NumParams", Want: len(vec), Got: total}
	}
	return vec, nil
}

// LayerParamCount returns the number of scalars a single layer contributes.
func LayerParamCount(m Parameters, layer int) int {
	n := 0
	for _, g := range m.ParameterGroups(layer) {
		n += g.Size()
	}
	return n
}
