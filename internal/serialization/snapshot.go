package serialization

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/born-ml/gradcheck/internal/gradcheck"
)

// Snapshot is an in-memory copy of a model's parameters.
type Snapshot struct {
	Header Header
	values map[string][]float64 // Group key -> row-major values
}

// Capture copies every parameter group of m.
//
// Parameters:
//   - m: Model to read through Scalar
//   - modelType: Free-form description stored in the header
//
// Returns the snapshot, or an error if the model's groups are malformed.
func Capture(m gradcheck.Parameters, modelType string) (*Snapshot, error) {
	vec, err := gradcheck.Enumerate(m)
	if err != nil {
		return nil, fmt.Errorf("capturing parameters: %w", err)
	}

	s := &Snapshot{
		Header: Header{
			FormatVersion: FormatVersion,
			ModelType:     modelType,
			CreatedAt:     time.Now().UTC(),
			Metadata:      make(map[string]string),
		},
		values: make(map[string][]float64),
	}

	var offset int64
	for layer := 0; layer < m.NumLayers(); layer++ {
		for _, g := range m.ParameterGroups(layer) {
			size := int64(g.Size() * float64Size)
			key := gradcheck.Identity{Layer: layer, Group: g.Name}.Key()
			s.Header.Groups = append(s.Header.Groups, GroupMeta{
				Name:   key,
				Layer:  layer,
				Group:  g.Name,
				Shape:  slices.Clone(g.Shape),
				Offset: offset,
				Size:   size,
			})
			s.values[key] = make([]float64, 0, g.Size())
			offset += size
		}
	}
	for _, e := range vec {
		key := e.ID.Key()
		s.values[key] = append(s.values[key], e.Value)
	}
	return s, nil
}

// SetCheck stores a summary of res in the header.
func (s *Snapshot) SetCheck(res *gradcheck.Result) {
	if res == nil {
		s.Header.Check = nil
		return
	}
	meta := &CheckMeta{
		Pass:        res.Pass,
		Checked:     res.Checked(),
		Total:       res.Total,
		MaxRelError: strconv.FormatFloat(res.MaxRel, 'g', -1, 64),
	}
	for _, f := range res.Failures {
		meta.Failures = append(meta.Failures, f.String())
	}
	s.Header.Check = meta
}

// Values returns the values of one group, or nil if the key is unknown.
func (s *Snapshot) Values(key string) []float64 {
	return s.values[key]
}

// NumParams returns the number of stored scalars.
func (s *Snapshot) NumParams() int {
	n := 0
	for _, v := range s.values {
		n += len(v)
	}
	return n
}

// Restore writes the stored values into m through SetScalar.
//
// The model must expose exactly the stored groups, in the same order and
// with the same shapes; otherwise ErrModelMismatch is returned and m is
// left untouched.
func (s *Snapshot) Restore(m gradcheck.Parameters) error {
	var want []GroupMeta
	for layer := 0; layer < m.NumLayers(); layer++ {
		for _, g := range m.ParameterGroups(layer) {
			want = append(want, GroupMeta{Layer: layer, Group: g.Name, Shape: g.Shape})
		}
	}
	if len(want) != len(s.Header.Groups) {
		return &ValidationError{
			Type:    "group_count",
			Details: fmt.Sprintf("snapshot has %d groups, model has %d", len(s.Header.Groups), len(want)),
			Err:     ErrModelMismatch,
		}
	}
	for i, g := range s.Header.Groups {
		w := want[i]
		if g.Layer != w.Layer || g.Group != w.Group || !slices.Equal(g.Shape, w.Shape) {
			return &ValidationError{
				Type:    "group_layout",
				Group:   g.Name,
				Details: fmt.Sprintf("snapshot %d_%s%v, model %d_%s%v", g.Layer, g.Group, g.Shape, w.Layer, w.Group, w.Shape),
				Err:     ErrModelMismatch,
			}
		}
	}

	for _, g := range s.Header.Groups {
		for offset, v := range s.values[g.Name] {
			m.SetScalar(gradcheck.Identity{Layer: g.Layer, Group: g.Group, Offset: offset}, v)
		}
	}
	return nil
}
