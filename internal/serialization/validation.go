package serialization

import (
	"cmp"
	"fmt"
	"slices"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize = 100 * 1024 * 1024  // 100MB
	MaxDataSize   = 1024 * 1024 * 1024 // 1GB
	MaxGroupCount = 100_000
)

// ValidateHeader checks that every group lies inside the data section,
// that no two groups overlap and that each size matches its shape.
func ValidateHeader(h *Header, dataSize int64) error {
	if h.FormatVersion != FormatVersion {
		return &ValidationError{Type: "format_version", Details: fmt.Sprintf("header declares %d", h.FormatVersion)}
	}
	if len(h.Groups) > MaxGroupCount {
		return &ValidationError{
			Type:    "too_many_groups",
			Details: fmt.Sprintf("got %d, max %d", len(h.Groups), MaxGroupCount),
		}
	}

	seen := make(map[string]bool, len(h.Groups))
	for _, g := range h.Groups {
		if g.Name == "" || seen[g.Name] {
			return &ValidationError{Type: "invalid_name", Group: g.Name, Details: "group names must be unique and non-empty"}
		}
		seen[g.Name] = true

		if g.Offset < 0 || g.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Group:   g.Name,
				Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", g.Offset, g.Size),
			}
		}
		if g.Offset > dataSize || g.Size > dataSize-g.Offset {
			return &ValidationError{
				Type:    "out_of_bounds",
				Group:   g.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", g.Offset, g.Size, dataSize),
			}
		}
		for _, d := range g.Shape {
			if d <= 0 {
				return &ValidationError{Type: "invalid_shape", Group: g.Name, Details: fmt.Sprintf("shape %v", g.Shape)}
			}
		}
		if want := int64(numElements(g.Shape) * float64Size); len(g.Shape) == 0 || g.Size != want {
			return &ValidationError{
				Type:    "size_mismatch",
				Group:   g.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", g.Shape, want, g.Size),
			}
		}
	}

	// Sort by offset for overlap detection.
	sorted := slices.Clone(h.Groups)
	slices.SortFunc(sorted, func(a, b GroupMeta) int { return cmp.Compare(a.Offset, b.Offset) })
	for i := 0; i+1 < len(sorted); i++ {
		t, next := sorted[i], sorted[i+1]
		if t.Offset+t.Size > next.Offset {
			return &ValidationError{
				Type:    "offset_overlap",
				Group:   t.Name,
				Group2:  next.Name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
			}
		}
	}
	return nil
}
