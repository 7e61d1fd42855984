package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "GCHK"
	FormatVersion   = 1
	HeaderAlignment = 64 // Group data starts on a 64-byte boundary
	FixedHeaderSize = 4 + 4 + 4 + 8 + ChecksumSize
	ChecksumSize    = 32 // SHA-256
	float64Size     = 8
)

// Flags for the snapshot format.
const (
	FlagHasCheck    uint32 = 1 << 0 // bit 0: gradient check summary included
	FlagHasMetadata uint32 = 1 << 1 // bit 1: custom metadata included
)

// Header represents the JSON header of a snapshot.
type Header struct {
	FormatVersion int               `json:"format_version"`  // Version of the snapshot format
	ModelType     string            `json:"model_type"`      // Free-form model description (e.g., a scenario name)
	CreatedAt     time.Time         `json:"created_at"`      // When the snapshot was taken
	Groups        []GroupMeta       `json:"groups"`          // Parameter groups in model order
	Metadata      map[string]string `json:"metadata"`        // Custom metadata
	Check         *CheckMeta        `json:"check,omitempty"` // Gradient check summary (optional)
}

// GroupMeta describes one parameter group in the data section.
type GroupMeta struct {
	Name   string `json:"name"`   // Group key, e.g. "1_W"
	Layer  int    `json:"layer"`  // Layer index
	Group  string `json:"group"`  // Group name within the layer
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section in bytes
	Size   int64  `json:"size"`   // Size in bytes
}

// CheckMeta summarises a gradient check run on the snapshot's parameters.
type CheckMeta struct {
	Pass        bool     `json:"pass"`
	Checked     int      `json:"checked"`
	Total       int      `json:"total"`
	MaxRelError string   `json:"max_rel_error"` // Formatted, since it may be +Inf
	Failures    []string `json:"failures"`
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
