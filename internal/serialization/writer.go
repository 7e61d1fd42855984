package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Write encodes the snapshot.
func (s *Snapshot) Write(w io.Writer) error {
	header := s.Header
	header.FormatVersion = FormatVersion
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Encode group data in header order.
	var size int64
	for _, g := range header.Groups {
		if g.Offset < 0 || g.Size < 0 || g.Offset > MaxDataSize || g.Size > MaxDataSize-g.Offset {
			return &ValidationError{
				Type:    "out_of_bounds",
				Group:   g.Name,
				Details: fmt.Sprintf("offset %d, size %d outside [0, %d]", g.Offset, g.Size, MaxDataSize),
			}
		}
		size = max(size, g.Offset+g.Size)
	}
	if err := ValidateHeader(&header, size); err != nil {
		return err
	}
	data := make([]byte, size)
	for _, g := range header.Groups {
		vals := s.values[g.Name]
		if int64(len(vals)*float64Size) != g.Size {
			return &ValidationError{
				Type:    "size_mismatch",
				Group:   g.Name,
				Details: fmt.Sprintf("%d values for %d bytes", len(vals), g.Size),
			}
		}
		for i, v := range vals {
			binary.LittleEndian.PutUint64(data[g.Offset+int64(i*float64Size):], math.Float64bits(v))
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	flags := uint32(0)
	if header.Check != nil {
		flags |= FlagHasCheck
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(FormatVersion))
	_ = binary.Write(&buf, binary.LittleEndian, flags)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON)))
	sum := ComputeChecksum(data)
	buf.Write(sum[:])
	buf.Write(headerJSON)

	// Pad so the data section starts on an aligned offset.
	pos := int64(buf.Len())
	if padding := (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment; padding > 0 {
		buf.Write(make([]byte, padding))
	}
	buf.Write(data)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// WriteFile encodes the snapshot to path.
func (s *Snapshot) WriteFile(path string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for snapshot saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := s.Write(file); err != nil {
		_ = file.Close() // Best effort close on error
		return err
	}
	return file.Close()
}
