package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
	ErrModelMismatch      = errors.New("snapshot does not match model")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Group   string // Primary group key involved
	Group2  string // Secondary group key (for overlap errors)
	Details string // Additional details
	Err     error  // Sentinel the error matches
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Group2 != "" {
		return fmt.Sprintf("%s: groups %q and %q: %s", e.Type, e.Group, e.Group2, e.Details)
	}
	if e.Group != "" {
		return fmt.Sprintf("%s: group %q: %s", e.Type, e.Group, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap returns the sentinel, ErrInvalidSnapshot by default.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidSnapshot
}
