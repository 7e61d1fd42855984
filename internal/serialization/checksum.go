package serialization

import (
	"crypto/sha256"
	"fmt"
)

// ComputeChecksum hashes a snapshot's group data section. The header is not
// covered; ValidateHeader checks it against the data length instead.
func ComputeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// ValidateChecksum reports ErrChecksumMismatch, with both digest prefixes,
// when the group data does not hash to the value stored in the file.
func ValidateChecksum(computed, stored [ChecksumSize]byte) error {
	if computed != stored {
		return fmt.Errorf("%w: data hashes to %x, file records %x", ErrChecksumMismatch, computed[:4], stored[:4])
	}
	return nil
}
