package nn

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidConfig = errors.New("nn: invalid network configuration")
	ErrInvalidInput  = errors.New("nn: invalid input")
)

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func inputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
