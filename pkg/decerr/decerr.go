// Package decerr defines the error categories shared by the fastfile and
// script decoders.
//
// Every failure returned by a decoder wraps exactly one of the category
// sentinels below, so callers can classify with errors.Is regardless of how
// much context was added on the way up.
package decerr

import "github.com/pkg/errors"

var (
	// ErrFormat reports a bad magic or version.
	ErrFormat = errors.New("format error")

	// ErrUnsupportedVariant reports a container whose compression, platform
	// or encryption flags are valid but not handled.
	ErrUnsupportedVariant = errors.New("unsupported variant")

	// ErrCorruption reports structural damage: block stream desync, a
	// checksum scan that never terminates, an unmapped opcode, or a read past
	// the end of the buffer.
	ErrCorruption = errors.New("corrupt data")

	// ErrDecode reports an operand shape outside the closed set of kinds.
	ErrDecode = errors.New("decode error")

	// ErrOutOfBounds is returned by cursor reads past the end of the buffer.
	// Decoders report it wrapped in ErrCorruption.
	ErrOutOfBounds = errors.New("read out of bounds")
)

// Corrupt wraps err (usually ErrOutOfBounds or a plain message) so that it
// classifies as ErrCorruption while keeping the original cause reachable.
func Corrupt(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Wrapf(ErrCorruption, format, args...)
	}
	return &categorized{category: ErrCorruption, err: errors.Wrapf(err, format, args...)}
}

type categorized struct {
	category error
	err      error
}

func (c *categorized) Error() string { return c.category.Error() + ": " + c.err.Error() }

func (c *categorized) Unwrap() error { return c.err }

func (c *categorized) Is(target error) bool { return target == c.category }

// Category returns the sentinel err belongs to, or nil if it is unclassified.
func Category(err error) error {
	for _, c := range []error{ErrFormat, ErrUnsupportedVariant, ErrCorruption, ErrDecode} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
