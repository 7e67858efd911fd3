// Package binarray provides the byte buffers the fastfile and script
// decoders read from.
//
// Buffer gives absolute-offset access in a fixed byte order; Cursor layers a
// read position on top of it with seek, skip, alignment and typed reads.
// Every read is bounds-checked and fails with decerr.ErrOutOfBounds instead
// of panicking, because offsets come straight from untrusted files.
package binarray

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/decerr"
)

// Buffer wraps a byte slice with bounds-checked integer and string access
// in a fixed byte order.
type Buffer struct {
	Data  []byte
	Order binary.ByteOrder
}

// New creates a zero-filled buffer of the given size.
func New(size int, order binary.ByteOrder) *Buffer {
	return &Buffer{Data: make([]byte, size), Order: order}
}

// FromBytes wraps an existing byte slice (no copy).
func FromBytes(data []byte, order binary.ByteOrder) *Buffer {
	return &Buffer{Data: data, Order: order}
}

// Len returns the buffer length.
func (b *Buffer) Len() int {
	return len(b.Data)
}

func (b *Buffer) check(idx, n int) error {
	if idx < 0 || n < 0 || idx+n > len(b.Data) {
		return errors.Wrapf(decerr.ErrOutOfBounds, "%d bytes at 0x%x (buffer is 0x%x)", n, idx, len(b.Data))
	}
	return nil
}

// Slice returns a view of n bytes at idx (shared memory).
func (b *Buffer) Slice(idx, n int) ([]byte, error) {
	if err := b.check(idx, n); err != nil {
		return nil, err
	}
	return b.Data[idx : idx+n], nil
}

// SubCopy returns a copy of n bytes at idx (independent memory).
func (b *Buffer) SubCopy(idx, n int) ([]byte, error) {
	src, err := b.Slice(idx, n)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, n)
	copy(dst, src)
	return dst, nil
}

// --- Integer reads ---

// GetU8 reads a single unsigned byte.
func (b *Buffer) GetU8(idx int) (uint8, error) {
	if err := b.check(idx, 1); err != nil {
		return 0, err
	}
	return b.Data[idx], nil
}

// GetU16 reads a 16-bit unsigned integer.
func (b *Buffer) GetU16(idx int) (uint16, error) {
	if err := b.check(idx, 2); err != nil {
		return 0, err
	}
	return b.Order.Uint16(b.Data[idx:]), nil
}

// GetU32 reads a 32-bit unsigned integer.
func (b *Buffer) GetU32(idx int) (uint32, error) {
	if err := b.check(idx, 4); err != nil {
		return 0, err
	}
	return b.Order.Uint32(b.Data[idx:]), nil
}

// GetI32 reads a 32-bit signed integer.
func (b *Buffer) GetI32(idx int) (int32, error) {
	v, err := b.GetU32(idx)
	return int32(v), err
}

// GetI64 reads a 64-bit signed integer.
func (b *Buffer) GetI64(idx int) (int64, error) {
	if err := b.check(idx, 8); err != nil {
		return 0, err
	}
	return int64(b.Order.Uint64(b.Data[idx:])), nil
}

// GetF32 reads an IEEE-754 single.
func (b *Buffer) GetF32(idx int) (float32, error) {
	v, err := b.GetU32(idx)
	return math.Float32frombits(v), err
}

// --- Integer writes (used to build synthetic buffers) ---

// PutU8 writes a single byte.
func (b *Buffer) PutU8(idx int, val uint8) {
	b.Data[idx] = val
}

// PutU16 writes a 16-bit integer.
func (b *Buffer) PutU16(idx int, val uint16) {
	b.Order.PutUint16(b.Data[idx:], val)
}

// PutU32 writes a 32-bit integer.
func (b *Buffer) PutU32(idx int, val uint32) {
	b.Order.PutUint32(b.Data[idx:], val)
}

// PutI32 writes a signed 32-bit integer.
func (b *Buffer) PutI32(idx int, val int32) {
	b.Order.PutUint32(b.Data[idx:], uint32(val))
}

// PutI64 writes a signed 64-bit integer.
func (b *Buffer) PutI64(idx int, val int64) {
	b.Order.PutUint64(b.Data[idx:], uint64(val))
}

// PutF32 writes an IEEE-754 single.
func (b *Buffer) PutF32(idx int, val float32) {
	b.Order.PutUint32(b.Data[idx:], math.Float32bits(val))
}

// --- Strings ---

// CString returns the bytes of the null-terminated string starting at idx,
// without the terminator. A string running to the end of the buffer
// without a terminator is an error.
func (b *Buffer) CString(idx int) ([]byte, error) {
	if err := b.check(idx, 0); err != nil {
		return nil, err
	}
	for end := idx; end < len(b.Data); end++ {
		if b.Data[end] == 0 {
			return b.Data[idx:end], nil
		}
	}
	return nil, errors.Wrapf(decerr.ErrOutOfBounds, "unterminated string at 0x%x", idx)
}

// ReadCString reads a null-terminated string starting at idx.
func (b *Buffer) ReadCString(idx int) (string, error) {
	raw, err := b.CString(idx)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// WriteCString copies s and a terminating zero into the buffer at idx.
func (b *Buffer) WriteCString(idx int, s string) {
	n := copy(b.Data[idx:], s)
	b.Data[idx+n] = 0
}

// --- Alignment ---

// Padding returns the number of bytes needed to advance pos to the next
// multiple of align, or zero if pos is already aligned.
func Padding(pos, align int) int {
	if align <= 1 {
		return 0
	}
	if rem := pos % align; rem != 0 {
		return align - rem
	}
	return 0
}

// AlignUp returns pos advanced to the next multiple of align.
func AlignUp(pos, align int) int {
	return pos + Padding(pos, align)
}

// --- File I/O ---

// ReadFile reads an entire file into a new Buffer.
func ReadFile(fname string, order binary.ByteOrder) (*Buffer, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read '%s'", fname)
	}
	return &Buffer{Data: data, Order: order}, nil
}

// WriteFile writes the buffer contents to a file, creating parent
// directories as needed.
func (b *Buffer) WriteFile(fname string) error {
	return WriteFile(fname, b.Data)
}

// WriteFile writes data to fname, creating parent directories as needed.
func WriteFile(fname string, data []byte) error {
	if dir := filepath.Dir(fname); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "cannot create directory '%s'", dir)
		}
	}
	return errors.Wrapf(os.WriteFile(fname, data, 0644), "cannot write '%s'", fname)
}
