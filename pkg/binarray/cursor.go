package binarray

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/decerr"
)

// Cursor reads a Buffer sequentially. Absolute lookups that must not disturb
// the read position (string pointers, name pointers) go through the Peek
// methods instead of a save/seek/restore sequence.
type Cursor struct {
	buf *Buffer
	pos int
}

// NewCursor creates a cursor at offset 0 of data.
func NewCursor(data []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{buf: FromBytes(data, order)}
}

// Buffer returns the underlying buffer.
func (c *Cursor) Buffer() *Buffer { return c.buf }

// Order returns the byte order of the underlying buffer.
func (c *Cursor) Order() binary.ByteOrder { return c.buf.Order }

// Pos returns the current read position.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the length of the underlying buffer.
func (c *Cursor) Len() int { return c.buf.Len() }

// Remaining returns the number of bytes after the current position.
func (c *Cursor) Remaining() int { return c.buf.Len() - c.pos }

// Seek moves to an absolute offset. Seeking to the end of the buffer is
// allowed; seeking past it is not.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > c.buf.Len() {
		return errors.Wrapf(decerr.ErrOutOfBounds, "seek to 0x%x (buffer is 0x%x)", off, c.buf.Len())
	}
	c.pos = off
	return nil
}

// Skip advances the position by n bytes.
func (c *Cursor) Skip(n int) error {
	return c.Seek(c.pos + n)
}

// Align advances the position to the next multiple of n.
func (c *Cursor) Align(n int) error {
	return c.Skip(Padding(c.pos, n))
}

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (uint8, error) {
	v, err := c.buf.GetU8(c.pos)
	if err == nil {
		c.pos++
	}
	return v, err
}

// ReadI8 reads one signed byte.
func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

// ReadU16 reads a 16-bit unsigned integer.
func (c *Cursor) ReadU16() (uint16, error) {
	v, err := c.buf.GetU16(c.pos)
	if err == nil {
		c.pos += 2
	}
	return v, err
}

// ReadI16 reads a 16-bit signed integer.
func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

// ReadU32 reads a 32-bit unsigned integer.
func (c *Cursor) ReadU32() (uint32, error) {
	v, err := c.buf.GetU32(c.pos)
	if err == nil {
		c.pos += 4
	}
	return v, err
}

// ReadI32 reads a 32-bit signed integer.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadI64 reads a 64-bit signed integer.
func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.buf.GetI64(c.pos)
	if err == nil {
		c.pos += 8
	}
	return v, err
}

// ReadF32 reads an IEEE-754 single.
func (c *Cursor) ReadF32() (float32, error) {
	v, err := c.buf.GetF32(c.pos)
	if err == nil {
		c.pos += 4
	}
	return v, err
}

// ReadBytes returns a view of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	v, err := c.buf.Slice(c.pos, n)
	if err == nil {
		c.pos += n
	}
	return v, err
}

// ReadCString reads a null-terminated string and moves past its terminator.
func (c *Cursor) ReadCString() (string, error) {
	raw, err := c.buf.CString(c.pos)
	if err != nil {
		return "", err
	}
	c.pos += len(raw) + 1
	return string(raw), nil
}

// PeekCString returns the raw bytes of the null-terminated string at an
// absolute offset without moving the cursor.
func (c *Cursor) PeekCString(off int) ([]byte, error) {
	return c.buf.CString(off)
}

// PeekU16 reads a 16-bit integer at an absolute offset without moving.
func (c *Cursor) PeekU16(off int) (uint16, error) {
	return c.buf.GetU16(off)
}

// PeekU32 reads a 32-bit integer at an absolute offset without moving.
func (c *Cursor) PeekU32(off int) (uint32, error) {
	return c.buf.GetU32(off)
}

// Unpack decodes a fixed-layout record at the current position into v (a
// pointer to a restruct-tagged struct) and advances past it.
func (c *Cursor) Unpack(v interface{}) (err error) {
	if c.pos > c.buf.Len() {
		return errors.Wrapf(decerr.ErrOutOfBounds, "unpack at 0x%x", c.pos)
	}
	// restruct indexes the input directly; a short record must not take
	// the whole process down.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(decerr.ErrOutOfBounds, "unpack at 0x%x: %v", c.pos, r)
		}
	}()
	if err := restruct.Unpack(c.buf.Data[c.pos:], c.buf.Order, v); err != nil {
		return errors.Wrapf(decerr.ErrOutOfBounds, "unpack at 0x%x: %v", c.pos, err)
	}
	size, err := restruct.SizeOf(v)
	if err != nil {
		return errors.Wrapf(err, "size of record at 0x%x", c.pos)
	}
	return c.Skip(size)
}
