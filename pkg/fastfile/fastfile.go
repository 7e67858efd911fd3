// Package fastfile decodes Black Ops III fastfile containers and extracts
// the compiled scripts embedded in them.
//
// A container is a fixed header followed by a stream of 16-byte block
// headers, each introducing either a raw-deflate compressed chunk or a
// padding block that skips to the next 0x80000 boundary. Decoding
// concatenates the inflated chunks into one contiguous buffer; script blobs
// are then located in that buffer by signature.
package fastfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/golang/glog"
	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/binarray"
	"github.com/yoremi/cerberus-go/pkg/decerr"
)

// Container layout constants.
const (
	Version = 0x25E

	CompressionZlib = 1
	PlatformPC      = 4
	EncryptionNone  = 0

	TotalSizeOffset = 0x90
	BlocksOffset    = 0x248
	BlockHeaderSize = 16
	BlockAlign      = 0x80000
)

// Magic is the 8-byte container signature.
var Magic = []byte("TAff0000")

// Header is the fixed record at the start of a container.
type Header struct {
	Magic   [8]byte
	Version uint32
	Flags   [4]byte
}

// Compression returns the compression flag byte.
func (h *Header) Compression() byte { return h.Flags[1] }

// Platform returns the platform flag byte.
func (h *Header) Platform() byte { return h.Flags[2] }

// Encryption returns the encryption flag byte.
func (h *Header) Encryption() byte { return h.Flags[3] }

type blockHeader struct {
	CompressedSize   int32
	DecompressedSize int32
	BlockSize        int32
	BlockPosition    int32
}

// ReadHeader parses and validates the container header.
func ReadHeader(c *binarray.Cursor) (*Header, error) {
	var hdr Header
	if err := c.Unpack(&hdr); err != nil {
		return nil, errors.Wrap(decerr.ErrFormat, "container too short for header")
	}
	if !bytes.Equal(hdr.Magic[:], Magic) {
		return nil, errors.Wrapf(decerr.ErrFormat, "invalid fastfile magic %q", hdr.Magic[:])
	}
	if hdr.Version != Version {
		return nil, errors.Wrapf(decerr.ErrFormat, "invalid fastfile version 0x%x", hdr.Version)
	}
	if hdr.Compression() != CompressionZlib {
		return nil, errors.Wrapf(decerr.ErrUnsupportedVariant, "compression %d, only ZLIB fastfiles are supported", hdr.Compression())
	}
	if hdr.Platform() != PlatformPC {
		return nil, errors.Wrapf(decerr.ErrUnsupportedVariant, "platform %d, only PC fastfiles are supported", hdr.Platform())
	}
	if hdr.Encryption() != EncryptionNone {
		return nil, errors.Wrap(decerr.ErrUnsupportedVariant, "encrypted fastfiles are not supported")
	}
	return &hdr, nil
}

// Decode returns the decompressed payload of a container.
func Decode(data []byte) ([]byte, error) {
	c := binarray.NewCursor(data, binary.LittleEndian)
	if _, err := ReadHeader(c); err != nil {
		return nil, err
	}

	if err := c.Seek(TotalSizeOffset); err != nil {
		return nil, decerr.Corrupt(err, "total size")
	}
	total, err := c.ReadI64()
	if err != nil {
		return nil, decerr.Corrupt(err, "total size")
	}
	if total < 0 {
		return nil, decerr.Corrupt(nil, "negative total size %d", total)
	}
	if err := c.Seek(BlocksOffset); err != nil {
		return nil, decerr.Corrupt(err, "first block")
	}

	// The declared size is untrusted; don't let it drive a huge allocation.
	hint := total
	if hint > int64(len(data))*8 {
		hint = int64(len(data)) * 8
	}
	out := bytes.NewBuffer(make([]byte, 0, hint))

	var consumed int64
	for consumed < total {
		pos := c.Pos()
		var bh blockHeader
		if err := c.Unpack(&bh); err != nil {
			return nil, decerr.Corrupt(err, "block header at 0x%x", pos)
		}
		if int(bh.BlockPosition) != pos {
			return nil, decerr.Corrupt(nil, "block position 0x%x does not match stream position 0x%x", bh.BlockPosition, pos)
		}

		if bh.DecompressedSize == 0 {
			pad := binarray.Padding(c.Pos(), BlockAlign)
			glog.V(2).Infof("padding block at 0x%x, skipping 0x%x bytes", pos, pad)
			if err := c.Skip(pad); err != nil {
				return nil, decerr.Corrupt(err, "padding block at 0x%x", pos)
			}
			continue
		}

		if bh.CompressedSize < 0 || bh.DecompressedSize < 0 {
			return nil, decerr.Corrupt(nil, "negative block size at 0x%x", pos)
		}
		// A block's extent covers its compressed data; anything shorter would
		// send the walk backwards onto a header it already consumed.
		if bh.BlockSize < bh.CompressedSize {
			return nil, decerr.Corrupt(nil, "block at 0x%x spans 0x%x bytes but holds 0x%x compressed", pos, bh.BlockSize, bh.CompressedSize)
		}
		comp, err := c.ReadBytes(int(bh.CompressedSize))
		if err != nil {
			return nil, decerr.Corrupt(err, "block data at 0x%x", pos)
		}
		n, err := inflate(out, comp)
		if err != nil {
			return nil, decerr.Corrupt(err, "inflating block at 0x%x", pos)
		}
		if n != int64(bh.DecompressedSize) {
			return nil, decerr.Corrupt(nil, "block at 0x%x inflated to %d bytes, header says %d", pos, n, bh.DecompressedSize)
		}
		glog.V(2).Infof("block at 0x%x: 0x%x -> 0x%x", pos, bh.CompressedSize, bh.DecompressedSize)
		consumed += int64(bh.DecompressedSize)

		next := int(bh.BlockPosition) + int(bh.BlockSize) + BlockHeaderSize
		if next <= pos {
			return nil, decerr.Corrupt(nil, "block at 0x%x points back to 0x%x", pos, next)
		}
		if consumed < total {
			if err := c.Seek(next); err != nil {
				return nil, decerr.Corrupt(err, "next block after 0x%x", pos)
			}
		}
	}
	return out.Bytes(), nil
}

func inflate(w io.Writer, comp []byte) (int64, error) {
	r := flate.NewReader(bytes.NewReader(comp))
	defer r.Close()
	return io.Copy(w, r)
}

// DecodeFile reads and decodes a container from disk.
func DecodeFile(path string) ([]byte, error) {
	buf, err := binarray.ReadFile(path, binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	out, err := Decode(buf.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return out, nil
}
