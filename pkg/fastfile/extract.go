package fastfile

import (
	"encoding/binary"

	"github.com/golang/glog"

	"github.com/yoremi/cerberus-go/pkg/binarray"
	"github.com/yoremi/cerberus-go/pkg/decerr"
)

// ScriptNeedle marks the start of a compiled Black Ops III script in a
// decompressed payload.
var ScriptNeedle = []byte{0x80, 0x47, 0x53, 0x43, 0x0d, 0x0a, 0x00, 0x03}

// Offsets relative to a signature match.
const (
	scriptSizeOffset = 0x28
	scriptNameOffset = 0x34
)

// CompiledSuffix is appended to extracted script names.
const CompiledSuffix = "c"

// Script is a compiled script blob found in a decompressed payload.
type Script struct {
	Name   string // recovered name plus CompiledSuffix
	Offset int    // match offset in the decompressed payload
	Data   []byte
}

// FindAll returns the start offsets of needle in buf. Matching is a plain
// forward automaton: a mismatching byte resets the match length to zero
// without being retried as the first byte of a new match, and a full match
// resets it as well, so occurrences never overlap.
func FindAll(buf, needle []byte) []int {
	var offsets []int
	if len(needle) == 0 {
		return offsets
	}
	matched := 0
	for i, b := range buf {
		if b != needle[matched] {
			matched = 0
			continue
		}
		matched++
		if matched == len(needle) {
			offsets = append(offsets, i+1-len(needle))
			matched = 0
		}
	}
	return offsets
}

// ExtractScripts locates every embedded script in a decompressed payload.
// Blob sizes and names come from the script's own header fields.
func ExtractScripts(buf []byte) ([]Script, error) {
	b := binarray.FromBytes(buf, binary.LittleEndian)
	var scripts []Script
	for _, o := range FindAll(buf, ScriptNeedle) {
		size, err := b.GetU32(o + scriptSizeOffset)
		if err != nil {
			return nil, decerr.Corrupt(err, "script size at 0x%x", o)
		}
		namePtr, err := b.GetU16(o + scriptNameOffset)
		if err != nil {
			return nil, decerr.Corrupt(err, "script name pointer at 0x%x", o)
		}
		name, err := b.ReadCString(o + int(namePtr))
		if err != nil {
			return nil, decerr.Corrupt(err, "script name at 0x%x", o)
		}
		data, err := b.SubCopy(o, int(size))
		if err != nil {
			return nil, decerr.Corrupt(err, "script %s at 0x%x", name, o)
		}
		glog.V(1).Infof("found %s at 0x%x (0x%x bytes)", name, o, size)
		scripts = append(scripts, Script{Name: name + CompiledSuffix, Offset: o, Data: data})
	}
	return scripts, nil
}
