package gsc

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"testing"

	"github.com/go-restruct/restruct"
	"github.com/stretchr/testify/require"
)

var scriptMagic = [8]byte{0x80, 0x47, 0x53, 0x43, 0x0d, 0x0a, 0x00, 0x03}

// scriptBuilder assembles a script image: header, byte code, string data
// and tables, with the same alignment rules the decoder consumes. Byte code
// is written at its final absolute offset so alignment matches.
type scriptBuilder struct {
	t     *testing.T
	v     Variant
	order binary.ByteOrder
	img   []byte

	name       string
	includes   []string
	strOrder   []string
	strRefs    map[string][]int32
	devStrings [][]int32
	imports    []importEntry
	exports    []builtExport
	animFixups []animFixup
	cur        *builtExport
}

type builtExport struct {
	entry      exportEntry
	start, end int
}

type animFixup struct {
	pos  int
	name string
}

// instr is an instruction and the operands the decoder should produce.
type instr struct {
	code     Opcode
	operands []Operand
}

type caseDef struct {
	str    string
	value  int32
	target int
}

func newBuilder(t *testing.T, v Variant, name string) *scriptBuilder {
	return &scriptBuilder{
		t:       t,
		v:       v,
		order:   v.ByteOrder(),
		img:     make([]byte, HeaderSize),
		name:    name,
		strRefs: make(map[string][]int32),
	}
}

func (b *scriptBuilder) pos() int { return len(b.img) }

func (b *scriptBuilder) pad(n int) {
	for len(b.img)%n != 0 {
		b.img = append(b.img, 0xCD)
	}
}

func (b *scriptBuilder) u8(v uint8) { b.img = append(b.img, v) }

func (b *scriptBuilder) u16(v uint16) {
	var tmp [2]byte
	b.order.PutUint16(tmp[:], v)
	b.img = append(b.img, tmp[:]...)
}

func (b *scriptBuilder) u32(v uint32) {
	var tmp [4]byte
	b.order.PutUint32(tmp[:], v)
	b.img = append(b.img, tmp[:]...)
}

func (b *scriptBuilder) f32(v float32) { b.u32(math.Float32bits(v)) }

func (b *scriptBuilder) cstring(s string) int {
	off := b.pos()
	b.img = append(b.img, s...)
	b.img = append(b.img, 0)
	return off
}

func (b *scriptBuilder) ref(s string, at int) {
	if _, ok := b.strRefs[s]; !ok {
		b.strOrder = append(b.strOrder, s)
	}
	b.strRefs[s] = append(b.strRefs[s], int32(at))
}

func (b *scriptBuilder) op(code Opcode) int {
	bv, ok := b.v.Opcodes().Encode(code)
	require.True(b.t, ok, "no byte for %v", code)
	off := b.pos()
	b.u8(bv)
	return off
}

func (b *scriptBuilder) beginExport(name, namespace uint32, params uint8, flags ExportFlags) {
	b.cur = &builtExport{
		entry: exportEntry{Name: name, Namespace: namespace, ParameterCount: params, Flags: uint8(flags)},
		start: b.pos(),
	}
}

func (b *scriptBuilder) endExport() {
	b.cur.end = b.pos()
	b.exports = append(b.exports, *b.cur)
	b.cur = nil
}

// emit encodes in and returns its offset.
func (b *scriptBuilder) emit(in instr) int {
	off := b.op(in.code)
	intAt := func(i int) int64 { return in.operands[i].(IntOperand).Value }
	nameAt := func(i int) uint32 { return in.operands[i].(NameOperand).Hash }

	switch in.code.Metadata().Operand {
	case KindNone:
	case KindInt8:
		b.u8(uint8(int8(intAt(0))))
	case KindUInt8:
		v := intAt(0)
		if in.code == OpGetNegByte {
			v = -v
		}
		b.u8(uint8(v))
	case KindInt16:
		b.pad(2)
		b.u16(uint16(int16(intAt(0))))
	case KindUInt16:
		v := intAt(0)
		if in.code == OpGetNegUnsignedShort {
			v = -v
		}
		b.pad(2)
		b.u16(uint16(v))
	case KindInt32:
		b.pad(4)
		b.u32(uint32(int32(intAt(0))))
	case KindUInt32:
		b.pad(4)
		b.u32(uint32(intAt(0)))
	case KindHash, KindVariableName, KindFunctionPointer:
		b.pad(4)
		b.u32(nameAt(0))
	case KindFloat:
		b.pad(4)
		b.f32(in.operands[0].(FloatOperand).Value)
	case KindVector:
		vec := in.operands[0].(VectorOperand)
		b.pad(4)
		b.f32(vec.X)
		b.f32(vec.Y)
		b.f32(vec.Z)
	case KindVectorFlags:
		vec := in.operands[0].(VectorOperand)
		b.u8(axisFlags(vec.X, 0x20, 0x10) | axisFlags(vec.Y, 0x08, 0x04) | axisFlags(vec.Z, 0x02, 0x01))
	case KindString:
		str := in.operands[0].(StringOperand)
		if in.code == OpGetAnimation {
			b.pad(4)
			b.animFixups = append(b.animFixups, animFixup{pos: b.pos(), name: str.Value})
			b.u32(0)
			break
		}
		b.pad(2)
		if str.Resolved {
			b.ref(str.Value, b.pos())
		}
		b.u16(0)
	case KindCall:
		if in.code == OpClassFunctionCall || in.code == OpClassFunctionThreadCall {
			b.u8(uint8(intAt(1)))
		} else {
			b.u8(0)
		}
		b.pad(4)
		b.u32(nameAt(0))
	case KindVariableList:
		b.u8(uint8(len(in.operands)))
		for i := range in.operands {
			b.pad(4)
			b.u32(nameAt(i))
			b.u8(0)
		}
	default:
		b.t.Fatalf("emit: unsupported kind for %v", in.code)
	}
	return off
}

func axisFlags(v float32, pos, neg uint8) uint8 {
	switch {
	case v > 0:
		return pos
	case v < 0:
		return neg
	}
	return 0
}

// emitSwitch writes an EndSwitch case table. Targets are absolute.
func (b *scriptBuilder) emitSwitch(cases []caseDef) int {
	off := b.op(OpEndSwitch)
	b.pad(4)
	b.u32(uint32(len(cases)))
	for _, cd := range cases {
		if cd.str != "" {
			b.ref(cd.str, b.pos()+2)
			b.u32(0)
		} else {
			b.u32(uint32(cd.value))
		}
		slot := b.pos()
		b.u32(uint32(int32(cd.target - slot - 4)))
	}
	return off
}

func (b *scriptBuilder) pack(v interface{}) {
	data, err := restruct.Pack(b.order, v)
	require.NoError(b.t, err)
	b.img = append(b.img, data...)
}

// finish lays out strings and tables after the byte code and writes the
// header.
func (b *scriptBuilder) finish() []byte {
	require.Nil(b.t, b.cur, "unterminated export")
	var hdr Header
	hdr.Magic = scriptMagic
	hdr.ByteCodeOffset = HeaderSize
	hdr.ByteCodeSize = int32(b.pos() - HeaderSize)

	for i := range b.exports {
		e := &b.exports[i]
		e.entry.ByteCodeOffset = int32(e.start)
		e.entry.Checksum = crc32.ChecksumIEEE(b.img[e.start:e.end])
	}

	hdr.NameOffset = uint16(b.cstring(b.name))

	for _, fx := range b.animFixups {
		off := b.cstring(fx.name)
		b.order.PutUint32(b.img[fx.pos:], uint32(off))
	}

	strOffsets := make([]int, len(b.strOrder))
	for i, s := range b.strOrder {
		strOffsets[i] = b.cstring(s)
	}
	incOffsets := make([]int, len(b.includes))
	for i, s := range b.includes {
		incOffsets[i] = b.cstring(s)
	}
	require.Less(b.t, b.pos(), 0x10000, "string data must stay within 16-bit offsets")

	b.pad(4)
	hdr.IncludeTableOffset = int32(b.pos())
	hdr.IncludeCount = uint8(len(b.includes))
	for _, off := range incOffsets {
		b.u32(uint32(off))
	}

	hdr.StringTableOffset = int32(b.pos())
	hdr.StringCount = uint16(len(b.strOrder))
	for i, s := range b.strOrder {
		refs := b.strRefs[s]
		b.pack(&stringEntry{Offset: uint16(strOffsets[i]), ReferenceCount: uint8(len(refs)), References: refs})
	}

	hdr.DebugStringTableOffset = int32(b.pos())
	hdr.DebugStringCount = uint16(len(b.devStrings))
	for _, refs := range b.devStrings {
		b.pack(&stringEntry{ReferenceCount: uint8(len(refs)), References: refs})
	}

	hdr.ImportTableOffset = int32(b.pos())
	hdr.ImportsCount = uint16(len(b.imports))
	for i := range b.imports {
		imp := b.imports[i]
		imp.ReferenceCount = uint16(len(imp.References))
		b.pack(&imp)
	}

	hdr.ExportTableOffset = int32(b.pos())
	hdr.ExportsCount = uint16(len(b.exports))
	for i := range b.exports {
		b.pack(&b.exports[i].entry)
	}

	raw, err := restruct.Pack(b.order, &hdr)
	require.NoError(b.t, err)
	require.Len(b.t, raw, HeaderSize)
	copy(b.img, raw)
	return b.img
}

// program emits instrs as one export terminated by End and returns the
// ops the decoder should produce.
func (b *scriptBuilder) program(name uint32, instrs []instr) []*ScriptOp {
	b.beginExport(name, 0xF00D, 0, 0)
	var ops []*ScriptOp
	for _, in := range append(instrs, instr{code: OpEnd}) {
		off := b.emit(in)
		ops = append(ops, &ScriptOp{Offset: int32(off), Metadata: in.code.Metadata(), Operands: in.operands})
	}
	b.endExport()
	for i, op := range ops {
		if i+1 < len(ops) {
			op.Size = ops[i+1].Offset - op.Offset
		} else {
			op.Size = int32(b.pos()) - op.Offset
		}
	}
	return ops
}
