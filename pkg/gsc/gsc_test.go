package gsc

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/cerberus-go/pkg/decerr"
	"github.com/yoremi/cerberus-go/pkg/hashtable"
)

var testHashes = hashtable.FromMap("BlackOps3", map[uint32]string{
	0x1000: "main",
	0x1001: "self",
	0x1002: "zm_usermap",
	0xF00D: "sys",
})

func testContext() Context {
	return Context{Hashes: testHashes}
}

func bo3(t *testing.T) Variant {
	v, err := LookupVariant("bo3")
	require.NoError(t, err)
	return v
}

func TestLoadHeaderAndTables(t *testing.T) {
	b := newBuilder(t, bo3(t), "scripts/zm/zm_test.gsc")
	b.includes = []string{"scripts/zm/_zm_utility", "scripts/codescripts/struct", "scripts/shared/util_shared"}
	b.imports = []importEntry{
		{Name: 0x1002, Namespace: 0xBEEF, ParameterCount: 2, Flags: 1, References: []int32{0x60, 0x90}},
	}
	b.devStrings = [][]int32{{0x200}}

	b.beginExport(0x1000, 0xF00D, 1, ExportAutoExec|ExportPrivate)
	b.emit(instr{code: OpGetString, operands: []Operand{StringOperand{Kind: StringLiteral, Value: "hello", Resolved: true}}})
	b.emit(instr{code: OpEnd})
	b.endExport()
	data := b.finish()

	s, err := Load(data, bo3(t), testContext())
	require.NoError(t, err)

	assert.Equal(t, "scripts/zm/zm_test.gsc", s.FilePath)
	assert.Equal(t, "bo3", s.Variant)
	assert.Equal(t, "BlackOps3", s.Game)
	assert.Equal(t, scriptMagic, s.Header.Magic)
	assert.Equal(t, []string{"scripts/codescripts/struct", "scripts/shared/util_shared", "scripts/zm/_zm_utility"}, s.Includes)

	require.Len(t, s.Strings, 2)
	assert.Equal(t, "hello", s.Strings[0].Value)
	assert.Equal(t, []int32{HeaderSize + 2}, s.Strings[0].References)
	assert.False(t, s.Strings[0].Debug)
	assert.Equal(t, DevStringPlaceholder, s.Strings[1].Value)
	assert.True(t, s.Strings[1].Debug)

	str, ok := s.StringAt(0x200)
	require.True(t, ok)
	assert.Equal(t, DevStringPlaceholder, str.Value)
	_, ok = s.StringAt(0x201)
	assert.False(t, ok)

	require.Len(t, s.Imports, 1)
	imp := s.Imports[0]
	assert.Equal(t, "zm_usermap", imp.Name)
	assert.Equal(t, "namespace_beef", imp.Namespace)
	assert.Equal(t, uint8(2), imp.ParameterCount)
	assert.Equal(t, []int32{0x60, 0x90}, imp.References)

	require.Len(t, s.Exports, 1)
	exp := s.Exports[0]
	assert.Equal(t, "main", exp.Name)
	assert.Equal(t, "sys", exp.Namespace)
	assert.Equal(t, uint8(1), exp.ParameterCount)
	assert.Equal(t, "AutoExec|Private", exp.Flags.String())
	assert.Equal(t, int32(HeaderSize), exp.ByteCodeOffset)
	// GetString (opcode, padding, 2-byte slot) then End.
	assert.Equal(t, int32(5), exp.ByteCodeSize)
	require.Len(t, exp.Ops, 2)
	assert.Equal(t, OpEnd, exp.Ops[1].Opcode())
	assert.NoError(t, exp.Err)
}

func TestAlignment(t *testing.T) {
	b := newBuilder(t, bo3(t), "align.gsc")
	b.program(0x1000, []instr{
		{code: OpGetByte, operands: []Operand{IntOperand{1}}},
		{code: OpGetInteger, operands: []Operand{IntOperand{5}}},
		{code: OpJump, operands: []Operand{IntOperand{0x10}}},
	})
	s, err := Load(b.finish(), bo3(t), testContext())
	require.NoError(t, err)

	ops := s.Exports[0].Ops
	require.Len(t, ops, 4)
	// GetByte at 0x48: opcode + byte.
	assert.Equal(t, int32(0x48), ops[0].Offset)
	assert.Equal(t, int32(2), ops[0].Size)
	// GetInteger at 0x4A: opcode, two padding bytes, int at 0x4C.
	assert.Equal(t, int32(0x4A), ops[1].Offset)
	assert.Equal(t, int32(6), ops[1].Size)
	// Jump at 0x50: opcode, one padding byte, short at 0x52.
	assert.Equal(t, int32(0x50), ops[2].Offset)
	assert.Equal(t, int32(4), ops[2].Size)

	target, ok := ops[2].JumpTarget(bo3(t))
	require.True(t, ok)
	assert.Equal(t, int32(0x54+0x10), target)

	_, ok = ops[1].JumpTarget(bo3(t))
	assert.False(t, ok, "GetInteger is not a jump")
}

// Jump displacements count from the end of the instruction, operand padding
// included, which is where the engine's instruction pointer sits when it
// applies them. Measuring from the opcode byte lands short by the
// instruction size.
func TestJumpTargetIsEndRelative(t *testing.T) {
	jump := OpJump.Metadata()
	tests := []struct {
		offset, size int32
		disp         int64
	}{
		{0x48, 4, 0x10},
		{0x49, 3, 0x10},
		{0x80, 4, -0x20},
		{0x100, 4, 0},
	}
	for _, tt := range tests {
		op := &ScriptOp{Offset: tt.offset, Size: tt.size, Metadata: jump, Operands: []Operand{IntOperand{tt.disp}}}
		target, ok := op.JumpTarget(bo3(t))
		require.True(t, ok)
		assert.Equal(t, tt.offset+tt.size+int32(tt.disp), target, "jump at 0x%x", tt.offset)
		assert.NotEqual(t, tt.offset+int32(tt.disp), target, "jump at 0x%x", tt.offset)
	}
}

func TestTableErrorWithoutScriptName(t *testing.T) {
	b := newBuilder(t, bo3(t), "")
	img := b.finish()
	// One include whose table lies far past the end of the image.
	img[66] = 1
	binary.LittleEndian.PutUint32(img[12:], 0x7FFFFFF0)

	_, err := Load(img, bo3(t), testContext())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "tables: "), "got %q", err.Error())
	assert.True(t, errors.Is(err, decerr.ErrCorruption), "got %v", err)
}

func TestDecodeOperandKinds(t *testing.T) {
	instrs := []instr{
		{code: OpGetNegByte, operands: []Operand{IntOperand{-7}}},
		{code: OpGetNegUnsignedShort, operands: []Operand{IntOperand{-0x1234}}},
		{code: OpGetSignedByte, operands: []Operand{IntOperand{-3}}},
		{code: OpGetUnsignedInteger, operands: []Operand{IntOperand{0xFFFFFFF0}}},
		{code: OpGetFloat, operands: []Operand{FloatOperand{2.5}}},
		{code: OpGetVector, operands: []Operand{VectorOperand{1, -2, 0.5}}},
		{code: OpVectorConstant, operands: []Operand{VectorOperand{1, 0, -1}}},
		{code: OpGetHash, operands: []Operand{NameOperand{NameHash, 0xABC, "hash_abc"}}},
		{code: OpGetIString, operands: []Operand{StringOperand{StringLocalized, "ZM_HINT", true}}},
		{code: OpGetString, operands: []Operand{StringOperand{StringLiteral, "", false}}},
		{code: OpGetAnimation, operands: []Operand{StringOperand{StringAnimation, "pb_stand_alert", true}}},
		{code: OpCreateLocalVariable, operands: []Operand{NameOperand{NameVariable, 0x1001, "self"}}},
		{code: OpGetFunction, operands: []Operand{NameOperand{NameFunctionRef, 0x77, "function_77"}}},
		{code: OpScriptFunctionCall, operands: []Operand{NameOperand{NameFunction, 0x1000, "main"}}},
		{code: OpClassFunctionCall, operands: []Operand{NameOperand{NameFunction, 0x99, "function_99"}, IntOperand{3}}},
		{code: OpSafeCreateLocalVariables, operands: []Operand{
			NameOperand{NameVariable, 0x1001, "self"},
			NameOperand{NameVariable, 0x5, "var_5"},
		}},
	}

	b := newBuilder(t, bo3(t), "kinds.gsc")
	want := b.program(0x1000, instrs)
	s, err := Load(b.finish(), bo3(t), testContext())
	require.NoError(t, err)
	assert.Equal(t, want, s.Exports[0].Ops)
}

func TestBigEndianVariant(t *testing.T) {
	v, err := LookupVariant("bo3-lastgen")
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, v.ByteOrder())

	b := newBuilder(t, v, "scripts/console.gsc")
	want := b.program(0x1000, []instr{
		{code: OpGetUnsignedShort, operands: []Operand{IntOperand{0x1234}}},
		{code: OpGetInteger, operands: []Operand{IntOperand{-100000}}},
		{code: OpEvalFieldVariable, operands: []Operand{NameOperand{NameVariable, 0x1001, "self"}}},
	})
	s, err := Load(b.finish(), v, testContext())
	require.NoError(t, err)
	assert.Equal(t, "scripts/console.gsc", s.FilePath)
	assert.Equal(t, want, s.Exports[0].Ops)
}

// seedInstr derives a valid instruction deterministically from a seed.
func seedInstr(codes []Opcode, seed uint32) instr {
	code := codes[seed%uint32(len(codes))]
	v := seed >> 8
	in := instr{code: code}
	name := func(kind NameKind, prefix string) NameOperand {
		h := 0x1000 + v%4
		return NameOperand{Kind: kind, Hash: h, Name: testHashes.Resolve(h, prefix)}
	}

	switch code.Metadata().Operand {
	case KindNone:
	case KindInt8:
		in.operands = []Operand{IntOperand{int64(int8(v))}}
	case KindUInt8:
		val := int64(uint8(v))
		if code == OpGetNegByte {
			val = -val
		}
		in.operands = []Operand{IntOperand{val}}
	case KindInt16:
		in.operands = []Operand{IntOperand{int64(int16(v))}}
	case KindUInt16:
		val := int64(uint16(v))
		if code == OpGetNegUnsignedShort {
			val = -val
		}
		in.operands = []Operand{IntOperand{val}}
	case KindInt32:
		in.operands = []Operand{IntOperand{int64(int32(seed))}}
	case KindUInt32:
		in.operands = []Operand{IntOperand{int64(seed)}}
	case KindHash:
		in.operands = []Operand{name(NameHash, hashtable.PrefixHash)}
	case KindVariableName:
		in.operands = []Operand{name(NameVariable, hashtable.PrefixVariable)}
	case KindFunctionPointer:
		in.operands = []Operand{name(NameFunctionRef, hashtable.PrefixFunction)}
	case KindFloat:
		in.operands = []Operand{FloatOperand{float32(v%1000) / 4}}
	case KindVector:
		in.operands = []Operand{VectorOperand{float32(v % 7), -float32(v % 5), 0.25}}
	case KindVectorFlags:
		axis := func(n uint32) float32 { return float32(int(n%3) - 1) }
		in.operands = []Operand{VectorOperand{axis(v), axis(v / 3), axis(v / 9)}}
	case KindString:
		switch {
		case code == OpGetAnimation:
			in.operands = []Operand{StringOperand{StringAnimation, fmt.Sprintf("anim_%d", v%5), true}}
		case v%3 == 0:
			kind := StringLiteral
			if code == OpGetIString {
				kind = StringLocalized
			}
			in.operands = []Operand{StringOperand{Kind: kind}}
		default:
			kind := StringLiteral
			if code == OpGetIString {
				kind = StringLocalized
			}
			in.operands = []Operand{StringOperand{kind, fmt.Sprintf("str_%d", v%4), true}}
		}
	case KindCall:
		in.operands = []Operand{name(NameFunction, hashtable.PrefixFunction)}
		if code == OpClassFunctionCall || code == OpClassFunctionThreadCall {
			in.operands = append(in.operands, IntOperand{int64(uint8(v))})
		}
	case KindVariableList:
		for i := uint32(0); i < v%4; i++ {
			h := 0x1000 + (v+i)%6
			in.operands = append(in.operands, NameOperand{NameVariable, h, testHashes.Resolve(h, hashtable.PrefixVariable)})
		}
	}
	return in
}

func encodableOpcodes() []Opcode {
	var codes []Opcode
	for op := OpInvalid + 1; op < opCount; op++ {
		if op.Metadata().Operand != KindSwitchEnd {
			codes = append(codes, op)
		}
	}
	return codes
}

func TestRoundTripProperty(t *testing.T) {
	codes := encodableOpcodes()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decoding reproduces emitted offsets and operands", prop.ForAll(
		func(seeds []uint32) bool {
			instrs := make([]instr, len(seeds))
			for i, seed := range seeds {
				instrs[i] = seedInstr(codes, seed)
			}
			b := newBuilder(t, bo3(t), "prop.gsc")
			want := b.program(0x1000, instrs)
			s, err := Load(b.finish(), bo3(t), testContext())
			if err != nil {
				t.Logf("load: %v", err)
				return false
			}
			return assert.ObjectsAreEqual(want, s.Exports[0].Ops)
		},
		gen.SliceOf(gen.UInt32()),
	))

	properties.TestingRun(t)
}

func TestOpcodeTable(t *testing.T) {
	table := bo3(t).Opcodes()
	seen := map[Opcode]bool{}
	for i := 0; i < 256; i++ {
		op := table.Lookup(byte(i))
		if op == OpInvalid {
			continue
		}
		meta := op.Metadata()
		assert.True(t, meta.Operand.Valid(), "0x%02x %v has operand kind %v", i, op, meta.Operand)
		assert.NotEmpty(t, meta.Name)
		assert.Equal(t, op, meta.Opcode)
		assert.False(t, seen[op], "%v mapped twice", op)
		seen[op] = true

		b, ok := table.Encode(op)
		assert.True(t, ok)
		assert.Equal(t, byte(i), b)
	}
	for op := OpInvalid + 1; op < opCount; op++ {
		assert.True(t, seen[op], "%v has no byte value", op)
	}
	assert.Equal(t, OpInvalid, table.Lookup(0x79))
	assert.Equal(t, OpInvalid, table.Lookup(0xFF))
}

func TestSwitchDefaultAndOrder(t *testing.T) {
	tests := []struct {
		name   string
		values []int32
		want   []SwitchCase
	}{
		{
			name:   "zero last is default",
			values: []int32{5, 2, 0},
			want: []SwitchCase{
				{CaseValue: "2", ByteCodeOffset: 0x100, OriginalIndex: 1},
				{CaseValue: "default", ByteCodeOffset: 0x200, OriginalIndex: 2, IsDefault: true},
				{CaseValue: "5", ByteCodeOffset: 0x300, OriginalIndex: 0},
			},
		},
		{
			name:   "zero not last is a value",
			values: []int32{5, 0, 2},
			want: []SwitchCase{
				{CaseValue: "0", ByteCodeOffset: 0x100, OriginalIndex: 1},
				{CaseValue: "2", ByteCodeOffset: 0x200, OriginalIndex: 2},
				{CaseValue: "5", ByteCodeOffset: 0x300, OriginalIndex: 0},
			},
		},
	}
	targets := []int{0x300, 0x100, 0x200}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t, bo3(t), "switch.gsc")
			b.beginExport(0x1000, 0xF00D, 0, 0)
			var cases []caseDef
			for i, v := range tt.values {
				cases = append(cases, caseDef{value: v, target: targets[i]})
			}
			b.emitSwitch(cases)
			b.emit(instr{code: OpEnd})
			b.endExport()

			s, err := Load(b.finish(), bo3(t), testContext())
			require.NoError(t, err)
			ops := s.Exports[0].Ops
			require.Len(t, ops, 2)
			assert.Equal(t, OpEndSwitch, ops[0].Opcode())
			assert.Equal(t, tt.want, ops[0].Cases())
		})
	}
}

func TestSwitchStringCases(t *testing.T) {
	b := newBuilder(t, bo3(t), "switch.gsc")
	b.beginExport(0x1000, 0xF00D, 0, 0)
	// A string case in last position has a zero slot; it must not be
	// taken for the default case.
	b.emitSwitch([]caseDef{
		{value: 3, target: 0x180},
		{str: "alpha", target: 0x80},
		{str: "beta", target: 0x100},
	})
	b.emit(instr{code: OpEnd})
	b.endExport()

	s, err := Load(b.finish(), bo3(t), testContext())
	require.NoError(t, err)
	assert.Equal(t, []SwitchCase{
		{CaseValue: "alpha", ByteCodeOffset: 0x80, OriginalIndex: 1, IsString: true},
		{CaseValue: "beta", ByteCodeOffset: 0x100, OriginalIndex: 2, IsString: true},
		{CaseValue: "3", ByteCodeOffset: 0x180, OriginalIndex: 0},
	}, s.Exports[0].Ops[0].Cases())
}

func TestSwitchTargetFormula(t *testing.T) {
	b := newBuilder(t, bo3(t), "switch.gsc")
	b.beginExport(0x1000, 0xF00D, 0, 0)
	// EndSwitch at 0x48, count at 0x4C, value slot at 0x50, displacement
	// slot at 0x54.
	b.emitSwitch([]caseDef{{value: 9, target: 0x68}})
	b.emit(instr{code: OpEnd})
	b.endExport()
	data := b.finish()
	assert.Equal(t, uint32(0x10), binary.LittleEndian.Uint32(data[0x54:]))

	s, err := Load(data, bo3(t), testContext())
	require.NoError(t, err)
	cases := s.Exports[0].Ops[0].Cases()
	require.Len(t, cases, 1)
	assert.Equal(t, int32(0x54+0x10+4), cases[0].ByteCodeOffset)
	assert.Equal(t, int32(0x58-0x48), s.Exports[0].Ops[0].Size)
}

func TestInvalidOpcode(t *testing.T) {
	build := func() []byte {
		b := newBuilder(t, bo3(t), "broken.gsc")
		b.beginExport(0x1000, 0xF00D, 0, 0)
		b.emit(instr{code: OpGetZero})
		b.u8(0x79)
		b.emit(instr{code: OpEnd})
		b.endExport()
		b.program(0x1001, []instr{{code: OpGetSelf}})
		return b.finish()
	}

	_, err := Load(build(), bo3(t), testContext())
	require.Error(t, err)
	assert.True(t, errors.Is(err, decerr.ErrCorruption), "got %v", err)
	var xerr *ExportError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "main", xerr.Export)
	assert.Equal(t, int32(HeaderSize), xerr.Offset)

	ctx := testContext()
	ctx.Mode = BestEffort
	s, err := Load(build(), bo3(t), ctx)
	require.NoError(t, err)
	require.Len(t, s.Exports, 2)
	assert.True(t, errors.Is(s.Exports[0].Err, decerr.ErrCorruption))
	assert.Len(t, s.Exports[0].Ops, 1, "ops before the failure are kept")
	assert.NoError(t, s.Exports[1].Err)
	assert.Len(t, s.Exports[1].Ops, 2)
}

func TestChecksumNeverMatches(t *testing.T) {
	b := newBuilder(t, bo3(t), "nocrc.gsc")
	b.program(0x1000, []instr{{code: OpGetZero}})
	data := b.finish()
	// Corrupt the byte code so the stored checksum no longer matches any
	// prefix.
	data[HeaderSize] ^= 0xFF

	_, err := Load(data, bo3(t), testContext())
	assert.True(t, errors.Is(err, decerr.ErrCorruption), "got %v", err)
	var xerr *ExportError
	assert.True(t, errors.As(err, &xerr))
}

func TestUnknownOperandKind(t *testing.T) {
	b := newBuilder(t, bo3(t), "kind.gsc")
	b.program(0x1000, nil)
	s := newSession(b.finish(), bo3(t), testContext())
	defer s.close()

	op := &ScriptOp{Metadata: OpMetadata{Name: "Bogus", Operand: kindCount}}
	err := s.decodeOperands(op)
	assert.True(t, errors.Is(err, decerr.ErrDecode), "got %v", err)
}

func TestScanByteCodeSize(t *testing.T) {
	data := []byte("\x00\x01\x02\x03\x04\x05\x06\x07\x08\x09")
	n, err := ScanByteCodeSize(data, 2, crc32.ChecksumIEEE(data[2:6]))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = ScanByteCodeSize(data, 11, 0)
	assert.True(t, errors.Is(err, decerr.ErrCorruption))
}

func TestScanByteCodeSizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("scan reports the prefix a checksum was computed over", prop.ForAll(
		func(data []byte, k int) bool {
			k = k%len(data) + 1
			sum := crc32.ChecksumIEEE(data[:k])
			n, err := ScanByteCodeSize(data, 0, sum)
			// An earlier prefix may collide; the scan must stop at the
			// first one, which is never longer than k.
			return err == nil && n <= k && crc32.ChecksumIEEE(data[:n]) == sum
		},
		gen.SliceOfN(64, gen.UInt8()).SuchThat(func(d []byte) bool { return len(d) > 0 }),
		gen.IntRange(0, 1<<20),
	))

	properties.Property("scan fails without reading past the end", prop.ForAll(
		func(data []byte) bool {
			prefixes := map[uint32]bool{}
			for i := 1; i <= len(data); i++ {
				prefixes[crc32.ChecksumIEEE(data[:i])] = true
			}
			sum := uint32(0xDEADBEEF)
			for prefixes[sum] {
				sum++
			}
			_, err := ScanByteCodeSize(data, 0, sum)
			return errors.Is(err, decerr.ErrCorruption)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestIncludesSortedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MaxSize = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("includes come back sorted", prop.ForAll(
		func(names []string) bool {
			b := newBuilder(t, bo3(t), "inc.gsc")
			b.includes = names
			b.program(0x1000, nil)
			s, err := Load(b.finish(), bo3(t), testContext())
			if err != nil {
				return false
			}
			want := append([]string(nil), names...)
			sort.Strings(want)
			return sort.StringsAreSorted(s.Includes) && assert.ObjectsAreEqual(want, s.Includes)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

func TestVariants(t *testing.T) {
	assert.Equal(t, []string{"bo3", "bo3-lastgen"}, Variants())
	_, err := LookupVariant("bo4")
	assert.True(t, errors.Is(err, decerr.ErrUnsupportedVariant))

	_, err = Load([]byte{}, nil, testContext())
	assert.True(t, errors.Is(err, decerr.ErrUnsupportedVariant))
}

func TestTruncatedHeader(t *testing.T) {
	_, err := Load(make([]byte, 20), bo3(t), testContext())
	assert.True(t, errors.Is(err, decerr.ErrCorruption), "got %v", err)
}

func TestExportFlagsString(t *testing.T) {
	assert.Equal(t, "None", ExportFlags(0).String())
	assert.Equal(t, "Linked|Event", (ExportLinked | ExportEvent).String())
	assert.Equal(t, "Variadic|0x80", ExportFlags(0xA0).String())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("best-effort")
	require.NoError(t, err)
	assert.Equal(t, BestEffort, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)
	_, err = ParseMode("yolo")
	assert.Error(t, err)
}
