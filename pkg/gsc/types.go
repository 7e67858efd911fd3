// Package gsc decodes compiled GSC/CSC script byte code.
//
// A decode session parses the fixed header, resolves the include, string,
// import and export tables, then walks each export's byte code into a list
// of ScriptOp values with resolved operands. The resulting Script is a
// finished, read-only model; rendering it as disassembly or source is left
// to the caller.
package gsc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/encoding"
	"github.com/yoremi/cerberus-go/pkg/hashtable"
)

// --- Decode context ---

// Mode selects how a failing export affects the rest of the file.
type Mode int

const (
	Strict     Mode = iota // first failing export aborts the file
	BestEffort             // failing exports keep their error, decoding continues
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case BestEffort:
		return "best-effort"
	default:
		return "[unknown]"
	}
}

// ParseMode returns the mode for a name accepted by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "best-effort", "besteffort", "lenient":
		return BestEffort, nil
	}
	return Strict, errors.Errorf("unknown decode mode %q", s)
}

// Context is the read-only state shared by every call of a decode session.
// The hash table may be shared between sessions.
type Context struct {
	Hashes   *hashtable.Table
	Encoding encoding.Type
	Mode     Mode
}

// --- Header and tables ---

// Header is the fixed 72-byte record at the start of a script.
type Header struct {
	Magic                  [8]byte
	SourceChecksum         uint32
	IncludeTableOffset     int32
	AnimTreeTableOffset    int32
	ByteCodeOffset         int32
	StringTableOffset      int32
	DebugStringTableOffset int32
	ExportTableOffset      int32
	ImportTableOffset      int32
	FixupTableOffset       int32
	ProfileTableOffset     int32
	ByteCodeSize           int32
	NameOffset             uint16
	StringCount            uint16
	ExportsCount           uint16
	ImportsCount           uint16
	FixupCount             uint16
	ProfileCount           uint16
	DebugStringCount       uint16
	IncludeCount           uint8
	AnimTreeCount          uint8
	Flags                  int32
}

// HeaderSize is the on-disk size of Header.
const HeaderSize = 0x48

// DevStringPlaceholder stands in for the text of dev-block strings, which
// live in a separate debug database.
const DevStringPlaceholder = "Dev Block strings are not supported"

// ScriptString is a string-table entry. References are the byte-code
// offsets that cite it.
type ScriptString struct {
	Offset     uint32
	Value      string
	References []int32
	Debug      bool
}

// ScriptImport is an external function referenced by the byte code.
type ScriptImport struct {
	Name           string
	Namespace      string
	NameHash       uint32
	NamespaceHash  uint32
	ParameterCount uint8
	Flags          uint8
	References     []int32
}

// ExportFlags describes an exported function.
type ExportFlags uint8

const (
	ExportLinked          ExportFlags = 0x01
	ExportAutoExec        ExportFlags = 0x02
	ExportPrivate         ExportFlags = 0x04
	ExportClassMember     ExportFlags = 0x08
	ExportClassDestructor ExportFlags = 0x10
	ExportVariadic        ExportFlags = 0x20
	ExportEvent           ExportFlags = 0x40
)

var exportFlagNames = []struct {
	flag ExportFlags
	name string
}{
	{ExportLinked, "Linked"},
	{ExportAutoExec, "AutoExec"},
	{ExportPrivate, "Private"},
	{ExportClassMember, "ClassMember"},
	{ExportClassDestructor, "ClassDestructor"},
	{ExportVariadic, "Variadic"},
	{ExportEvent, "Event"},
}

func (f ExportFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, fn := range exportFlagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			f &^= fn.flag
		}
	}
	if f != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(f)))
	}
	return strings.Join(parts, "|")
}

// ScriptExport is an exported function. ByteCodeSize is not stored on disk;
// it is recovered from Checksum by ScanByteCodeSize.
type ScriptExport struct {
	Checksum       uint32
	ByteCodeOffset int32
	ByteCodeSize   int32
	Name           string
	Namespace      string
	NameHash       uint32
	NamespaceHash  uint32
	ParameterCount uint8
	Flags          ExportFlags
	Ops            []*ScriptOp

	// Err is set in BestEffort mode when the export could not be decoded.
	// Ops then holds whatever decoded before the failure.
	Err error
}

// Script is the decoded model of one compiled script.
type Script struct {
	Variant  string
	Game     string
	FilePath string
	Header   Header
	Includes []string
	Strings  []ScriptString
	Imports  []ScriptImport
	Exports  []*ScriptExport

	stringRefs map[int32]int
}

// StringAt returns the string whose reference list contains ref. When more
// than one string cites the same offset, the first loaded wins.
func (s *Script) StringAt(ref int32) (*ScriptString, bool) {
	idx, ok := s.stringRefs[ref]
	if !ok {
		return nil, false
	}
	return &s.Strings[idx], true
}

func (s *Script) indexStrings() {
	s.stringRefs = make(map[int32]int)
	for i, str := range s.Strings {
		for _, ref := range str.References {
			if _, dup := s.stringRefs[ref]; !dup {
				s.stringRefs[ref] = i
			}
		}
	}
}

// --- Instructions ---

// ScriptOp is one decoded instruction.
type ScriptOp struct {
	Offset   int32 // absolute offset of the opcode byte
	Size     int32 // bytes from Offset to the end of the last operand
	Metadata OpMetadata
	Operands []Operand
}

// Opcode returns the instruction's opcode.
func (op *ScriptOp) Opcode() Opcode { return op.Metadata.Opcode }

// End returns the offset just past the instruction.
func (op *ScriptOp) End() int32 { return op.Offset + op.Size }

// JumpTarget returns the absolute target of a jump-category instruction.
// The displacement is relative to the end of the instruction.
func (op *ScriptOp) JumpTarget(v Variant) (int32, bool) {
	if op.Metadata.Category != CategoryJump || len(op.Operands) == 0 {
		return 0, false
	}
	disp, ok := op.Operands[0].(IntOperand)
	if !ok {
		return 0, false
	}
	return v.JumpLocation(op.End(), int32(disp.Value)), true
}

// Cases returns the switch cases of an EndSwitch instruction, sorted by
// target offset.
func (op *ScriptOp) Cases() []SwitchCase {
	var cases []SwitchCase
	for _, o := range op.Operands {
		if c, ok := o.(SwitchCase); ok {
			cases = append(cases, c)
		}
	}
	return cases
}

// Operand is a decoded instruction operand.
type Operand interface {
	isOperand()
}

// IntOperand is an integer immediate, a parameter count or a jump
// displacement.
type IntOperand struct{ Value int64 }

func (IntOperand) isOperand() {}

// FloatOperand is a float immediate.
type FloatOperand struct{ Value float32 }

func (FloatOperand) isOperand() {}

// VectorOperand is a three-component vector immediate.
type VectorOperand struct{ X, Y, Z float32 }

func (VectorOperand) isOperand() {}

// StringKind distinguishes the string operand forms.
type StringKind uint8

const (
	StringLiteral   StringKind = iota // "text"
	StringLocalized                   // &"REFERENCE"
	StringAnimation                   // %anim_name
)

// StringOperand is a string-table or animation-name reference. Resolved is
// false when no string-table entry cites the operand's offset.
type StringOperand struct {
	Kind     StringKind
	Value    string
	Resolved bool
}

func (StringOperand) isOperand() {}

// NameKind distinguishes hash-resolved operands.
type NameKind uint8

const (
	NameVariable    NameKind = iota // var_<hex>
	NameFunction                    // call target
	NameFunctionRef                 // &function pointer
	NameHash                        // #"hash" literal
)

// NameOperand is a hash resolved through the session's hash table.
type NameOperand struct {
	Kind NameKind
	Hash uint32
	Name string
}

func (NameOperand) isOperand() {}

// SwitchCase is one case of a switch table. CaseValue is the string label,
// the decimal value, or "default".
type SwitchCase struct {
	CaseValue      string
	ByteCodeOffset int32
	OriginalIndex  int
	IsDefault      bool
	IsString       bool
}

func (SwitchCase) isOperand() {}
