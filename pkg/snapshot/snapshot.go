// Package snapshot serializes a decoded script model for the renderers that
// turn it into disassembly or source text.
//
// The CBOR document is self-contained: operand variants are flattened into
// a tagged record and jump targets are precomputed, so a consumer needs no
// knowledge of the opcode table or variant rules.
package snapshot

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/gsc"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Document is the serialized form of a decoded script.
type Document struct {
	Variant  string     `cbor:"1,keyasint"`
	Game     string     `cbor:"2,keyasint"`
	FilePath string     `cbor:"3,keyasint"`
	Header   gsc.Header `cbor:"4,keyasint"`
	Includes []string   `cbor:"5,keyasint,omitempty"`
	Strings  []String   `cbor:"6,keyasint,omitempty"`
	Imports  []Import   `cbor:"7,keyasint,omitempty"`
	Exports  []Export   `cbor:"8,keyasint,omitempty"`
}

// String is a string-table entry.
type String struct {
	Offset     uint32  `cbor:"1,keyasint"`
	Value      string  `cbor:"2,keyasint"`
	References []int32 `cbor:"3,keyasint,omitempty"`
	Debug      bool    `cbor:"4,keyasint,omitempty"`
}

// Import is an import-table entry.
type Import struct {
	Name           string  `cbor:"1,keyasint"`
	Namespace      string  `cbor:"2,keyasint"`
	NameHash       uint32  `cbor:"3,keyasint"`
	NamespaceHash  uint32  `cbor:"4,keyasint"`
	ParameterCount uint8   `cbor:"5,keyasint"`
	Flags          uint8   `cbor:"6,keyasint"`
	References     []int32 `cbor:"7,keyasint,omitempty"`
}

// Export is an exported function with its instructions.
type Export struct {
	Name           string `cbor:"1,keyasint"`
	Namespace      string `cbor:"2,keyasint"`
	NameHash       uint32 `cbor:"3,keyasint"`
	NamespaceHash  uint32 `cbor:"4,keyasint"`
	Checksum       uint32 `cbor:"5,keyasint"`
	ByteCodeOffset int32  `cbor:"6,keyasint"`
	ByteCodeSize   int32  `cbor:"7,keyasint"`
	ParameterCount uint8  `cbor:"8,keyasint"`
	Flags          string `cbor:"9,keyasint"`
	Error          string `cbor:"10,keyasint,omitempty"`
	Ops            []Op   `cbor:"11,keyasint,omitempty"`
}

// Op is one instruction.
type Op struct {
	Offset     int32     `cbor:"1,keyasint"`
	Size       int32     `cbor:"2,keyasint"`
	Opcode     string    `cbor:"3,keyasint"`
	Operands   []Operand `cbor:"4,keyasint,omitempty"`
	JumpTarget *int32    `cbor:"5,keyasint,omitempty"`
}

// Operand kinds in a Document.
const (
	OperandInt     = "int"
	OperandFloat   = "float"
	OperandVector  = "vector"
	OperandString  = "string"
	OperandIStr    = "istring"
	OperandAnim    = "anim"
	OperandVar     = "var"
	OperandFunc    = "func"
	OperandFuncRef = "funcref"
	OperandHash    = "hash"
	OperandCase    = "case"
)

// Operand is a flattened gsc.Operand. Only the fields of its Kind are set.
type Operand struct {
	Kind     string    `cbor:"1,keyasint"`
	Int      int64     `cbor:"2,keyasint,omitempty"`
	Float    float32   `cbor:"3,keyasint,omitempty"`
	Vector   []float32 `cbor:"4,keyasint,omitempty"`
	Text     string    `cbor:"5,keyasint,omitempty"`
	Hash     uint32    `cbor:"6,keyasint,omitempty"`
	Resolved bool      `cbor:"7,keyasint,omitempty"`
	Target   int32     `cbor:"8,keyasint,omitempty"`
	Index    int       `cbor:"9,keyasint,omitempty"`
	Default  bool      `cbor:"10,keyasint,omitempty"`
	IsString bool      `cbor:"11,keyasint,omitempty"`
}

// FromScript builds the document for s. v supplies jump-target rules.
func FromScript(s *gsc.Script, v gsc.Variant) *Document {
	doc := &Document{
		Variant:  s.Variant,
		Game:     s.Game,
		FilePath: s.FilePath,
		Header:   s.Header,
		Includes: s.Includes,
	}
	for _, str := range s.Strings {
		doc.Strings = append(doc.Strings, String{
			Offset:     str.Offset,
			Value:      str.Value,
			References: str.References,
			Debug:      str.Debug,
		})
	}
	for _, imp := range s.Imports {
		doc.Imports = append(doc.Imports, Import{
			Name:           imp.Name,
			Namespace:      imp.Namespace,
			NameHash:       imp.NameHash,
			NamespaceHash:  imp.NamespaceHash,
			ParameterCount: imp.ParameterCount,
			Flags:          imp.Flags,
			References:     imp.References,
		})
	}
	for _, exp := range s.Exports {
		e := Export{
			Name:           exp.Name,
			Namespace:      exp.Namespace,
			NameHash:       exp.NameHash,
			NamespaceHash:  exp.NamespaceHash,
			Checksum:       exp.Checksum,
			ByteCodeOffset: exp.ByteCodeOffset,
			ByteCodeSize:   exp.ByteCodeSize,
			ParameterCount: exp.ParameterCount,
			Flags:          exp.Flags.String(),
		}
		if exp.Err != nil {
			e.Error = exp.Err.Error()
		}
		for _, op := range exp.Ops {
			e.Ops = append(e.Ops, fromOp(op, v))
		}
		doc.Exports = append(doc.Exports, e)
	}
	return doc
}

func fromOp(op *gsc.ScriptOp, v gsc.Variant) Op {
	out := Op{Offset: op.Offset, Size: op.Size, Opcode: op.Metadata.Name}
	if target, ok := op.JumpTarget(v); ok {
		out.JumpTarget = &target
	}
	for _, o := range op.Operands {
		out.Operands = append(out.Operands, fromOperand(o))
	}
	return out
}

func fromOperand(o gsc.Operand) Operand {
	switch o := o.(type) {
	case gsc.IntOperand:
		return Operand{Kind: OperandInt, Int: o.Value}
	case gsc.FloatOperand:
		return Operand{Kind: OperandFloat, Float: o.Value}
	case gsc.VectorOperand:
		return Operand{Kind: OperandVector, Vector: []float32{o.X, o.Y, o.Z}}
	case gsc.StringOperand:
		kind := OperandString
		switch o.Kind {
		case gsc.StringLocalized:
			kind = OperandIStr
		case gsc.StringAnimation:
			kind = OperandAnim
		}
		return Operand{Kind: kind, Text: o.Value, Resolved: o.Resolved}
	case gsc.NameOperand:
		kind := OperandVar
		switch o.Kind {
		case gsc.NameFunction:
			kind = OperandFunc
		case gsc.NameFunctionRef:
			kind = OperandFuncRef
		case gsc.NameHash:
			kind = OperandHash
		}
		return Operand{Kind: kind, Text: o.Name, Hash: o.Hash}
	case gsc.SwitchCase:
		return Operand{
			Kind:     OperandCase,
			Text:     o.CaseValue,
			Target:   o.ByteCodeOffset,
			Index:    o.OriginalIndex,
			Default:  o.IsDefault,
			IsString: o.IsString,
		}
	}
	panic(fmt.Sprintf("snapshot: unhandled operand %T", o))
}

// Marshal encodes doc as canonical CBOR.
func Marshal(doc *Document) ([]byte, error) {
	return cborEncMode.Marshal(doc)
}

// Unmarshal decodes a CBOR document.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "snapshot: unmarshal document")
	}
	return &doc, nil
}

// WriteCBOR writes doc to w.
func WriteCBOR(w io.Writer, doc *Document) error {
	return errors.Wrap(cborEncMode.NewEncoder(w).Encode(doc), "snapshot: encode document")
}

// ReadCBOR reads one document from r.
func ReadCBOR(r io.Reader) (*Document, error) {
	var doc Document
	if err := cbor.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "snapshot: decode document")
	}
	return &doc, nil
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump writes a human-readable tree of doc to w.
func Dump(w io.Writer, doc *Document) {
	dumpConfig.Fdump(w, doc)
}
