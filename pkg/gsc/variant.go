package gsc

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/decerr"
)

// Variant is a supported game/byte-code revision. The set is closed: every
// variant is defined in this package and registered in variants.
type Variant interface {
	// Name is the registry key, e.g. "bo3".
	Name() string
	// Game names the hash table and output directory for this variant.
	Game() string
	ByteOrder() binary.ByteOrder
	// Opcodes returns the variant's opcode byte table.
	Opcodes() *OpcodeTable
	// JumpLocation returns the absolute target of a jump whose
	// displacement `to` is relative to `from`.
	JumpLocation(from, to int32) int32

	loadHeader(s *session) error
	loadTables(s *session) error
	decodeOp(s *session, offset int) (*ScriptOp, error)
	resolveSwitch(s *session) ([]SwitchCase, error)
}

var variants = map[string]Variant{}

func register(v Variant) {
	variants[v.Name()] = v
}

func init() {
	register(&blackOps3{name: "bo3", order: binary.LittleEndian})
	register(&blackOps3{name: "bo3-lastgen", order: binary.BigEndian})
}

// LookupVariant returns the registered variant called name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return nil, errors.Wrapf(decerr.ErrUnsupportedVariant, "unknown script variant %q", name)
	}
	return v, nil
}

// Variants returns the registered variant names in sorted order.
func Variants() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// blackOps3 decodes Black Ops III byte code. The PC and last-gen console
// builds share the layout and opcode table and differ only in byte order.
type blackOps3 struct {
	name  string
	order binary.ByteOrder
}

func (v *blackOps3) Name() string                      { return v.name }
func (v *blackOps3) Game() string                      { return "BlackOps3" }
func (v *blackOps3) ByteOrder() binary.ByteOrder       { return v.order }
func (v *blackOps3) Opcodes() *OpcodeTable             { return &blackOps3Opcodes }
func (v *blackOps3) JumpLocation(from, to int32) int32 { return from + to }

func (v *blackOps3) loadHeader(s *session) error {
	return s.loadHeader()
}

func (v *blackOps3) loadTables(s *session) error {
	if err := s.loadIncludes(); err != nil {
		return err
	}
	if err := s.loadStrings(); err != nil {
		return err
	}
	if err := s.loadImports(); err != nil {
		return err
	}
	return s.loadExports()
}

func (v *blackOps3) decodeOp(s *session, offset int) (*ScriptOp, error) {
	return s.decodeOp(offset, v.Opcodes())
}

func (v *blackOps3) resolveSwitch(s *session) ([]SwitchCase, error) {
	return s.resolveSwitch()
}
