package gsc

import (
	"os"
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/binarray"
	"github.com/yoremi/cerberus-go/pkg/decerr"
	"github.com/yoremi/cerberus-go/pkg/encoding"
	"github.com/yoremi/cerberus-go/pkg/hashtable"
)

// session owns the cursor over one script buffer for the duration of a
// decode. Nothing in it outlives Load except the finished Script.
type session struct {
	v      Variant
	ctx    Context
	c      *binarray.Cursor
	script *Script
}

func newSession(data []byte, v Variant, ctx Context) *session {
	return &session{
		v:   v,
		ctx: ctx,
		c:   binarray.NewCursor(data, v.ByteOrder()),
		script: &Script{
			Variant: v.Name(),
			Game:    v.Game(),
		},
	}
}

func (s *session) close() {
	s.c = nil
}

// Load decodes a compiled script held in data.
func Load(data []byte, v Variant, ctx Context) (*Script, error) {
	if v == nil {
		return nil, errors.Wrap(decerr.ErrUnsupportedVariant, "no script variant selected")
	}
	s := newSession(data, v, ctx)
	defer s.close()

	if err := v.loadHeader(s); err != nil {
		return nil, errors.Wrap(err, "header")
	}
	if err := v.loadTables(s); err != nil {
		label := s.script.FilePath
		if label == "" {
			label = "tables"
		}
		return nil, errors.Wrap(err, label)
	}
	return s.script, nil
}

// LoadFile reads and decodes a compiled script from disk.
func LoadFile(path string, v Variant, ctx Context) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read '%s'", path)
	}
	script, err := Load(data, v, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return script, nil
}

// --- Helpers ---

func (s *session) resolve(hash uint32, prefix string) string {
	return s.ctx.Hashes.Resolve(hash, prefix)
}

// peekString reads the null-terminated string at off without moving the
// cursor and converts it from the context encoding.
func (s *session) peekString(off int) (string, error) {
	raw, err := s.c.PeekCString(off)
	if err != nil {
		return "", decerr.Corrupt(err, "string at 0x%x", off)
	}
	text, err := encoding.ToUTF8(raw, s.ctx.Encoding)
	if err != nil {
		return "", errors.Wrapf(decerr.ErrDecode, "string at 0x%x: %v", off, err)
	}
	return text, nil
}

func (s *session) seekTable(name string, off int32) error {
	if err := s.c.Seek(int(off)); err != nil {
		return decerr.Corrupt(err, "%s table", name)
	}
	return nil
}

// --- Header ---

func (s *session) loadHeader() error {
	h := &s.script.Header
	if err := s.c.Seek(0); err != nil {
		return decerr.Corrupt(err, "script header")
	}
	// The magic is kept but not checked; the variant was chosen by the caller.
	if err := s.c.Unpack(h); err != nil {
		return decerr.Corrupt(err, "script header")
	}
	name, err := s.peekString(int(h.NameOffset))
	if err != nil {
		return errors.Wrap(err, "script name")
	}
	s.script.FilePath = name
	return s.c.Seek(HeaderSize)
}

// --- Tables ---

func (s *session) loadIncludes() error {
	h := &s.script.Header
	includes := make([]string, 0, h.IncludeCount)
	if h.IncludeCount > 0 {
		if err := s.seekTable("include", h.IncludeTableOffset); err != nil {
			return err
		}
	}
	for i := 0; i < int(h.IncludeCount); i++ {
		ptr, err := s.c.ReadI32()
		if err != nil {
			return decerr.Corrupt(err, "include %d", i)
		}
		name, err := s.peekString(int(ptr))
		if err != nil {
			return errors.Wrapf(err, "include %d", i)
		}
		includes = append(includes, name)
	}
	sort.Strings(includes)
	s.script.Includes = includes
	return nil
}

type stringEntry struct {
	Offset         uint16
	ReferenceCount uint8 `struct:"sizeof=References"`
	Type           uint8
	References     []int32 `struct:"sizefrom=ReferenceCount"`
}

func (s *session) loadStrings() error {
	h := &s.script.Header
	strs := make([]ScriptString, 0, int(h.StringCount)+int(h.DebugStringCount))

	if h.StringCount > 0 {
		if err := s.seekTable("string", h.StringTableOffset); err != nil {
			return err
		}
	}
	for i := 0; i < int(h.StringCount); i++ {
		var e stringEntry
		if err := s.c.Unpack(&e); err != nil {
			return decerr.Corrupt(err, "string entry %d", i)
		}
		value, err := s.peekString(int(e.Offset))
		if err != nil {
			return errors.Wrapf(err, "string entry %d", i)
		}
		strs = append(strs, ScriptString{Offset: uint32(e.Offset), Value: value, References: e.References})
	}

	if h.DebugStringCount > 0 {
		if err := s.seekTable("debug string", h.DebugStringTableOffset); err != nil {
			return err
		}
	}
	for i := 0; i < int(h.DebugStringCount); i++ {
		var e stringEntry
		if err := s.c.Unpack(&e); err != nil {
			return decerr.Corrupt(err, "debug string entry %d", i)
		}
		strs = append(strs, ScriptString{
			Offset:     uint32(e.Offset),
			Value:      DevStringPlaceholder,
			References: e.References,
			Debug:      true,
		})
	}

	s.script.Strings = strs
	s.script.indexStrings()
	glog.V(2).Infof("%s: %d strings, %d dev strings", s.script.FilePath, h.StringCount, h.DebugStringCount)
	return nil
}

type importEntry struct {
	Name           uint32
	Namespace      uint32
	ReferenceCount uint16 `struct:"sizeof=References"`
	ParameterCount uint8
	Flags          uint8
	References     []int32 `struct:"sizefrom=ReferenceCount"`
}

func (s *session) loadImports() error {
	h := &s.script.Header
	imports := make([]ScriptImport, 0, h.ImportsCount)
	if h.ImportsCount > 0 {
		if err := s.seekTable("import", h.ImportTableOffset); err != nil {
			return err
		}
	}
	for i := 0; i < int(h.ImportsCount); i++ {
		var e importEntry
		if err := s.c.Unpack(&e); err != nil {
			return decerr.Corrupt(err, "import %d", i)
		}
		imports = append(imports, ScriptImport{
			Name:           s.resolve(e.Name, hashtable.PrefixFunction),
			Namespace:      s.resolve(e.Namespace, hashtable.PrefixNamespace),
			NameHash:       e.Name,
			NamespaceHash:  e.Namespace,
			ParameterCount: e.ParameterCount,
			Flags:          e.Flags,
			References:     e.References,
		})
	}
	s.script.Imports = imports
	return nil
}

type exportEntry struct {
	Checksum       uint32
	ByteCodeOffset int32
	Name           uint32
	Namespace      uint32
	ParameterCount uint8
	Flags          uint8
	Reserved       [2]byte
}

func (s *session) loadExports() error {
	h := &s.script.Header
	exports := make([]*ScriptExport, 0, h.ExportsCount)
	if h.ExportsCount > 0 {
		if err := s.seekTable("export", h.ExportTableOffset); err != nil {
			return err
		}
	}
	for i := 0; i < int(h.ExportsCount); i++ {
		var e exportEntry
		if err := s.c.Unpack(&e); err != nil {
			return decerr.Corrupt(err, "export %d", i)
		}
		exports = append(exports, &ScriptExport{
			Checksum:       e.Checksum,
			ByteCodeOffset: e.ByteCodeOffset,
			Name:           s.resolve(e.Name, hashtable.PrefixFunction),
			Namespace:      s.resolve(e.Namespace, hashtable.PrefixNamespace),
			NameHash:       e.Name,
			NamespaceHash:  e.Namespace,
			ParameterCount: e.ParameterCount,
			Flags:          ExportFlags(e.Flags),
		})
	}
	s.script.Exports = exports

	for _, exp := range exports {
		err := s.decodeExport(exp)
		if err == nil {
			continue
		}
		xerr := &ExportError{Export: exp.Name, Namespace: exp.Namespace, Offset: exp.ByteCodeOffset, Err: err}
		if s.ctx.Mode == Strict {
			return xerr
		}
		glog.Warningf("%s: %v", s.script.FilePath, xerr)
		exp.Err = xerr
	}
	return nil
}

// decodeExport recovers the export's byte-code size, then decodes every
// instruction in that range.
func (s *session) decodeExport(exp *ScriptExport) error {
	size, err := ScanByteCodeSize(s.c.Buffer().Data, int(exp.ByteCodeOffset), exp.Checksum)
	if err != nil {
		return err
	}
	exp.ByteCodeSize = int32(size)

	end := int(exp.ByteCodeOffset) + size
	for pos := int(exp.ByteCodeOffset); pos < end; {
		op, err := s.v.decodeOp(s, pos)
		if err != nil {
			return err
		}
		exp.Ops = append(exp.Ops, op)
		pos = int(op.End())
	}
	glog.V(2).Infof("%s::%s: %d ops in 0x%x bytes", exp.Namespace, exp.Name, len(exp.Ops), size)
	return nil
}
