package gsc

import (
	"github.com/pkg/errors"

	"github.com/yoremi/cerberus-go/pkg/decerr"
	"github.com/yoremi/cerberus-go/pkg/hashtable"
)

// decodeOp decodes the instruction at offset. Operand padding is part of
// the encoding: every kind wider than a byte is aligned on the absolute
// cursor position before it is read.
func (s *session) decodeOp(offset int, table *OpcodeTable) (*ScriptOp, error) {
	if err := s.c.Seek(offset); err != nil {
		return nil, decerr.Corrupt(err, "opcode at 0x%x", offset)
	}
	b, err := s.c.ReadU8()
	if err != nil {
		return nil, decerr.Corrupt(err, "opcode at 0x%x", offset)
	}
	code := table.Lookup(b)
	if code == OpInvalid {
		return nil, decerr.Corrupt(nil, "invalid opcode 0x%02x at 0x%x", b, offset)
	}

	op := &ScriptOp{Offset: int32(offset), Metadata: code.Metadata()}
	if err := s.decodeOperands(op); err != nil {
		if decerr.Category(err) == nil {
			return nil, decerr.Corrupt(err, "%v at 0x%x", code, offset)
		}
		return nil, errors.Wrapf(err, "%v at 0x%x", code, offset)
	}
	op.Size = int32(s.c.Pos() - offset)
	return op, nil
}

func (s *session) decodeOperands(op *ScriptOp) error {
	c := s.c
	add := func(o Operand) { op.Operands = append(op.Operands, o) }

	switch op.Metadata.Operand {
	case KindNone:
		return nil

	case KindInt8:
		v, err := c.ReadI8()
		if err != nil {
			return err
		}
		add(IntOperand{int64(v)})

	case KindUInt8:
		v, err := c.ReadU8()
		if err != nil {
			return err
		}
		val := int64(v)
		if op.Opcode() == OpGetNegByte {
			val = -val
		}
		add(IntOperand{val})

	case KindInt16:
		if err := c.Align(2); err != nil {
			return err
		}
		v, err := c.ReadI16()
		if err != nil {
			return err
		}
		add(IntOperand{int64(v)})

	case KindUInt16:
		if err := c.Align(2); err != nil {
			return err
		}
		v, err := c.ReadU16()
		if err != nil {
			return err
		}
		val := int64(v)
		if op.Opcode() == OpGetNegUnsignedShort {
			val = -val
		}
		add(IntOperand{val})

	case KindInt32:
		if err := c.Align(4); err != nil {
			return err
		}
		v, err := c.ReadI32()
		if err != nil {
			return err
		}
		add(IntOperand{int64(v)})

	case KindUInt32:
		if err := c.Align(4); err != nil {
			return err
		}
		v, err := c.ReadU32()
		if err != nil {
			return err
		}
		add(IntOperand{int64(v)})

	case KindHash:
		n, err := s.readName(NameHash, hashtable.PrefixHash)
		if err != nil {
			return err
		}
		add(n)

	case KindFloat:
		if err := c.Align(4); err != nil {
			return err
		}
		v, err := c.ReadF32()
		if err != nil {
			return err
		}
		add(FloatOperand{v})

	case KindVector:
		if err := c.Align(4); err != nil {
			return err
		}
		var xyz [3]float32
		for i := range xyz {
			v, err := c.ReadF32()
			if err != nil {
				return err
			}
			xyz[i] = v
		}
		add(VectorOperand{X: xyz[0], Y: xyz[1], Z: xyz[2]})

	case KindVectorFlags:
		flags, err := c.ReadU8()
		if err != nil {
			return err
		}
		add(VectorOperand{
			X: flagAxis(flags, 0x20, 0x10),
			Y: flagAxis(flags, 0x08, 0x04),
			Z: flagAxis(flags, 0x02, 0x01),
		})

	case KindString:
		str, err := s.readString(op.Opcode())
		if err != nil {
			return err
		}
		add(str)

	case KindVariableName:
		n, err := s.readName(NameVariable, hashtable.PrefixVariable)
		if err != nil {
			return err
		}
		add(n)

	case KindFunctionPointer:
		n, err := s.readName(NameFunctionRef, hashtable.PrefixFunction)
		if err != nil {
			return err
		}
		add(n)

	case KindCall:
		// Class calls carry their parameter count inline; other calls
		// reserve a byte that is only filled in at runtime.
		if code := op.Opcode(); code == OpClassFunctionCall || code == OpClassFunctionThreadCall {
			count, err := c.ReadU8()
			if err != nil {
				return err
			}
			n, err := s.readName(NameFunction, hashtable.PrefixFunction)
			if err != nil {
				return err
			}
			add(n)
			add(IntOperand{int64(count)})
			return nil
		}
		if err := c.Skip(1); err != nil {
			return err
		}
		n, err := s.readName(NameFunction, hashtable.PrefixFunction)
		if err != nil {
			return err
		}
		add(n)

	case KindVariableList:
		count, err := c.ReadU8()
		if err != nil {
			return err
		}
		for i := 0; i < int(count); i++ {
			n, err := s.readName(NameVariable, hashtable.PrefixVariable)
			if err != nil {
				return err
			}
			add(n)
			if err := c.Skip(1); err != nil {
				return err
			}
		}

	case KindSwitchEnd:
		cases, err := s.v.resolveSwitch(s)
		if err != nil {
			return err
		}
		for _, sc := range cases {
			add(sc)
		}

	default:
		return errors.Wrapf(decerr.ErrDecode, "operand kind %v", op.Metadata.Operand)
	}
	return nil
}

// readName reads a 4-byte aligned hash and resolves it.
func (s *session) readName(kind NameKind, prefix string) (NameOperand, error) {
	if err := s.c.Align(4); err != nil {
		return NameOperand{}, err
	}
	h, err := s.c.ReadU32()
	if err != nil {
		return NameOperand{}, err
	}
	return NameOperand{Kind: kind, Hash: h, Name: s.resolve(h, prefix)}, nil
}

// readString decodes the three string-operand forms. Literal and localized
// strings are found through the string table's reference lists; animation
// names are stored behind an absolute pointer.
func (s *session) readString(code Opcode) (StringOperand, error) {
	c := s.c
	switch code {
	case OpGetString, OpGetIString:
		if err := c.Align(2); err != nil {
			return StringOperand{}, err
		}
		kind := StringLiteral
		if code == OpGetIString {
			kind = StringLocalized
		}
		str := StringOperand{Kind: kind}
		if ref, ok := s.script.StringAt(int32(c.Pos())); ok {
			str.Value = ref.Value
			str.Resolved = true
		}
		return str, c.Skip(2)

	case OpGetAnimation:
		if err := c.Align(4); err != nil {
			return StringOperand{}, err
		}
		ptr, err := c.ReadI32()
		if err != nil {
			return StringOperand{}, err
		}
		name, err := s.peekString(int(ptr))
		if err != nil {
			return StringOperand{}, err
		}
		return StringOperand{Kind: StringAnimation, Value: name, Resolved: true}, nil
	}
	return StringOperand{}, errors.Wrapf(decerr.ErrDecode, "string operand on %v", code)
}

func flagAxis(flags, pos, neg uint8) float32 {
	switch {
	case flags&pos != 0:
		return 1
	case flags&neg != 0:
		return -1
	}
	return 0
}
