package gsc

import (
	"sort"
	"strconv"

	"github.com/yoremi/cerberus-go/pkg/decerr"
)

const switchCaseSize = 8

// resolveSwitch reads the case table that follows an EndSwitch opcode.
//
// Each case is a 4-byte value slot and a 4-byte displacement. A slot is a
// string case when a string-table reference points two bytes into it.
// Otherwise the slot holds an integer; a zero in the last slot is taken as
// the default case, which relies on the compiler emitting default last.
// Hand-written byte code with a real `case 0:` in last position decodes as
// default.
func (s *session) resolveSwitch() ([]SwitchCase, error) {
	c := s.c
	if err := c.Align(4); err != nil {
		return nil, err
	}
	start := c.Pos()
	count, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	if count < 0 || int(count) > c.Remaining()/switchCaseSize {
		return nil, decerr.Corrupt(nil, "switch at 0x%x has %d cases", start, count)
	}

	cases := make([]SwitchCase, 0, count)
	for i := 0; i < int(count); i++ {
		sc := SwitchCase{OriginalIndex: i}
		if str, ok := s.script.StringAt(int32(c.Pos() + 2)); ok {
			if err := c.Skip(4); err != nil {
				return nil, err
			}
			sc.CaseValue = str.Value
			sc.IsString = true
		} else {
			v, err := c.ReadI32()
			if err != nil {
				return nil, err
			}
			if v == 0 && i == int(count)-1 {
				sc.CaseValue = "default"
				sc.IsDefault = true
			} else {
				sc.CaseValue = strconv.Itoa(int(v))
			}
		}

		slot := c.Pos()
		disp, err := c.ReadI32()
		if err != nil {
			return nil, err
		}
		sc.ByteCodeOffset = int32(slot) + disp + 4
		cases = append(cases, sc)
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].ByteCodeOffset < cases[j].ByteCodeOffset
	})
	return cases, nil
}
