// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package bitstream

import (
	"fmt"
	"strings"
)

// OpKind enumerates the operand encodings an
// abbreviation may use. The set is fixed by the
// container format.
type OpKind uint8

const (
	// OpLiteral contributes a constant value and
	// consumes no bits when a record is decoded.
	OpLiteral OpKind = iota
	// OpFixed is a fixed-width field.
	OpFixed
	// OpVBR is a variable-bit-rate field.
	OpVBR
	// OpArray is a vbr6 element count followed by that
	// many elements of the next operand's encoding.
	OpArray
	// OpChar6 is a 6-bit character of the [a-zA-Z0-9._]
	// alphabet.
	OpChar6
	// OpBlob is a vbr6 byte count and a 32-bit-aligned
	// raw byte payload.
	OpBlob
)

// wire encodings of non-literal operands in DEFINE_ABBREV
const (
	encFixed = 1
	encVBR   = 2
	encArray = 3
	encChar6 = 4
	encBlob  = 5
)

func (k OpKind) String() string {
	switch k {
	case OpLiteral:
		return "literal"
	case OpFixed:
		return "fixed"
	case OpVBR:
		return "vbr"
	case OpArray:
		return "array"
	case OpChar6:
		return "char6"
	case OpBlob:
		return "blob"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// AbbrevOp is one operand of an abbreviation definition.
// Val holds the literal value for OpLiteral and the
// field width for OpFixed and OpVBR; it is zero otherwise.
type AbbrevOp struct {
	Kind OpKind
	Val  uint64
}

func (op AbbrevOp) String() string {
	switch op.Kind {
	case OpLiteral:
		return fmt.Sprintf("literal(%d)", op.Val)
	case OpFixed, OpVBR:
		return fmt.Sprintf("%s(%d)", op.Kind, op.Val)
	default:
		return op.Kind.String()
	}
}

// Abbrev is the decoded schema of one abbreviation:
// an ordered operand sequence. Abbrevs are immutable
// once defined and may be shared between scopes.
type Abbrev struct {
	Ops []AbbrevOp
}

func (a *Abbrev) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range a.Ops {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Ops[i].String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// scalar indicates whether an operand decodes to a
// single value (as opposed to an array or blob payload).
func (op AbbrevOp) scalar() bool {
	return op.Kind != OpArray && op.Kind != OpBlob
}

// bits is the minimum number of input bits one decoded
// value of this operand consumes.
func (op AbbrevOp) bits() int64 {
	switch op.Kind {
	case OpFixed:
		return int64(op.Val)
	case OpVBR:
		return int64(op.Val)
	case OpChar6:
		return 6
	default:
		return 0
	}
}

// readAbbrev decodes the body of a DEFINE_ABBREV
// operation: a vbr5 operand count followed by the
// operands. Each operand starts with a 1-bit literal
// flag; literals carry a vbr8 value, everything else a
// 3-bit encoding tag, with an extra vbr5 width for
// fixed and vbr fields.
func readAbbrev(c *Cursor) (*Abbrev, error) {
	numops, err := c.ReadVBR(5)
	if err != nil {
		return nil, err
	}
	if numops == 0 {
		return nil, ErrMalformedAbbrev
	}
	// each operand occupies at least 4 bits on the wire,
	// so an honest count cannot exceed the remaining input
	if numops > uint64(c.Remaining()/4)+1 {
		return nil, ErrMalformedAbbrev
	}
	ops := make([]AbbrevOp, 0, numops)
	for i := uint64(0); i < numops; i++ {
		op, err := readAbbrevOp(c)
		if err != nil {
			return nil, err
		}
		if op.Kind == OpArray {
			// the next operand describes the array element
			// and must be a scalar encoding
			if i++; i == numops {
				return nil, ErrMalformedAbbrev
			}
			elem, err := readAbbrevOp(c)
			if err != nil {
				return nil, err
			}
			if !elem.scalar() {
				return nil, ErrMalformedAbbrev
			}
			ops = append(ops, op, elem)
			continue
		}
		ops = append(ops, op)
	}
	return &Abbrev{Ops: ops}, nil
}

func readAbbrevOp(c *Cursor) (AbbrevOp, error) {
	isliteral, err := c.ReadFixed(1)
	if err != nil {
		return AbbrevOp{}, err
	}
	if isliteral == 1 {
		v, err := c.ReadVBR(8)
		if err != nil {
			return AbbrevOp{}, err
		}
		return AbbrevOp{Kind: OpLiteral, Val: v}, nil
	}
	enc, err := c.ReadFixed(3)
	if err != nil {
		return AbbrevOp{}, err
	}
	switch enc {
	case encFixed, encVBR:
		width, err := c.ReadVBR(5)
		if err != nil {
			return AbbrevOp{}, err
		}
		kind := OpFixed
		if enc == encVBR {
			kind = OpVBR
			if width < 1 {
				return AbbrevOp{}, ErrMalformedAbbrev
			}
		}
		if width > 32 {
			return AbbrevOp{}, ErrMalformedAbbrev
		}
		return AbbrevOp{Kind: kind, Val: width}, nil
	case encArray:
		return AbbrevOp{Kind: OpArray}, nil
	case encChar6:
		return AbbrevOp{Kind: OpChar6}, nil
	case encBlob:
		return AbbrevOp{Kind: OpBlob}, nil
	default:
		return AbbrevOp{}, ErrMalformedAbbrev
	}
}

// char6Byte maps a 6-bit value to its character in the
// fixed [a-zA-Z0-9._] alphabet. The field is exactly six
// bits, so every input value has a mapping.
func char6Byte(v uint64) byte {
	switch {
	case v < 26:
		return 'a' + byte(v)
	case v < 52:
		return 'A' + byte(v-26)
	case v < 62:
		return '0' + byte(v-52)
	case v == 62:
		return '.'
	default:
		return '_'
	}
}

// char6Value is the inverse of char6Byte; ok reports
// whether b is in the alphabet.
func char6Value(b byte) (uint64, bool) {
	switch {
	case b >= 'a' && b <= 'z':
		return uint64(b - 'a'), true
	case b >= 'A' && b <= 'Z':
		return uint64(b-'A') + 26, true
	case b >= '0' && b <= '9':
		return uint64(b-'0') + 52, true
	case b == '.':
		return 62, true
	case b == '_':
		return 63, true
	default:
		return 0, false
	}
}
