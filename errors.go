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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decoding errors. Every failure surfaced by this package
// unwraps (via errors.Is) to exactly one of these.
var (
	// ErrUnexpectedEOF indicates a read past the end of
	// the input buffer, or input that ends with one or
	// more blocks still open.
	ErrUnexpectedEOF = errors.New("unexpected end of bitstream")
	// ErrInvalidMagic indicates that neither the raw
	// bitstream magic nor the wrapper magic is present.
	ErrInvalidMagic = errors.New("invalid magic")
	// ErrMalformedAbbrev indicates an abbreviation
	// definition that violates the operand rules.
	ErrMalformedAbbrev = errors.New("malformed abbreviation definition")
	// ErrUnknownAbbrev indicates an abbreviation id with
	// no definition in the current scope.
	ErrUnknownAbbrev = errors.New("unknown abbreviation id")
	// ErrBlockLength indicates that a block's contents
	// did not span exactly its declared word count.
	ErrBlockLength = errors.New("block length mismatch")
	// ErrOverflow indicates a VBR value wider than 64 bits.
	ErrOverflow = errors.New("vbr value overflows 64 bits")
	// ErrBadPadding indicates non-zero alignment padding
	// in strict mode.
	ErrBadPadding = errors.New("non-zero alignment padding")
	// ErrMalformed indicates a structurally invalid field
	// not covered by a more specific error.
	ErrMalformed = errors.New("malformed bitstream")
)

// StreamError decorates a decoding error with the bit
// offset at which decoding failed and the block-id path
// of the scope stack at that point.
// StreamError implements errors.Unwrap, so
// errors.Is(err, ErrUnexpectedEOF) and friends work as
// expected on errors returned by Decoder.Next.
type StreamError struct {
	Err  error   // underlying error
	Pos  int64   // bit offset of the failure
	Path []int64 // enclosing block ids, outermost first (-1 = top level)
}

func (e *StreamError) Error() string {
	var sb strings.Builder
	sb.WriteString("bitstream: ")
	sb.WriteString(e.Err.Error())
	sb.WriteString(" at bit ")
	sb.WriteString(strconv.FormatInt(e.Pos, 10))
	sb.WriteString(" (path")
	for _, id := range e.Path {
		sb.WriteByte(' ')
		if id == topLevelID {
			sb.WriteString("top")
		} else {
			sb.WriteString(strconv.FormatInt(id, 10))
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func (e *StreamError) Unwrap() error { return e.Err }

// errat wraps err with position context; the message
// argument, if non-empty, is prepended with %w applied
// to err so sentinel matching is preserved.
func (d *Decoder) errat(err error, msg string) error {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	path := make([]int64, len(d.scopes))
	for i := range d.scopes {
		path[i] = d.scopes[i].blockID
	}
	return &StreamError{Err: err, Pos: d.cur.Pos(), Path: path}
}
