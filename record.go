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

// Record is one data record: a code, its integer
// operands, and an optional raw byte payload.
//
// Blob, when non-nil, aliases the input buffer passed
// to the decoder; callers that outlive the buffer must
// copy it.
type Record struct {
	Code   uint64
	Values []uint64
	Blob   []byte
}

// Text interprets the operand values as bytes and
// returns them as a string, stopping at the first value
// that does not fit in a byte. Block and record name
// metadata is encoded this way.
func (r *Record) Text() string {
	var sb strings.Builder
	for _, v := range r.Values {
		if v > 0xff {
			break
		}
		sb.WriteByte(byte(v))
	}
	return sb.String()
}

func (r *Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "record(code=%d", r.Code)
	for _, v := range r.Values {
		fmt.Fprintf(&sb, " %d", v)
	}
	if r.Blob != nil {
		fmt.Fprintf(&sb, " blob[%d]", len(r.Blob))
	}
	sb.WriteByte(')')
	return sb.String()
}
