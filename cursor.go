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

// Cursor is a bit-addressable reader over an
// immutable byte buffer. Fields are read
// least-significant-bit first, matching the
// bitstream wire format.
//
// A Cursor performs no allocation; slices
// returned from ReadBytes alias the input buffer.
type Cursor struct {
	buf []byte
	off int64 // position in bits
}

// NewCursor constructs a Cursor positioned
// at the first bit of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current position in bits
// from the start of the buffer.
func (c *Cursor) Pos() int64 { return c.off }

// Remaining returns the number of unread bits.
func (c *Cursor) Remaining() int64 {
	return int64(len(c.buf))*8 - c.off
}

// AtEnd indicates whether every bit of the
// buffer has been consumed.
func (c *Cursor) AtEnd() bool { return c.Remaining() == 0 }

// ReadFixed reads a fixed-width field of 1 to 32 bits
// and advances the cursor by exactly width bits.
func (c *Cursor) ReadFixed(width uint) (uint64, error) {
	if width < 1 || width > 32 {
		return 0, ErrMalformed
	}
	if int64(width) > c.Remaining() {
		return 0, ErrUnexpectedEOF
	}
	// gather the (up to 5) bytes covering
	// [c.off, c.off+width) and shift out the
	// leading bit offset
	byteoff := c.off >> 3
	shift := uint(c.off & 7)
	nbytes := (int64(shift+width) + 7) >> 3
	var word uint64
	for i := nbytes - 1; i >= 0; i-- {
		word = word<<8 | uint64(c.buf[byteoff+i])
	}
	c.off += int64(width)
	return (word >> shift) & (1<<width - 1), nil
}

// ReadVBR reads a variable-bit-rate integer encoded in
// width-bit chunks. The high bit of each chunk is a
// continuation flag; the low width-1 bits are payload,
// accumulated low-chunk-first. Values that do not fit
// in 64 bits yield ErrOverflow.
func (c *Cursor) ReadVBR(width uint) (uint64, error) {
	if width < 1 || width > 32 {
		return 0, ErrMalformed
	}
	hi := uint64(1) << (width - 1)
	var v uint64
	var shift uint
	for {
		chunk, err := c.ReadFixed(width)
		if err != nil {
			return 0, err
		}
		payload := chunk &^ hi
		switch {
		case shift >= 64:
			if payload != 0 {
				return 0, ErrOverflow
			}
		case payload != 0 && shift+width-1 > 64 && payload>>(64-shift) != 0:
			return 0, ErrOverflow
		default:
			v |= payload << shift
		}
		if chunk&hi == 0 {
			return v, nil
		}
		shift += width - 1
	}
}

// Align32 advances the cursor to the next multiple of
// 32 bits and returns the value of the discarded bits.
// Whether non-zero padding is an error is the caller's
// policy; the cursor only reports it.
func (c *Cursor) Align32() (uint64, error) {
	skip := uint(-c.off & 31)
	if skip == 0 {
		return 0, nil
	}
	return c.ReadFixed(skip)
}

// seek repositions the cursor to an absolute bit
// position previously validated against the buffer.
func (c *Cursor) seek(pos int64) { c.off = pos }

// ReadBytes reads n raw bytes. The cursor must be at a
// byte-aligned position; the returned slice aliases the
// underlying buffer.
func (c *Cursor) ReadBytes(n int64) ([]byte, error) {
	if c.off&7 != 0 {
		return nil, ErrMalformed
	}
	// compare in bytes; n*8 would overflow for
	// adversarial declared lengths near 1<<61
	if n < 0 || n > c.Remaining()/8 {
		return nil, ErrUnexpectedEOF
	}
	start := c.off >> 3
	c.off += n * 8
	return c.buf[start : start+n : start+n], nil
}
