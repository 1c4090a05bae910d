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

import "encoding/binary"

// bitWriter is a minimal test-only encoder; the write
// direction is out of scope for the package, but the
// tests need to synthesize streams bit by bit.
type bitWriter struct {
	buf []byte
	cur uint64 // pending bits, LSB first
	n   uint   // number of pending bits (< 8)
}

func (w *bitWriter) bits() int64 {
	return int64(len(w.buf))*8 + int64(w.n)
}

func (w *bitWriter) fixed(width uint, v uint64) {
	w.cur |= (v & (1<<width - 1)) << w.n
	w.n += width
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.cur))
		w.cur >>= 8
		w.n -= 8
	}
}

func (w *bitWriter) vbr(width uint, v uint64) {
	hi := uint64(1) << (width - 1)
	for {
		chunk := v & (hi - 1)
		v >>= width - 1
		if v != 0 {
			chunk |= hi
		}
		w.fixed(width, chunk)
		if v == 0 {
			return
		}
	}
}

func (w *bitWriter) align32() {
	if pad := uint(-w.bits() & 31); pad > 0 {
		w.fixed(pad, 0)
	}
}

func (w *bitWriter) bytes(p []byte) {
	if w.n != 0 {
		panic("bytes() while not byte-aligned")
	}
	w.buf = append(w.buf, p...)
}

func (w *bitWriter) done() []byte {
	if w.n != 0 {
		w.fixed(8-w.n, 0)
	}
	return w.buf
}

// streamWriter layers block structure on bitWriter:
// it tracks the abbreviation id width per open block
// and back-patches the declared block lengths.
type streamWriter struct {
	bitWriter
	widths []uint
	fixups []int   // byte offset of the length word
	starts []int64 // bit position of the block body
}

func newStream() *streamWriter {
	s := &streamWriter{widths: []uint{topLevelWidth}}
	s.bytes(rawMagic[:])
	return s
}

func (s *streamWriter) abbrevID(id uint64) {
	s.fixed(s.widths[len(s.widths)-1], id)
}

func (s *streamWriter) enter(blockID uint64, width uint) {
	s.abbrevID(abbrevEnterSubblock)
	s.vbr(8, blockID)
	s.vbr(4, uint64(width))
	s.align32()
	s.fixups = append(s.fixups, len(s.buf))
	s.fixed(32, 0) // patched by end()
	s.starts = append(s.starts, s.bits())
	s.widths = append(s.widths, width)
}

func (s *streamWriter) end() {
	s.abbrevID(abbrevEndBlock)
	s.align32()
	i := len(s.fixups) - 1
	words := uint32((s.bits() - s.starts[i]) / 32)
	binary.LittleEndian.PutUint32(s.buf[s.fixups[i]:], words)
	s.fixups = s.fixups[:i]
	s.starts = s.starts[:i]
	s.widths = s.widths[:len(s.widths)-1]
}

// patch back-fills the innermost block's length without
// closing it, for streams that end with the block open.
func (s *streamWriter) patch() {
	i := len(s.fixups) - 1
	words := uint32((s.bits() - s.starts[i]) / 32)
	binary.LittleEndian.PutUint32(s.buf[s.fixups[i]:], words)
}

func (s *streamWriter) unabbrev(code uint64, vals ...uint64) {
	s.abbrevID(abbrevUnabbrevRecord)
	s.vbr(6, code)
	s.vbr(6, uint64(len(vals)))
	for _, v := range vals {
		s.vbr(6, v)
	}
}

func (s *streamWriter) defabbrev(ops ...AbbrevOp) {
	s.abbrevID(abbrevDefineAbbrev)
	writeAbbrev(&s.bitWriter, ops...)
}

// writeAbbrev encodes the body of a DEFINE_ABBREV, i.e.
// everything after the abbreviation id.
func writeAbbrev(w *bitWriter, ops ...AbbrevOp) {
	w.vbr(5, uint64(len(ops)))
	for _, op := range ops {
		switch op.Kind {
		case OpLiteral:
			w.fixed(1, 1)
			w.vbr(8, op.Val)
		case OpFixed:
			w.fixed(1, 0)
			w.fixed(3, encFixed)
			w.vbr(5, op.Val)
		case OpVBR:
			w.fixed(1, 0)
			w.fixed(3, encVBR)
			w.vbr(5, op.Val)
		case OpArray:
			w.fixed(1, 0)
			w.fixed(3, encArray)
		case OpChar6:
			w.fixed(1, 0)
			w.fixed(3, encChar6)
		case OpBlob:
			w.fixed(1, 0)
			w.fixed(3, encBlob)
		}
	}
}

func lit(v uint64) AbbrevOp { return AbbrevOp{Kind: OpLiteral, Val: v} }

func fixedOp(w uint64) AbbrevOp { return AbbrevOp{Kind: OpFixed, Val: w} }

func vbrOp(w uint64) AbbrevOp { return AbbrevOp{Kind: OpVBR, Val: w} }

func arrayOp() AbbrevOp { return AbbrevOp{Kind: OpArray} }

func char6Op() AbbrevOp { return AbbrevOp{Kind: OpChar6} }

func blobOp() AbbrevOp { return AbbrevOp{Kind: OpBlob} }
