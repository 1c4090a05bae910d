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
	"encoding/binary"
	"errors"
	"testing"
)

// wrap prepends a 20-byte wrapper header to a raw stream.
func wrap(raw []byte, cputype uint32) []byte {
	out := make([]byte, 20, 20+len(raw))
	binary.LittleEndian.PutUint32(out[0:], wrapperMagic)
	binary.LittleEndian.PutUint32(out[4:], 0) // version
	binary.LittleEndian.PutUint32(out[8:], 20)
	binary.LittleEndian.PutUint32(out[12:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[16:], cputype)
	return append(out, raw...)
}

func TestParseHeaderRaw(t *testing.T) {
	raw := scenario()
	h, region, err := ParseHeader(raw)
	if err != nil {
		t.Fatal(err)
	}
	if h.Wrapped {
		t.Error("raw input reported as wrapped")
	}
	if &region[0] != &raw[0] || len(region) != len(raw) {
		t.Error("raw region should be the input buffer")
	}
}

func TestParseHeaderWrapped(t *testing.T) {
	raw := scenario()
	buf := wrap(raw, 0x01000007)
	h, region, err := ParseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Wrapped || h.Offset != 20 || h.Size != uint32(len(raw)) || h.CPUType != 0x01000007 {
		t.Errorf("header: %+v", h)
	}
	if len(region) != len(raw) || &region[0] != &buf[20] {
		t.Error("region does not point at the wrapped payload")
	}
}

func TestParseHeaderErrors(t *testing.T) {
	raw := scenario()
	short := wrap(raw, 0)[:16]
	badrange := wrap(raw, 0)
	binary.LittleEndian.PutUint32(badrange[12:], uint32(len(raw))+64)
	badinner := wrap(raw, 0)
	badinner[20] = 'X'
	cases := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short", []byte{'B', 'C'}},
		{"garbage", []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{"truncated wrapper", short},
		{"wrapper range", badrange},
		{"wrapped bad magic", badinner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseHeader(tc.buf); !errors.Is(err, ErrInvalidMagic) {
				t.Errorf("got %v, want ErrInvalidMagic", err)
			}
		})
	}
}

func TestWrapperEquivalence(t *testing.T) {
	raw := scenario()
	wrapped := wrap(raw, 7)
	// trailing bytes outside the declared wrapper range
	// are not part of the stream
	wrapped = append(wrapped, 0xaa, 0xbb, 0xcc)

	rawEvents := collect(t, raw)
	wrappedEvents := collect(t, wrapped)
	if len(rawEvents) != len(wrappedEvents) {
		t.Fatalf("%d events raw, %d wrapped", len(rawEvents), len(wrappedEvents))
	}
	for i := range rawEvents {
		if rawEvents[i].String() != wrappedEvents[i].String() {
			t.Errorf("event %d: %s vs %s", i, &rawEvents[i], &wrappedEvents[i])
		}
	}

	fp1, err := Fingerprint(raw)
	if err != nil {
		t.Fatal(err)
	}
	fp2, err := Fingerprint(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if fp1 != fp2 {
		t.Errorf("fingerprints differ: %016x vs %016x", fp1, fp2)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base, err := Fingerprint(scenario())
	if err != nil {
		t.Fatal(err)
	}
	// a different record operand changes the structure
	s := newStream()
	s.enter(BlockInfoID, 2)
	s.unabbrev(codeSetBID, 8)
	s.defabbrev(lit(3), vbrOp(6))
	s.end()
	s.enter(8, 3)
	s.abbrevID(4)
	s.vbr(6, 43)
	s.end()
	other, err := Fingerprint(s.done())
	if err != nil {
		t.Fatal(err)
	}
	if base == other {
		t.Error("distinct streams share a fingerprint")
	}

	// an empty blob and no blob must hash differently
	mkblob := func(n int) uint64 {
		s := newStream()
		s.enter(8, 3)
		s.defabbrev(lit(1), blobOp())
		s.abbrevID(4)
		s.vbr(6, uint64(n))
		s.align32()
		s.bytes(make([]byte, n))
		s.align32()
		s.end()
		fp, err := Fingerprint(s.done())
		if err != nil {
			t.Fatal(err)
		}
		return fp
	}
	s = newStream()
	s.enter(8, 3)
	s.defabbrev(lit(1), fixedOp(8)) // same code, scalar instead of blob
	s.abbrevID(4)
	s.fixed(8, 0)
	s.end()
	noblob, err := Fingerprint(s.done())
	if err != nil {
		t.Fatal(err)
	}
	if mkblob(0) == noblob {
		t.Error("empty blob indistinguishable from no blob")
	}
	if mkblob(0) == mkblob(1) {
		t.Error("blob length ignored")
	}
}

func TestDecoderHeader(t *testing.T) {
	d, err := NewDecoder(wrap(scenario(), 3))
	if err != nil {
		t.Fatal(err)
	}
	h := d.Header()
	if !h.Wrapped || h.CPUType != 3 {
		t.Errorf("header: %+v", h)
	}
}
