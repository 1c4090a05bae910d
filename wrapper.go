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
	"fmt"
)

// wrapperMagic is the little-endian magic of the
// optional outer wrapper header.
const wrapperMagic = 0x0B17C0DE

// rawMagic is the first four bytes of a raw bitstream.
var rawMagic = [4]byte{'B', 'C', 0xc0, 0xde}

// Header describes the envelope of a bitstream buffer.
// For unwrapped input only Wrapped=false is meaningful;
// the remaining fields are zero.
type Header struct {
	Wrapped bool
	Version uint32
	Offset  uint32 // byte offset of the raw bitstream
	Size    uint32 // byte size of the raw bitstream
	CPUType uint32
}

// ParseHeader detects and strips the optional wrapper
// header from buf and verifies the raw bitstream magic.
// The returned slice is the raw bitstream region,
// beginning with the magic bytes.
func ParseHeader(buf []byte) (Header, []byte, error) {
	if len(buf) >= 4 && binary.LittleEndian.Uint32(buf) == wrapperMagic {
		if len(buf) < 20 {
			return Header{}, nil, fmt.Errorf("%w: truncated wrapper header (%d bytes)", ErrInvalidMagic, len(buf))
		}
		h := Header{
			Wrapped: true,
			Version: binary.LittleEndian.Uint32(buf[4:]),
			Offset:  binary.LittleEndian.Uint32(buf[8:]),
			Size:    binary.LittleEndian.Uint32(buf[12:]),
			CPUType: binary.LittleEndian.Uint32(buf[16:]),
		}
		end := uint64(h.Offset) + uint64(h.Size)
		if uint64(h.Offset) > uint64(len(buf)) || end > uint64(len(buf)) {
			return Header{}, nil, fmt.Errorf("%w: wrapper range [%d,%d) exceeds %d-byte input",
				ErrInvalidMagic, h.Offset, end, len(buf))
		}
		region := buf[h.Offset:end:end]
		if err := checkRawMagic(region); err != nil {
			return Header{}, nil, err
		}
		return h, region, nil
	}
	if err := checkRawMagic(buf); err != nil {
		return Header{}, nil, err
	}
	return Header{}, buf, nil
}

func checkRawMagic(region []byte) error {
	if len(region) < 4 {
		return fmt.Errorf("%w: %d-byte input", ErrInvalidMagic, len(region))
	}
	if region[0] != rawMagic[0] || region[1] != rawMagic[1] ||
		region[2] != rawMagic[2] || region[3] != rawMagic[3] {
		return fmt.Errorf("%w: %02x%02x%02x%02x", ErrInvalidMagic,
			region[0], region[1], region[2], region[3])
	}
	return nil
}
