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
	"io"

	"github.com/dchest/siphash"
)

// fixed fingerprint keys; changing them changes every
// fingerprint, so treat them as part of the format of
// anything that persists fingerprints
const (
	fpKey0 = 0x62697473747265a0
	fpKey1 = 0x6d6669302e312e00
)

// Fingerprint decodes buf and returns an
// order-sensitive digest of its structural event
// sequence. Two buffers with identical structure
// (blocks, abbreviation definitions, records and
// blobs) have equal fingerprints regardless of their
// physical encoding details such as the presence of a
// wrapper header.
func Fingerprint(buf []byte) (uint64, error) {
	d, err := NewDecoder(buf)
	if err != nil {
		return 0, err
	}
	var key [16]byte
	binary.LittleEndian.PutUint64(key[:8], fpKey0)
	binary.LittleEndian.PutUint64(key[8:], fpKey1)
	h := siphash.New(key[:])
	var scratch [8]byte
	put := func(vals ...uint64) {
		for _, v := range vals {
			binary.LittleEndian.PutUint64(scratch[:], v)
			h.Write(scratch[:])
		}
	}
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return h.Sum64(), nil
		}
		if err != nil {
			return 0, err
		}
		switch ev.Kind {
		case EventEnterBlock:
			put(uint64(ev.Kind), uint64(ev.BlockID), uint64(ev.Width))
		case EventExitBlock:
			put(uint64(ev.Kind), uint64(ev.BlockID))
		case EventAbbrev:
			put(uint64(ev.Kind), uint64(ev.BlockID), ev.Index)
			for _, op := range ev.Abbrev.Ops {
				put(uint64(op.Kind), op.Val)
			}
		case EventRecord:
			r := ev.Record
			put(uint64(ev.Kind), r.Code, uint64(len(r.Values)))
			put(r.Values...)
			if r.Blob != nil {
				put(uint64(len(r.Blob)) + 1)
				h.Write(r.Blob)
			} else {
				put(0)
			}
		}
	}
}
