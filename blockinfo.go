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

const (
	// BlockInfoID is the reserved id of the metadata
	// block that declares abbreviations for other blocks.
	BlockInfoID = 0
	// FirstApplicationBlockID is the lowest block id not
	// reserved by the container format.
	FirstApplicationBlockID = 8
)

// record codes inside a BLOCKINFO block
const (
	codeSetBID        = 1
	codeBlockName     = 2
	codeSetRecordName = 3
)

// BlockInfo holds the optional name metadata declared
// for one block id inside a BLOCKINFO block.
type BlockInfo struct {
	Name        string
	RecordNames map[uint64]string
}

// Info returns the name metadata collected so far for
// the given block id, or nil if none was declared.
// BLOCKINFO blocks precede the blocks they describe, so
// once a block has been entered its metadata is stable.
func (d *Decoder) Info(id int64) *BlockInfo {
	return d.info[id]
}

func (d *Decoder) infoFor(id int64) *BlockInfo {
	bi := d.info[id]
	if bi == nil {
		bi = &BlockInfo{}
		d.info[id] = bi
	}
	return bi
}

// blockinfoRecord interprets a record decoded while the
// current scope is the BLOCKINFO block. SETBID switches
// the target of subsequent DEFINE_ABBREVs; the name
// records populate the metadata table. Unknown codes
// pass through untouched.
func (d *Decoder) blockinfoRecord(s *scope, r *Record) error {
	switch r.Code {
	case codeSetBID:
		if len(r.Values) < 1 {
			return d.errat(ErrMalformed, "setbid record with no operand")
		}
		bid := r.Values[0]
		if bid > maxBlockID {
			return d.errat(ErrMalformed, "setbid target out of range")
		}
		s.setbid = int64(bid)
	case codeBlockName:
		if s.setbid < 0 {
			return d.errat(ErrMalformed, "blockname before setbid")
		}
		if name := nameOf(r, r.Values); name != "" {
			d.infoFor(s.setbid).Name = name
		}
	case codeSetRecordName:
		if s.setbid < 0 {
			return d.errat(ErrMalformed, "setrecordname before setbid")
		}
		if len(r.Values) < 1 {
			return d.errat(ErrMalformed, "setrecordname record with no code operand")
		}
		if name := nameOf(r, r.Values[1:]); name != "" {
			bi := d.infoFor(s.setbid)
			if bi.RecordNames == nil {
				bi.RecordNames = make(map[uint64]string)
			}
			bi.RecordNames[r.Values[0]] = name
		}
	}
	return nil
}

// nameOf extracts a name either from the record's blob
// payload or from the given operand values.
func nameOf(r *Record, values []uint64) string {
	if r.Blob != nil {
		return string(r.Blob)
	}
	tmp := Record{Values: values}
	return tmp.Text()
}
