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
	"io"
	"math"

	"golang.org/x/exp/slices"
)

// abbreviation ids reserved by the container format;
// ids from firstCustomID up select defined abbreviations
const (
	abbrevEndBlock       = 0
	abbrevEnterSubblock  = 1
	abbrevDefineAbbrev   = 2
	abbrevUnabbrevRecord = 3
	firstCustomID        = 4
)

const (
	topLevelID    = -1
	topLevelWidth = 2
	maxBlockID    = math.MaxInt64
)

// scope is one entry of the block scope stack: the
// decoding context of one open block.
type scope struct {
	blockID int64     // -1 at top level
	width   uint      // abbreviation id width
	abbrevs []*Abbrev // BLOCKINFO snapshot at entry, then local definitions
	end     int64     // declared end position in bits; -1 at top level
	setbid  int64     // BLOCKINFO redirection target; -1 = unset
}

// Decoder walks the block/record structure of a
// bitstream buffer and yields it as a flat sequence of
// structural events.
//
// A Decoder holds no global state: independent decoders
// over independent buffers may run concurrently. A single
// Decoder must not be shared between goroutines.
type Decoder struct {
	// Lenient tolerates non-zero bits in 32-bit
	// alignment padding. The zero value rejects them
	// with ErrBadPadding.
	Lenient bool

	hdr     Header
	cur     *Cursor
	scopes  []scope
	globals map[int64][]*Abbrev
	info    map[int64]*BlockInfo
	err     error // sticky failure
}

// NewDecoder strips the optional wrapper header,
// verifies the bitstream magic and positions a decoder
// at the first structural entry.
func NewDecoder(buf []byte) (*Decoder, error) {
	hdr, region, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	cur := NewCursor(region)
	cur.ReadFixed(32) // magic, verified by ParseHeader
	return &Decoder{
		hdr:     hdr,
		cur:     cur,
		scopes:  []scope{{blockID: topLevelID, width: topLevelWidth, end: -1, setbid: -1}},
		globals: make(map[int64][]*Abbrev),
		info:    make(map[int64]*BlockInfo),
	}, nil
}

// Header returns the wrapper header (or its zero value
// for unwrapped input).
func (d *Decoder) Header() Header { return d.hdr }

// Pos returns the current position in bits, relative to
// the start of the raw bitstream region.
func (d *Decoder) Pos() int64 { return d.cur.Pos() }

// Path returns the block ids of the currently open
// scopes, outermost first. The first element is always
// -1, the synthetic top-level scope.
func (d *Decoder) Path() []int64 {
	path := make([]int64, len(d.scopes))
	for i := range d.scopes {
		path[i] = d.scopes[i].blockID
	}
	return path
}

func (d *Decoder) top() *scope { return &d.scopes[len(d.scopes)-1] }

// Next decodes and returns the next structural event.
// The sequence terminates with io.EOF once all opened
// blocks are closed and the region is fully consumed.
// Any other error is a *StreamError and is sticky:
// decoding cannot resume after a structural failure.
func (d *Decoder) Next() (Event, error) {
	if d.err != nil {
		return Event{}, d.err
	}
	ev, err := d.step()
	if err != nil {
		d.err = err
		return Event{}, err
	}
	return ev, nil
}

func (d *Decoder) step() (Event, error) {
	s := d.top()
	if len(d.scopes) == 1 && d.cur.AtEnd() {
		return Event{}, io.EOF
	}
	id, err := d.cur.ReadFixed(s.width)
	if err != nil {
		return Event{}, d.errat(err, "abbreviation id")
	}
	switch id {
	case abbrevEndBlock:
		return d.endBlock()
	case abbrevEnterSubblock:
		return d.enterBlock()
	case abbrevDefineAbbrev:
		return d.defineAbbrev()
	case abbrevUnabbrevRecord:
		return d.unabbrevRecord()
	default:
		return d.abbrevRecord(id)
	}
}

func (d *Decoder) align32() error {
	pad, err := d.cur.Align32()
	if err != nil {
		return d.errat(err, "alignment")
	}
	if pad != 0 && !d.Lenient {
		return d.errat(ErrBadPadding, "")
	}
	return nil
}

func (d *Decoder) endBlock() (Event, error) {
	if len(d.scopes) == 1 {
		return Event{}, d.errat(ErrMalformed, "end_block at top level")
	}
	if err := d.align32(); err != nil {
		return Event{}, err
	}
	s := d.top()
	if d.cur.Pos() != s.end {
		return Event{}, d.errat(ErrBlockLength,
			fmt.Sprintf("block %d declared end at bit %d, actual %d", s.blockID, s.end, d.cur.Pos()))
	}
	id := s.blockID
	d.scopes = d.scopes[:len(d.scopes)-1]
	return Event{Kind: EventExitBlock, BlockID: id}, nil
}

func (d *Decoder) enterBlock() (Event, error) {
	if d.top().blockID == BlockInfoID {
		return Event{}, d.errat(ErrMalformed, "nested block inside blockinfo")
	}
	bid, err := d.cur.ReadVBR(8)
	if err != nil {
		return Event{}, d.errat(err, "block id")
	}
	if bid > maxBlockID {
		return Event{}, d.errat(ErrMalformed, "block id out of range")
	}
	width, err := d.cur.ReadVBR(4)
	if err != nil {
		return Event{}, d.errat(err, "abbreviation width")
	}
	if width < 1 || width > 32 {
		return Event{}, d.errat(ErrMalformed, fmt.Sprintf("abbreviation width %d", width))
	}
	if err := d.align32(); err != nil {
		return Event{}, err
	}
	words, err := d.cur.ReadFixed(32)
	if err != nil {
		return Event{}, d.errat(err, "block length")
	}
	body := int64(words) * 32
	if body > d.cur.Remaining() {
		return Event{}, d.errat(ErrUnexpectedEOF,
			fmt.Sprintf("block declares %d words, %d bits remain", words, d.cur.Remaining()))
	}
	d.scopes = append(d.scopes, scope{
		blockID: int64(bid),
		width:   uint(width),
		abbrevs: slices.Clone(d.globals[int64(bid)]),
		end:     d.cur.Pos() + body,
		setbid:  -1,
	})
	return Event{Kind: EventEnterBlock, BlockID: int64(bid), Width: uint(width)}, nil
}

func (d *Decoder) defineAbbrev() (Event, error) {
	ab, err := readAbbrev(d.cur)
	if err != nil {
		return Event{}, d.errat(err, "define_abbrev")
	}
	s := d.top()
	if s.blockID == BlockInfoID {
		// redirected to the SETBID target; this is how an
		// abbreviation becomes visible to another block id
		if s.setbid < 0 {
			return Event{}, d.errat(ErrMalformed, "define_abbrev before setbid in blockinfo")
		}
		d.globals[s.setbid] = append(d.globals[s.setbid], ab)
		return Event{
			Kind:    EventAbbrev,
			BlockID: s.setbid,
			Index:   uint64(firstCustomID + len(d.globals[s.setbid]) - 1),
			Abbrev:  ab,
		}, nil
	}
	s.abbrevs = append(s.abbrevs, ab)
	return Event{
		Kind:    EventAbbrev,
		BlockID: s.blockID,
		Index:   uint64(firstCustomID + len(s.abbrevs) - 1),
		Abbrev:  ab,
	}, nil
}

func (d *Decoder) unabbrevRecord() (Event, error) {
	code, err := d.cur.ReadVBR(6)
	if err != nil {
		return Event{}, d.errat(err, "record code")
	}
	numops, err := d.cur.ReadVBR(6)
	if err != nil {
		return Event{}, d.errat(err, "operand count")
	}
	// each operand is at least one vbr6 chunk
	if numops > uint64(d.cur.Remaining()/6) {
		return Event{}, d.errat(ErrUnexpectedEOF,
			fmt.Sprintf("record declares %d operands, %d bits remain", numops, d.cur.Remaining()))
	}
	values := make([]uint64, 0, numops)
	for i := uint64(0); i < numops; i++ {
		v, err := d.cur.ReadVBR(6)
		if err != nil {
			return Event{}, d.errat(err, "record operand")
		}
		values = append(values, v)
	}
	return d.emitRecord(&Record{Code: code, Values: values})
}

func (d *Decoder) abbrevRecord(id uint64) (Event, error) {
	s := d.top()
	idx := id - firstCustomID
	if idx >= uint64(len(s.abbrevs)) {
		return Event{}, d.errat(ErrUnknownAbbrev,
			fmt.Sprintf("id %d in block %d (%d defined)", id, s.blockID, len(s.abbrevs)))
	}
	rec, err := d.readAbbrevRecord(s.abbrevs[idx])
	if err != nil {
		return Event{}, err
	}
	return d.emitRecord(rec)
}

// emitRecord applies BLOCKINFO interpretation when
// applicable and wraps the record in an event. Records
// always pass through, including the metadata records.
func (d *Decoder) emitRecord(rec *Record) (Event, error) {
	s := d.top()
	if s.blockID == BlockInfoID {
		if err := d.blockinfoRecord(s, rec); err != nil {
			return Event{}, err
		}
	}
	return Event{Kind: EventRecord, Record: rec}, nil
}

func (d *Decoder) readScalar(op AbbrevOp) (uint64, error) {
	switch op.Kind {
	case OpLiteral:
		return op.Val, nil
	case OpFixed:
		if op.Val == 0 {
			// zero-width fields carry no bits
			return 0, nil
		}
		return d.cur.ReadFixed(uint(op.Val))
	case OpVBR:
		return d.cur.ReadVBR(uint(op.Val))
	case OpChar6:
		v, err := d.cur.ReadFixed(6)
		if err != nil {
			return 0, err
		}
		return uint64(char6Byte(v)), nil
	default:
		return 0, ErrMalformedAbbrev
	}
}

func (d *Decoder) readAbbrevRecord(ab *Abbrev) (*Record, error) {
	ops := ab.Ops
	if !ops[0].scalar() {
		return nil, d.errat(ErrMalformedAbbrev, "record code operand is not a scalar")
	}
	code, err := d.readScalar(ops[0])
	if err != nil {
		return nil, d.errat(err, "record code")
	}
	rec := &Record{Code: code}
	for i := 1; i < len(ops); i++ {
		op := ops[i]
		switch op.Kind {
		case OpArray:
			elem := ops[i+1] // presence and scalarity checked at definition
			i++
			count, err := d.cur.ReadVBR(6)
			if err != nil {
				return nil, d.errat(err, "array length")
			}
			if eb := elem.bits(); eb > 0 {
				if count > uint64(d.cur.Remaining()/eb) {
					return nil, d.errat(ErrUnexpectedEOF,
						fmt.Sprintf("array declares %d elements, %d bits remain", count, d.cur.Remaining()))
				}
			} else if count > uint64(d.cur.Remaining()) {
				// zero-width elements cannot be length-checked
				// against the input; reject absurd counts instead
				// of allocating for them
				return nil, d.errat(ErrMalformed,
					fmt.Sprintf("array of %d zero-width elements", count))
			}
			rec.Values = slices.Grow(rec.Values, int(count))
			for j := uint64(0); j < count; j++ {
				v, err := d.readScalar(elem)
				if err != nil {
					return nil, d.errat(err, "array element")
				}
				rec.Values = append(rec.Values, v)
			}
		case OpBlob:
			if rec.Blob != nil {
				return nil, d.errat(ErrMalformedAbbrev, "multiple blob operands")
			}
			n, err := d.cur.ReadVBR(6)
			if err != nil {
				return nil, d.errat(err, "blob length")
			}
			if err := d.align32(); err != nil {
				return nil, err
			}
			blob, err := d.cur.ReadBytes(int64(n))
			if err != nil {
				return nil, d.errat(err, "blob contents")
			}
			if err := d.align32(); err != nil {
				return nil, err
			}
			rec.Blob = blob
		default:
			v, err := d.readScalar(op)
			if err != nil {
				return nil, d.errat(err, "record operand")
			}
			rec.Values = append(rec.Values, v)
		}
	}
	return rec, nil
}

// SkipBlock abandons the innermost open block without
// decoding its remaining contents, using the block
// length declared at entry. No EventExitBlock is
// produced for a skipped block.
func (d *Decoder) SkipBlock() error {
	if d.err != nil {
		return d.err
	}
	if len(d.scopes) == 1 {
		return d.errat(ErrMalformed, "skip with no open block")
	}
	s := d.top()
	d.cur.seek(s.end) // bounds-checked on entry
	d.scopes = d.scopes[:len(d.scopes)-1]
	return nil
}
