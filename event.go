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

import "fmt"

// EventKind discriminates the structural events
// produced by Decoder.Next.
type EventKind uint8

const (
	// EventEnterBlock reports entry into a sub-block;
	// BlockID and Width are set.
	EventEnterBlock EventKind = iota
	// EventExitBlock reports the end of the innermost
	// open block; BlockID is set.
	EventExitBlock
	// EventAbbrev reports a DEFINE_ABBREV; BlockID is
	// the block id the definition is visible to, Index
	// is the abbreviation id records will use, and
	// Abbrev is the definition.
	EventAbbrev
	// EventRecord reports a decoded record.
	EventRecord
)

func (k EventKind) String() string {
	switch k {
	case EventEnterBlock:
		return "enter-block"
	case EventExitBlock:
		return "exit-block"
	case EventAbbrev:
		return "define-abbrev"
	case EventRecord:
		return "record"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one element of the structural event sequence.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind    EventKind
	BlockID int64   // EventEnterBlock, EventExitBlock, EventAbbrev
	Width   uint    // EventEnterBlock: abbreviation id width
	Index   uint64  // EventAbbrev: abbreviation id (first custom id is 4)
	Abbrev  *Abbrev // EventAbbrev
	Record  *Record // EventRecord
}

func (e *Event) String() string {
	switch e.Kind {
	case EventEnterBlock:
		return fmt.Sprintf("enter-block(id=%d width=%d)", e.BlockID, e.Width)
	case EventExitBlock:
		return fmt.Sprintf("exit-block(id=%d)", e.BlockID)
	case EventAbbrev:
		return fmt.Sprintf("define-abbrev(block=%d id=%d ops=%s)", e.BlockID, e.Index, e.Abbrev)
	case EventRecord:
		return e.Record.String()
	default:
		return e.Kind.String()
	}
}
