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

import "io"

// Visitor receives callbacks from Walk.
type Visitor interface {
	// EnterBlock is called when a sub-block is entered.
	// Returning false skips the block's contents; no
	// ExitBlock call is made for a skipped block.
	EnterBlock(id int64, width uint) bool
	// ExitBlock is called when an entered block ends.
	ExitBlock(id int64)
	// Record is called for every record, with the id of
	// the block it appears in (-1 at top level).
	Record(blockID int64, r *Record)
}

// Walk decodes buf and drives v over its structure.
// Abbreviation definitions are processed but not
// reported; BLOCKINFO metadata is interpreted as usual.
func Walk(buf []byte, v Visitor) error {
	d, err := NewDecoder(buf)
	if err != nil {
		return err
	}
	cur := []int64{topLevelID}
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch ev.Kind {
		case EventEnterBlock:
			if !v.EnterBlock(ev.BlockID, ev.Width) {
				if err := d.SkipBlock(); err != nil {
					return err
				}
				continue
			}
			cur = append(cur, ev.BlockID)
		case EventExitBlock:
			cur = cur[:len(cur)-1]
			v.ExitBlock(ev.BlockID)
		case EventRecord:
			v.Record(cur[len(cur)-1], ev.Record)
		}
	}
}
