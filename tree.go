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

// Element is either a nested block or a record;
// exactly one field is non-nil.
type Element struct {
	Block  *Block
	Record *Record
}

// Block is a materialized block: its id and its
// children in stream order.
type Block struct {
	ID    int64
	Elems []Element
}

// File is a fully materialized bitstream.
type File struct {
	Header Header
	Elems  []Element            // top-level blocks and records
	Info   map[int64]*BlockInfo // decoded BLOCKINFO metadata
}

// Parse materializes the entire structure of buf.
// The event-based Decoder should be preferred for
// streaming consumption; Parse is for tools that want
// random access to the decoded tree.
func Parse(buf []byte) (*File, error) {
	d, err := NewDecoder(buf)
	if err != nil {
		return nil, err
	}
	f := &File{Header: d.Header()}
	var stack []*Block
	push := func(e Element) {
		if len(stack) == 0 {
			f.Elems = append(f.Elems, e)
			return
		}
		top := stack[len(stack)-1]
		top.Elems = append(top.Elems, e)
	}
	for {
		ev, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case EventEnterBlock:
			stack = append(stack, &Block{ID: ev.BlockID})
		case EventExitBlock:
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			push(Element{Block: b})
		case EventRecord:
			push(Element{Record: ev.Record})
		}
	}
	f.Info = d.info
	return f, nil
}
