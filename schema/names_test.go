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

package schema

import "testing"

func TestStandardNames(t *testing.T) {
	if got := BlockName(Module); got != "MODULE_BLOCK" {
		t.Errorf("BlockName(Module) = %q", got)
	}
	if got := BlockName(99); got != "" {
		t.Errorf("BlockName(99) = %q", got)
	}
	if got := RecordName(BlockInfo, 1); got != "SETBID" {
		t.Errorf("RecordName(BlockInfo, 1) = %q", got)
	}
	if got := RecordName(Module, 2); got != "TRIPLE" {
		t.Errorf("RecordName(Module, 2) = %q", got)
	}
	if got := RecordName(99, 1); got != "" {
		t.Errorf("RecordName(99, 1) = %q", got)
	}
}

func TestLoad(t *testing.T) {
	n, err := Load([]byte(`
blocks:
  30: "MY_BLOCK"
  8: "OVERRIDDEN_MODULE"
records:
  30:
    1: "MY_RECORD"
`))
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := n.Block(30); !ok || name != "MY_BLOCK" {
		t.Errorf("Block(30) = %q, %v", name, ok)
	}
	// user entries shadow the standard tables
	if name, _ := n.Block(8); name != "OVERRIDDEN_MODULE" {
		t.Errorf("Block(8) = %q", name)
	}
	// standard tables still resolve through the user map
	if name, ok := n.Block(Function); !ok || name != "FUNCTION_BLOCK" {
		t.Errorf("Block(Function) = %q, %v", name, ok)
	}
	if name, ok := n.Record(30, 1); !ok || name != "MY_RECORD" {
		t.Errorf("Record(30, 1) = %q, %v", name, ok)
	}
	if name, ok := n.Record(BlockInfo, 2); !ok || name != "BLOCKNAME" {
		t.Errorf("Record(BlockInfo, 2) = %q, %v", name, ok)
	}
	if _, ok := n.Record(30, 2); ok {
		t.Error("Record(30, 2) should not resolve")
	}
}

func TestLoadBad(t *testing.T) {
	if _, err := Load([]byte("blocks: [not, a, map]")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestMerge(t *testing.T) {
	var n Names
	n.Merge(nil) // no-op
	n.Merge(&Names{
		Blocks:  map[int64]string{40: "A"},
		Records: map[int64]map[uint64]string{40: {1: "R1"}},
	})
	n.Merge(&Names{
		Blocks:  map[int64]string{40: "B", 41: "C"},
		Records: map[int64]map[uint64]string{40: {2: "R2"}},
	})
	if name, _ := n.Block(40); name != "B" {
		t.Errorf("Block(40) = %q", name)
	}
	if name, _ := n.Block(41); name != "C" {
		t.Errorf("Block(41) = %q", name)
	}
	if name, _ := n.Record(40, 1); name != "R1" {
		t.Errorf("Record(40, 1) = %q", name)
	}
	if name, _ := n.Record(40, 2); name != "R2" {
		t.Errorf("Record(40, 2) = %q", name)
	}
}

func TestZeroValue(t *testing.T) {
	var n Names
	if name, ok := n.Block(Strtab); !ok || name != "STRTAB_BLOCK" {
		t.Errorf("Block(Strtab) = %q, %v", name, ok)
	}
	var nilNames *Names
	if name, ok := nilNames.Block(Type); !ok || name != "TYPE_BLOCK" {
		t.Errorf("nil receiver: %q, %v", name, ok)
	}
}
