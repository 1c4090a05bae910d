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

// Command bcdump prints the structure of LLVM bitstream
// files (bitcode, serialized diagnostics, and other
// bitstream-based artifacts) without interpreting their
// contents. Compressed inputs (zstd, gzip, s2) are
// decompressed transparently.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/SnellerInc/bitstream"
	"github.com/SnellerInc/bitstream/compr"
	"github.com/SnellerInc/bitstream/schema"
)

var (
	namefile = flag.String("names", "", "YAML name map for application-specific block and record ids")
	stats    = flag.Bool("stats", false, "print per-block-id statistics instead of the structure dump")
	check    = flag.Bool("check", false, "print the structural fingerprint only")
	lenient  = flag.Bool("lenient", false, "tolerate non-zero alignment padding")
)

func main() {
	flag.Parse()
	names := &schema.Names{}
	if *namefile != "" {
		data, err := os.ReadFile(*namefile)
		if err != nil {
			fatalf("reading %s: %s\n", *namefile, err)
		}
		extra, err := schema.Load(data)
		if err != nil {
			fatalf("%s: %s\n", *namefile, err)
		}
		names.Merge(extra)
	}
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"-"}
	}
	out := bufio.NewWriter(os.Stdout)
	for _, arg := range args {
		var data []byte
		var err error
		if arg == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(arg)
		}
		if err != nil {
			fatalf("can't read %q: %s\n", arg, err)
		}
		data, err = compr.Decompress(data)
		if err != nil {
			fatalf("%s: %s\n", arg, err)
		}
		if *check {
			fp, err := bitstream.Fingerprint(data)
			if err != nil {
				fatalf("%s: %s\n", arg, err)
			}
			fmt.Fprintf(out, "%016x  %s\n", fp, arg)
			continue
		}
		if err := dump(out, data, names); err != nil {
			out.Flush()
			fatalf("%s: %s\n", arg, err)
		}
	}
	if err := out.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatalf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

type blockstat struct {
	blocks  int
	records int
}

func dump(out *bufio.Writer, data []byte, names *schema.Names) error {
	d, err := bitstream.NewDecoder(data)
	if err != nil {
		return err
	}
	d.Lenient = *lenient
	if h := d.Header(); h.Wrapped {
		fmt.Fprintf(out, "<BITCODE_WRAPPER_HEADER Version=%d Offset=%d Size=%d CPUType=0x%x/>\n",
			h.Version, h.Offset, h.Size, h.CPUType)
	}
	perblock := make(map[int64]*blockstat)
	statfor := func(id int64) *blockstat {
		s := perblock[id]
		if s == nil {
			s = &blockstat{}
			perblock[id] = s
		}
		return s
	}
	var path []int64 // open block ids
	depth := 0
	indent := func() {
		for i := 0; i < depth; i++ {
			out.WriteString("  ")
		}
	}
	for {
		ev, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch ev.Kind {
		case bitstream.EventEnterBlock:
			statfor(ev.BlockID).blocks++
			if !*stats {
				indent()
				fmt.Fprintf(out, "<%s BlockCodeSize=%d>\n", blockname(d, names, ev.BlockID), ev.Width)
			}
			path = append(path, ev.BlockID)
			depth++
		case bitstream.EventExitBlock:
			path = path[:len(path)-1]
			depth--
			if !*stats {
				indent()
				fmt.Fprintf(out, "</%s>\n", blockname(d, names, ev.BlockID))
			}
		case bitstream.EventAbbrev:
			if !*stats {
				indent()
				fmt.Fprintf(out, "<DEFINE_ABBREV block=%d id=%d ops=%s/>\n", ev.BlockID, ev.Index, ev.Abbrev)
			}
		case bitstream.EventRecord:
			blockID := int64(-1)
			if len(path) > 0 {
				blockID = path[len(path)-1]
			}
			statfor(blockID).records++
			if !*stats {
				indent()
				writeRecord(out, d, names, blockID, ev.Record)
			}
		}
	}
	if *stats {
		ids := make([]int64, 0, len(perblock))
		for id := range perblock {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			s := perblock[id]
			fmt.Fprintf(out, "%-32s blocks=%-6d records=%d\n", blockname(d, names, id), s.blocks, s.records)
		}
	}
	return nil
}

func blockname(d *bitstream.Decoder, names *schema.Names, id int64) string {
	if id == -1 {
		return "TOP_LEVEL"
	}
	if bi := d.Info(id); bi != nil && bi.Name != "" {
		return bi.Name
	}
	if name, ok := names.Block(id); ok {
		return name
	}
	return fmt.Sprintf("UnknownBlock%d", id)
}

func recordname(d *bitstream.Decoder, names *schema.Names, blockID int64, code uint64) string {
	if bi := d.Info(blockID); bi != nil {
		if name, ok := bi.RecordNames[code]; ok {
			return name
		}
	}
	if name, ok := names.Record(blockID, code); ok {
		return name
	}
	return fmt.Sprintf("UnknownCode%d", code)
}

func writeRecord(out *bufio.Writer, d *bitstream.Decoder, names *schema.Names, blockID int64, r *bitstream.Record) {
	fmt.Fprintf(out, "<%s", recordname(d, names, blockID, r.Code))
	for i, v := range r.Values {
		fmt.Fprintf(out, " op%d=%d", i, v)
	}
	if r.Blob != nil {
		fmt.Fprintf(out, " blob=%d bytes", len(r.Blob))
	}
	if s := printable(r); s != "" {
		fmt.Fprintf(out, " record string = %q", s)
	}
	out.WriteString("/>\n")
}

// printable renders the record operands as text when
// every operand is a printable ASCII byte, the way
// llvm-bcanalyzer annotates name-carrying records.
func printable(r *bitstream.Record) string {
	if len(r.Values) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, v := range r.Values {
		if v < 0x20 || v >= 0x7f {
			return ""
		}
		sb.WriteByte(byte(v))
	}
	return sb.String()
}
