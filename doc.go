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

// Package bitstream decodes the LLVM bitstream container
// format: the bit-packed binary envelope used by LLVM
// bitcode, serialized diagnostics, and other
// bitstream-based artifacts.
//
// The package is deliberately structural: it decodes
// nested blocks, records and abbreviation definitions
// without assigning any meaning to them, so it can serve
// disassemblers, linkers, analyzers and validators that
// bring their own interpretation of the record contents.
//
// Decoding is driven by a Decoder, which walks an
// already-loaded, immutable byte buffer and yields a
// lazy sequence of structural events:
//
//	d, err := bitstream.NewDecoder(buf)
//	...
//	for {
//		ev, err := d.Next()
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// Parse materializes the same sequence into a tree, and
// Walk drives a callback Visitor with the ability to
// skip blocks wholesale.
//
// Decoding is deterministic and purely synchronous.
// A Decoder owns all of its state, so independent
// decodes may run concurrently on separate goroutines;
// a single Decoder must be confined to one goroutine.
// Malformed or adversarial input never panics the
// decoder: every failure surfaces as a *StreamError
// wrapping one of the package's sentinel errors, with
// the bit offset and block path of the failure.
package bitstream
