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

// Package compr provides transparent decompression of
// compressed input buffers, wrapping third-party
// compression libraries. Bitcode artifacts are often
// stored compressed; front ends use this package so the
// decoding engine only ever sees raw buffers.
package compr

import (
	"bytes"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
	// s2/snappy stream identifier chunk
	s2Magic = []byte{0xff, 0x06, 0x00, 0x00}
)

var zstdDecoder *zstd.Decoder

func init() {
	// by default, concurrency is set to min(4, GOMAXPROCS);
	// we'd like it to *always* be GOMAXPROCS
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
}

// Sniff identifies the compression framing of src by
// its magic bytes. It returns "zstd", "gzip", "s2", or
// "" for anything unrecognized.
func Sniff(src []byte) string {
	switch {
	case bytes.HasPrefix(src, zstdMagic):
		return "zstd"
	case bytes.HasPrefix(src, gzipMagic):
		return "gzip"
	case bytes.HasPrefix(src, s2Magic):
		return "s2"
	default:
		return ""
	}
}

// Decompress decompresses src according to its sniffed
// framing. Unrecognized input is returned unchanged, so
// callers can pass every input buffer through it.
func Decompress(src []byte) ([]byte, error) {
	switch Sniff(src) {
	case "zstd":
		out, err := zstdDecoder.DecodeAll(src, nil)
		if err != nil {
			return nil, fmt.Errorf("compr: zstd: %w", err)
		}
		return out, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("compr: gzip: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("compr: gzip: %w", err)
		}
		return out, nil
	case "s2":
		r := s2.NewReader(bytes.NewReader(src))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("compr: s2: %w", err)
		}
		return out, nil
	default:
		return src, nil
	}
}
