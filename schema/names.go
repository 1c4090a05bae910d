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

// Package schema names the standard LLVM block ids and
// record codes so that tools can label structural dumps.
//
// The tables here cover the container-level ids fixed by
// the bitstream format and the well-known ids of LLVM IR
// bitcode. Application-specific streams can extend them
// with a user-supplied YAML name map (see Load).
package schema

import (
	"fmt"

	"golang.org/x/exp/maps"
	"sigs.k8s.io/yaml"
)

// Standard block ids. Ids 0-7 are reserved by the
// container format; application ids start at 8.
const (
	BlockInfo               = 0
	Module                  = 8
	ParamAttr               = 9
	ParamAttrGroup          = 10
	Constants               = 11
	Function                = 12
	Identification          = 13
	ValueSymtab             = 14
	Metadata                = 15
	MetadataAttachment      = 16
	Type                    = 17
	Uselist                 = 18
	ModuleStrtab            = 19
	GlobalvalSummary        = 20
	OperandBundleTags       = 21
	MetadataKind            = 22
	Strtab                  = 23
	FullLtoGlobalvalSummary = 24
	Symtab                  = 25
	SyncScopeNames          = 26
)

var blockNames = map[int64]string{
	BlockInfo:               "BLOCKINFO_BLOCK",
	Module:                  "MODULE_BLOCK",
	ParamAttr:               "PARAMATTR_BLOCK",
	ParamAttrGroup:          "PARAMATTR_GROUP_BLOCK",
	Constants:               "CONSTANTS_BLOCK",
	Function:                "FUNCTION_BLOCK",
	Identification:          "IDENTIFICATION_BLOCK",
	ValueSymtab:             "VALUE_SYMTAB",
	Metadata:                "METADATA_BLOCK",
	MetadataAttachment:      "METADATA_ATTACHMENT_BLOCK",
	Type:                    "TYPE_BLOCK",
	Uselist:                 "USELIST_BLOCK",
	ModuleStrtab:            "MODULE_STRTAB_BLOCK",
	GlobalvalSummary:        "GLOBALVAL_SUMMARY_BLOCK",
	OperandBundleTags:       "OPERAND_BUNDLE_TAGS_BLOCK",
	MetadataKind:            "METADATA_KIND_BLOCK",
	Strtab:                  "STRTAB_BLOCK",
	FullLtoGlobalvalSummary: "FULL_LTO_GLOBALVAL_SUMMARY_BLOCK",
	Symtab:                  "SYMTAB_BLOCK",
	SyncScopeNames:          "SYNC_SCOPE_NAMES_BLOCK",
}

var recordNames = map[int64]map[uint64]string{
	BlockInfo: {
		1: "SETBID",
		2: "BLOCKNAME",
		3: "SETRECORDNAME",
	},
	Module: {
		1:  "VERSION",
		2:  "TRIPLE",
		3:  "DATALAYOUT",
		4:  "ASM",
		5:  "SECTIONNAME",
		6:  "DEPLIB",
		7:  "GLOBALVAR",
		8:  "FUNCTION",
		9:  "ALIAS_OLD",
		11: "GCNAME",
		12: "COMDAT",
		13: "VSTOFFSET",
		14: "ALIAS",
		16: "SOURCE_FILENAME",
		17: "HASH",
		18: "IFUNC",
	},
	Identification: {
		1: "STRING",
		2: "EPOCH",
	},
	Type: {
		1:  "NUMENTRY",
		2:  "VOID",
		3:  "FLOAT",
		4:  "DOUBLE",
		5:  "LABEL",
		6:  "OPAQUE",
		7:  "INTEGER",
		8:  "POINTER",
		9:  "FUNCTION_OLD",
		10: "HALF",
		11: "ARRAY",
		12: "VECTOR",
		13: "X86_FP80",
		14: "FP128",
		15: "PPC_FP128",
		16: "METADATA",
		17: "X86_MMX",
		18: "STRUCT_ANON",
		19: "STRUCT_NAME",
		20: "STRUCT_NAMED",
		21: "FUNCTION",
		22: "TOKEN",
	},
	ValueSymtab: {
		1: "ENTRY",
		2: "BBENTRY",
		3: "FNENTRY",
		5: "COMBINED_ENTRY",
	},
	OperandBundleTags: {
		1: "TAG",
	},
	Strtab: {
		1: "BLOB",
	},
	Symtab: {
		1: "BLOB",
	},
}

// BlockName returns the well-known name of a block id,
// or "" if the id has no standard name.
func BlockName(id int64) string {
	return blockNames[id]
}

// RecordName returns the well-known name of a record
// code within the given block id, or "".
func RecordName(blockID int64, code uint64) string {
	return recordNames[blockID][code]
}

// Names is a user-extensible name map. The zero value
// resolves only the standard names; entries added via
// Load or the maps themselves take precedence.
type Names struct {
	// Blocks maps block id to block name.
	Blocks map[int64]string `json:"blocks"`
	// Records maps block id to record code to name.
	Records map[int64]map[uint64]string `json:"records"`
}

// Load parses a YAML (or JSON) name map of the form
//
//	blocks:
//	  30: "MY_BLOCK"
//	records:
//	  30:
//	    1: "MY_RECORD"
//
// and merges it over the standard tables.
func Load(data []byte) (*Names, error) {
	n := &Names{}
	if err := yaml.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("schema: parsing name map: %w", err)
	}
	return n, nil
}

// Block resolves a block name through the user map and
// then the standard tables; ok indicates a hit.
func (n *Names) Block(id int64) (string, bool) {
	if n != nil {
		if name, ok := n.Blocks[id]; ok {
			return name, true
		}
	}
	name := BlockName(id)
	return name, name != ""
}

// Record resolves a record code name through the user
// map and then the standard tables.
func (n *Names) Record(blockID int64, code uint64) (string, bool) {
	if n != nil {
		if name, ok := n.Records[blockID][code]; ok {
			return name, true
		}
	}
	name := RecordName(blockID, code)
	return name, name != ""
}

// Merge folds other's entries into n, overwriting
// duplicates. A nil other is a no-op.
func (n *Names) Merge(other *Names) {
	if other == nil {
		return
	}
	if other.Blocks != nil {
		if n.Blocks == nil {
			n.Blocks = make(map[int64]string, len(other.Blocks))
		}
		maps.Copy(n.Blocks, other.Blocks)
	}
	for id, recs := range other.Records {
		if n.Records == nil {
			n.Records = make(map[int64]map[uint64]string)
		}
		if n.Records[id] == nil {
			n.Records[id] = make(map[uint64]string, len(recs))
		}
		maps.Copy(n.Records[id], recs)
	}
}
