// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package encoding implements WASM module reading and writing.
package encoding

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

const (
	magic   = uint32(0x6d736100)
	version = uint32(1)
)

const (
	customSectionID    uint8 = 0
	typeSectionID      uint8 = 1
	importSectionID    uint8 = 2
	functionSectionID  uint8 = 3
	tableSectionID     uint8 = 4
	memorySectionID    uint8 = 5
	globalSectionID    uint8 = 6
	exportSectionID    uint8 = 7
	startSectionID     uint8 = 8
	elementSectionID   uint8 = 9
	codeSectionID      uint8 = 10
	dataSectionID      uint8 = 11
	dataCountSectionID uint8 = 12
)

const (
	functionTypeID   byte = 0x60
	emptyBlockType   byte = 0x40
	moduleNameSubsec byte = 0
	funcNamesSubsec  byte = 1
	constantMutable  byte = 0
	variableMutable  byte = 1
	limitsMinOnly    byte = 0
	limitsMinMax     byte = 1
)

const (
	nameSectionName  = "name"
	maxLocalsPerFunc = 50000
)

const (
	importFunc   byte = 0
	importTable  byte = 1
	importMemory byte = 2
	importGlobal byte = 3
)

var sectionNames = map[uint8]string{
	customSectionID:    "custom",
	typeSectionID:      "type",
	importSectionID:    "import",
	functionSectionID:  "function",
	tableSectionID:     "table",
	memorySectionID:    "memory",
	globalSectionID:    "global",
	exportSectionID:    "export",
	startSectionID:     "start",
	elementSectionID:   "element",
	codeSectionID:      "code",
	dataSectionID:      "data",
	dataCountSectionID: "datacount",
}

func validValueType(b byte) bool {
	return types.ValueType(b).Valid()
}
