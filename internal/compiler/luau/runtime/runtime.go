// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package runtime contains the Luau runtime support library that generated
// code depends on.
package runtime

import (
	_ "embed"
	"regexp"
	"strings"
)

// Names under which generated code requires the runtime modules. Changing
// them breaks previously generated code.
const (
	Name       = "runtime"
	ExportName = "export_runtime"
)

// FileExtension is the extension of the runtime module files.
const FileExtension = ".luau"

// Version is incremented whenever the helper surface of the runtime changes
// incompatibly.
const Version = 1

// Source is the base runtime: memory, arithmetic and table primitives.
//
//go:embed runtime.luau
var Source string

// ExportSource is the export adapter runtime. It is required with the base
// runtime as its argument.
//
//go:embed export_runtime.luau
var ExportSource string

// Files returns the runtime modules keyed by file name.
func Files() map[string]string {
	return map[string]string{
		Name + FileExtension:       Source,
		ExportName + FileExtension: ExportSource,
	}
}

var aliasPattern = regexp.MustCompile(`(?m)^rt\.(\w+) = (\w+)$`)

// Defines returns true if the base runtime defines the helper with the given
// path relative to the runtime table, e.g. "add.i32" or "allocator.grow".
func Defines(helper string) bool {
	group, key, nested := strings.Cut(helper, ".")
	if !nested {
		return regexp.MustCompile(`(?m)^rt\.` + regexp.QuoteMeta(group) + ` = `).MatchString(Source)
	}

	g, k := regexp.QuoteMeta(group), regexp.QuoteMeta(key)

	// rt.group = { key = ..., ... }
	if regexp.MustCompile(`(?m)^rt\.` + g + ` = \{ [^\n]*\b` + k + ` = `).MatchString(Source) {
		return true
	}

	// rt.group = {\n\tkey = ...\n}
	block := regexp.MustCompile(`(?ms)^rt\.` + g + ` = \{\n(.*?)^\}`).FindStringSubmatch(Source)
	if block != nil {
		return regexp.MustCompile(`(?m)^\t` + k + ` = `).MatchString(block[1])
	}

	// rt.group = alias
	for _, m := range aliasPattern.FindAllStringSubmatch(Source, -1) {
		if m[1] != group {
			continue
		}
		a := regexp.QuoteMeta(m[2])
		return regexp.MustCompile(`(?m)^(function ` + a + `\.` + k + `\(|` + a + `\.` + k + ` = )`).MatchString(Source)
	}
	return false
}
