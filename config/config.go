// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config implements translator configuration file parsing and
// validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/wasm2luau/codegen"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/analyzer"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/backend"
	"github.com/open-policy-agent/wasm2luau/util"
)

// Instruction flavors a module can be translated as.
const (
	FlavorUntyped = "untyped"
	FlavorTyped   = "typed"
)

// maxLocalsLimit is the number of registers Luau allows a function to use.
const maxLocalsLimit = 200

// Config represents the configuration file the translator can be run with.
type Config struct {
	Runtime        Runtime `json:"runtime"`
	ExportAdapter  bool    `json:"export_adapter"`
	Flavor         string  `json:"flavor"`
	Indent         *string `json:"indent"`
	MaxInlineDepth int     `json:"max_inline_depth"`
	MaxLocals      int     `json:"max_locals"`
}

// Runtime configures how generated code refers to the runtime library.
type Runtime struct {
	Name       string `json:"name"`
	ExportName string `json:"export_name"`
	Inline     bool   `json:"inline"`
}

// ParseConfig returns a valid Config object with defaults injected.
func ParseConfig(raw []byte) (*Config, error) {
	var result Config
	if err := util.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, result.validateAndInjectDefaults()
}

// Load reads and parses the configuration file at path. An empty path yields
// the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return ParseConfig([]byte("{}"))
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseConfig(bs)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}

// Typed returns true if modules are translated as typed instructions.
func (c *Config) Typed() bool {
	return c.Flavor == FlavorTyped
}

// Options returns the translation options the configuration describes.
func (c *Config) Options() []codegen.Option {
	return []codegen.Option{
		codegen.RuntimeNames(c.Runtime.Name, c.Runtime.ExportName),
		codegen.InlineRuntime(c.Runtime.Inline),
		codegen.ExportAdapter(c.ExportAdapter),
		codegen.Indent(*c.Indent),
		codegen.MaxInlineDepth(c.MaxInlineDepth),
		codegen.MaxLocals(c.MaxLocals),
	}
}

func (c *Config) validateAndInjectDefaults() error {

	if c.Runtime.Name == "" {
		c.Runtime.Name = codegen.RuntimeName
	}

	if c.Runtime.ExportName == "" {
		c.Runtime.ExportName = codegen.ExportRuntimeName
	}

	if c.Runtime.Name == c.Runtime.ExportName {
		return fmt.Errorf("runtime.name and runtime.export_name must differ")
	}

	switch c.Flavor {
	case "":
		c.Flavor = FlavorUntyped
	case FlavorUntyped, FlavorTyped:
	default:
		return fmt.Errorf("invalid flavor %q: must be one of %v, %v", c.Flavor, FlavorUntyped, FlavorTyped)
	}

	if c.Indent == nil {
		s := backend.DefaultIndent
		c.Indent = &s
	}

	if *c.Indent == "" || strings.Trim(*c.Indent, " \t") != "" {
		return fmt.Errorf("indent must be a non-empty sequence of spaces and tabs")
	}

	switch {
	case c.MaxInlineDepth < 0:
		return fmt.Errorf("max_inline_depth must not be negative")
	case c.MaxInlineDepth == 0:
		c.MaxInlineDepth = analyzer.DefaultMaxInlineDepth
	}

	switch {
	case c.MaxLocals < 0 || c.MaxLocals > maxLocalsLimit:
		return fmt.Errorf("max_locals must be between 0 and %d", maxLocalsLimit)
	case c.MaxLocals == 0:
		c.MaxLocals = backend.DefaultMaxLocals
	}

	return nil
}
