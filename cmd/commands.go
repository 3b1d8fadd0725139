// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cmd contains the wasm2luau command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// RootCommand is the base CLI command that all subcommands are added to.
var RootCommand = &cobra.Command{
	Use:          "wasm2luau",
	Short:        "WebAssembly to Luau translator",
	Long:         "Translate WebAssembly modules into Luau source that runs on the wasm2luau runtime library.",
	SilenceUsage: true,
}
