// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/open-policy-agent/wasm2luau/cmd/internal/env"
	"github.com/open-policy-agent/wasm2luau/codegen"
	"github.com/open-policy-agent/wasm2luau/config"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/runtime"
)

type runtimeCommandParams struct {
	configFile string
}

func init() {
	var params runtimeCommandParams

	runtimeCommand := &cobra.Command{
		Use:   "runtime [<directory>]",
		Short: "Write the Luau runtime library",
		Long: `Write the Luau runtime library to a directory.

Generated code requires the runtime modules by name. The runtime command writes
them as <name>.luau files, using the names from the configuration file if one
is given, so they can be placed next to the translated modules.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return writeRuntime(cmd.OutOrStdout(), params, dir)
		},
	}

	addConfigFileFlag(runtimeCommand.Flags(), &params.configFile)
	RootCommand.AddCommand(runtimeCommand)
}

func writeRuntime(out io.Writer, params runtimeCommandParams, dir string) error {
	cfg, err := config.Load(params.configFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name   string
		source string
	}{
		{cfg.Runtime.Name, codegen.Runtime},
		{cfg.Runtime.ExportName, codegen.ExportRuntime},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name+runtime.FileExtension)
		if err := os.WriteFile(path, []byte(f.source), 0o644); err != nil {
			return err
		}
		fmt.Fprintln(out, path)
	}
	return nil
}
