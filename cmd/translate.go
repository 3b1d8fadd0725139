// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-policy-agent/wasm2luau/cmd/internal/env"
	"github.com/open-policy-agent/wasm2luau/codegen"
	"github.com/open-policy-agent/wasm2luau/config"
	"github.com/open-policy-agent/wasm2luau/filewatcher"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/runtime"
	internal_logging "github.com/open-policy-agent/wasm2luau/internal/logging"
	"github.com/open-policy-agent/wasm2luau/logging"
	"github.com/open-policy-agent/wasm2luau/metrics"
	"github.com/open-policy-agent/wasm2luau/presentation"
	"github.com/open-policy-agent/wasm2luau/util"
)

// stdoutPath selects standard output as the translation output.
const stdoutPath = "-"

type translateCommandParams struct {
	outputFile    string
	flavor        *util.EnumFlag
	exportAdapter bool
	inlineRuntime bool
	configFile    string
	logLevel      *util.EnumFlag
	logFormat     *util.EnumFlag
	format        *util.EnumFlag
	stats         bool
	metrics       bool
	watch         bool
}

func newTranslateCommandParams() translateCommandParams {
	return translateCommandParams{
		flavor:    newFlavorFlag(),
		logLevel:  newLogLevelFlag(),
		logFormat: newLogFormatFlag(),
		format:    newFormatFlag(),
	}
}

func init() {
	params := newTranslateCommandParams()

	translateCommand := &cobra.Command{
		Use:   "translate <file.wasm>",
		Short: "Translate a WebAssembly module into Luau",
		Long: `Translate a WebAssembly module into Luau.

The output is a Luau chunk returning a function that takes the module imports
and returns its exports. By default it is written next to the input with the
.luau extension. Use '-o -' to write it to standard output.

Example:

    $ wasm2luau translate --export-adapter -o add.luau add.wasm

The generated code requires the runtime library, which the runtime command
writes. With --inline-runtime the library is embedded in the output instead.

Modules are translated as untyped instructions by default. With --flavor typed
the module is first annotated with the types of every value producing
instruction, and the annotations are checked while translating.

Flags can also be set with WASM2LUAU_<FLAG> environment variables, e.g.
WASM2LUAU_EXPORT_ADAPTER=true. Flags given on the command line take
precedence over the configuration file and the environment.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.CmdFlags.CheckEnvironmentVariables(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return translate(ctx, params, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fs := translateCommand.Flags()
	fs.StringVarP(&params.outputFile, "output", "o", "", "set the filename of the translated module ('-' for standard output)")
	fs.Var(params.flavor, "flavor", "set the instruction flavor the module is translated as")
	fs.BoolVar(&params.exportAdapter, "export-adapter", false, "wrap exports to convert between plain Luau values and runtime values")
	fs.BoolVar(&params.inlineRuntime, "inline-runtime", false, "embed the runtime library in the output")
	addConfigFileFlag(fs, &params.configFile)
	addLogFlags(fs, params.logLevel, params.logFormat)
	fs.VarP(params.format, "format", "f", "set the output format of statistics and metrics")
	fs.BoolVar(&params.stats, "stats", false, "print statistics of the translated module")
	fs.BoolVar(&params.metrics, "metrics", false, "print translation metrics")
	fs.BoolVarP(&params.watch, "watch", "w", false, "translate again whenever the module changes")

	RootCommand.AddCommand(translateCommand)
}

type translator struct {
	params translateCommandParams
	cfg    *config.Config
	logger logging.Logger
	stdout io.Writer
	stderr io.Writer
}

func translate(ctx context.Context, params translateCommandParams, path string, stdout, stderr io.Writer) error {
	logger := logging.New()
	logger.SetOutput(stderr)
	if err := internal_logging.Configure(logger, params.logLevel.String(), params.logFormat.String()); err != nil {
		return err
	}

	cfg, err := config.Load(params.configFile)
	if err != nil {
		return err
	}
	if params.flavor.IsSet() {
		cfg.Flavor = params.flavor.String()
	}
	cfg.ExportAdapter = cfg.ExportAdapter || params.exportAdapter
	cfg.Runtime.Inline = cfg.Runtime.Inline || params.inlineRuntime

	t := &translator{
		params: params,
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}

	if err := t.run(path); err != nil {
		if !params.watch {
			return err
		}
		logger.Error("%v", err)
	}

	if !params.watch {
		return nil
	}

	watcher := filewatcher.NewFileWatcher([]string{path}, func(_ context.Context, path string) {
		if err := t.run(path); err != nil {
			logger.Error("%v", err)
		}
	}, logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Close()

	logger.Info("Watching %v for changes.", path)
	<-ctx.Done()
	return nil
}

// run translates the module at path and writes the output and the requested
// reports.
func (t *translator) run(path string) error {
	m := metrics.New()

	mod, err := t.read(path, m)
	if err != nil {
		return fmt.Errorf("%v: %w", path, err)
	}

	opts := append(t.cfg.Options(), codegen.Logger(t.logger), codegen.Metrics(m))

	var out string
	if t.cfg.Typed() {
		typed, err := codegen.Annotate(mod)
		if err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}
		out, err = codegen.FromModuleTyped(typed, opts...)
		if err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}
	} else {
		out, err = codegen.FromModuleUntyped(mod, opts...)
		if err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}
	}

	dest := outputPath(t.params.outputFile, path)
	report := t.stdout
	if dest == stdoutPath {
		fmt.Fprint(t.stdout, out)
		report = t.stderr
	} else if err := os.WriteFile(dest, []byte(out), 0o644); err != nil {
		return err
	}

	t.logger.WithFields(map[string]any{
		"file":   path,
		"output": dest,
		"bytes":  len(out),
	}).Info("Translated module.")

	if !t.params.stats && !t.params.metrics {
		return nil
	}

	result := presentation.Result{File: path}
	if t.params.stats {
		stats := presentation.NewStats(mod, out)
		result.Stats = &stats
	}
	if t.params.metrics {
		result.Metrics = m.All()
	}

	if t.params.format.String() == formatJSON {
		return presentation.PrintJSON(report, result)
	}
	presentation.PrintPretty(report, result)
	return nil
}

func (*translator) read(path string, m metrics.Metrics) (*codegen.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m.Timer(metrics.WasmDecode).Start()
	defer m.Timer(metrics.WasmDecode).Stop()

	return codegen.ReadModule(f)
}

// outputPath returns the file a translation of path is written to.
func outputPath(output, path string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + runtime.FileExtension
}
