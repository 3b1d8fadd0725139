// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
	"github.com/open-policy-agent/wasm2luau/util/test"
)

func adderModule(export string) *module.Module {
	return &module.Module{
		Version: 1,
		Type: module.TypeSection{
			Functions: []module.FunctionType{
				{Params: []types.ValueType{types.I32, types.I32}, Results: []types.ValueType{types.I32}},
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{0}},
		Export: module.ExportSection{
			Exports: []module.Export{
				{Name: export, Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 0}},
			},
		},
		Code: module.CodeSection{
			Segments: []module.CodeEntry{
				{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
					instruction.GetLocal{Index: 0},
					instruction.GetLocal{Index: 1},
					instruction.Numeric{Code: opcode.I32Add},
				}}}},
			},
		},
	}
}

func encode(t *testing.T, m *module.Module) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encoding.WriteModule(&buf, m); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

const adderOutput = `local rt = require("runtime")

return function(imports)
	local FUNC_LIST = {}
	FUNC_LIST[0] = function(loc_0, loc_1)
		return ((loc_0 + loc_1) % 4294967296)
	end
	return {
		["add"] = FUNC_LIST[0],
	}
end
`

func TestTranslate(t *testing.T) {
	files := map[string]string{
		"add.wasm": encode(t, adderModule("add")),
	}

	test.WithTempFS(files, func(root string) {
		params := newTranslateCommandParams()
		var stdout, stderr bytes.Buffer

		if err := translate(context.Background(), params, filepath.Join(root, "add.wasm"), &stdout, &stderr); err != nil {
			t.Fatal(err)
		}

		bs, err := os.ReadFile(filepath.Join(root, "add.luau"))
		if err != nil {
			t.Fatal(err)
		}
		test.AssertText(t, adderOutput, string(bs))
		if stdout.Len() != 0 {
			t.Fatalf("unexpected output: %s", stdout.String())
		}
		if !strings.Contains(stderr.String(), "Translated module.") {
			t.Fatalf("expected translation to be logged, got: %s", stderr.String())
		}
	})
}

func TestTranslateOptions(t *testing.T) {
	tests := []struct {
		note     string
		config   string
		setup    func(*translateCommandParams)
		contains []string
		absent   []string
	}{
		{
			note: "stdout",
			setup: func(p *translateCommandParams) {
				p.outputFile = stdoutPath
			},
			contains: []string{adderOutput},
		},
		{
			note: "export adapter",
			setup: func(p *translateCommandParams) {
				p.outputFile = stdoutPath
				p.exportAdapter = true
			},
			contains: []string{
				`local rt_export = require("export_runtime")(rt)`,
				`["add"] = rt_export.func(FUNC_LIST[0], "ii:i"),`,
			},
		},
		{
			note: "inline runtime",
			setup: func(p *translateCommandParams) {
				p.outputFile = stdoutPath
				p.inlineRuntime = true
			},
			contains: []string{"local rt = (function()\n"},
			absent:   []string{"require("},
		},
		{
			note:   "config file",
			config: "runtime:\n  name: lib/rt\nindent: \"  \"\n",
			setup: func(p *translateCommandParams) {
				p.outputFile = stdoutPath
			},
			contains: []string{
				`local rt = require("lib/rt")`,
				"\n  local FUNC_LIST = {}\n",
			},
		},
		{
			note:   "flags extend config file",
			config: "runtime:\n  inline: false\nexport_adapter: false\n",
			setup: func(p *translateCommandParams) {
				p.outputFile = stdoutPath
				p.exportAdapter = true
			},
			contains: []string{"rt_export.func("},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			files := map[string]string{
				"add.wasm": encode(t, adderModule("add")),
			}
			if tc.config != "" {
				files["config.yaml"] = tc.config
			}

			test.WithTempFS(files, func(root string) {
				params := newTranslateCommandParams()
				if tc.config != "" {
					params.configFile = filepath.Join(root, "config.yaml")
				}
				tc.setup(&params)

				var stdout bytes.Buffer
				if err := translate(context.Background(), params, filepath.Join(root, "add.wasm"), &stdout, io.Discard); err != nil {
					t.Fatal(err)
				}

				for _, s := range tc.contains {
					if !strings.Contains(stdout.String(), s) {
						t.Errorf("expected output to contain %q, got:\n%s", s, stdout.String())
					}
				}
				for _, s := range tc.absent {
					if strings.Contains(stdout.String(), s) {
						t.Errorf("expected output not to contain %q, got:\n%s", s, stdout.String())
					}
				}
			})
		})
	}
}

func TestTranslateFlavors(t *testing.T) {
	files := map[string]string{
		"add.wasm": encode(t, adderModule("add")),
	}

	test.WithTempFS(files, func(root string) {
		outputs := map[string]string{}
		for _, flavor := range []string{"untyped", "typed"} {
			params := newTranslateCommandParams()
			params.outputFile = stdoutPath
			if err := params.flavor.Set(flavor); err != nil {
				t.Fatal(err)
			}

			var stdout bytes.Buffer
			if err := translate(context.Background(), params, filepath.Join(root, "add.wasm"), &stdout, io.Discard); err != nil {
				t.Fatalf("%v: %v", flavor, err)
			}
			outputs[flavor] = stdout.String()
		}

		if outputs["typed"] != outputs["untyped"] {
			t.Fatalf("expected equal outputs, typed:\n%s\n\nuntyped:\n%s", outputs["typed"], outputs["untyped"])
		}
	})
}

func TestTranslateReports(t *testing.T) {
	files := map[string]string{
		"add.wasm": encode(t, adderModule("add")),
	}

	test.WithTempFS(files, func(root string) {
		path := filepath.Join(root, "add.wasm")

		t.Run("json", func(t *testing.T) {
			params := newTranslateCommandParams()
			params.stats = true
			params.metrics = true
			if err := params.format.Set(formatJSON); err != nil {
				t.Fatal(err)
			}

			var stdout bytes.Buffer
			if err := translate(context.Background(), params, path, &stdout, io.Discard); err != nil {
				t.Fatal(err)
			}

			var result struct {
				File  string `json:"file"`
				Stats struct {
					Functions   int    `json:"functions"`
					Exports     int    `json:"exports"`
					OutputBytes int    `json:"output_bytes"`
					Digest      string `json:"digest"`
				} `json:"stats"`
				Metrics map[string]any `json:"metrics"`
			}
			if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
				t.Fatalf("%v:\n%s", err, stdout.String())
			}

			if result.File != path {
				t.Errorf("unexpected file %q", result.File)
			}
			if result.Stats.Functions != 1 || result.Stats.Exports != 1 {
				t.Errorf("unexpected stats: %+v", result.Stats)
			}
			if result.Stats.OutputBytes != len(adderOutput) {
				t.Errorf("expected %d output bytes, got %d", len(adderOutput), result.Stats.OutputBytes)
			}
			for _, key := range []string{"timer_wasm_decode_ns", "timer_luau_translate_ns", "counter_luau_functions", "histogram_luau_function_bytes"} {
				if _, ok := result.Metrics[key]; !ok {
					t.Errorf("expected metric %q, got %v", key, result.Metrics)
				}
			}
		})

		t.Run("pretty to stderr", func(t *testing.T) {
			params := newTranslateCommandParams()
			params.outputFile = stdoutPath
			params.stats = true

			var stdout, stderr bytes.Buffer
			if err := translate(context.Background(), params, path, &stdout, &stderr); err != nil {
				t.Fatal(err)
			}

			if stdout.String() != adderOutput {
				t.Fatalf("expected only the translation on stdout, got:\n%s", stdout.String())
			}
			if !strings.Contains(stderr.String(), "functions") {
				t.Fatalf("expected stats table on stderr, got:\n%s", stderr.String())
			}
		})
	})
}

func TestTranslateErrors(t *testing.T) {
	files := map[string]string{
		"add.wasm":    encode(t, adderModule("add")),
		"bad.wasm":    "\x00asx\x01\x00\x00\x00",
		"config.yaml": "max_locals: 1000\n",
	}

	tests := []struct {
		note   string
		file   string
		setup  func(root string, p *translateCommandParams)
		expErr string
	}{
		{
			note:   "missing file",
			file:   "missing.wasm",
			expErr: "missing.wasm",
		},
		{
			note:   "bad magic",
			file:   "bad.wasm",
			expErr: "illegal magic value",
		},
		{
			note: "bad config",
			file: "add.wasm",
			setup: func(root string, p *translateCommandParams) {
				p.configFile = filepath.Join(root, "config.yaml")
			},
			expErr: "max_locals",
		},
		{
			note: "unwritable output",
			file: "add.wasm",
			setup: func(_ string, p *translateCommandParams) {
				p.outputFile = filepath.Join("missing", "dir", "add.luau")
			},
			expErr: "add.luau",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			test.WithTempFS(files, func(root string) {
				params := newTranslateCommandParams()
				if tc.setup != nil {
					tc.setup(root, &params)
				}
				if params.outputFile != "" && !filepath.IsAbs(params.outputFile) {
					params.outputFile = filepath.Join(root, params.outputFile)
				}

				err := translate(context.Background(), params, filepath.Join(root, tc.file), io.Discard, io.Discard)
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.expErr) {
					t.Fatalf("expected error containing %q, got: %v", tc.expErr, err)
				}
			})
		})
	}
}

func TestTranslateWatch(t *testing.T) {
	files := map[string]string{
		"add.wasm": encode(t, adderModule("add")),
	}

	test.WithTempFS(files, func(root string) {
		path := filepath.Join(root, "add.wasm")
		output := filepath.Join(root, "add.luau")

		params := newTranslateCommandParams()
		params.watch = true

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- translate(ctx, params, path, io.Discard, io.Discard)
		}()

		test.EventuallyOrFatal(t, 5*time.Second, func() bool {
			bs, err := os.ReadFile(output)
			return err == nil && string(bs) == adderOutput
		})

		// The watcher is started after the first translation, so keep
		// rewriting the module until a change is picked up.
		sum := encode(t, adderModule("sum"))
		test.EventuallyOrFatal(t, 5*time.Second, func() bool {
			if err := os.WriteFile(path, []byte(sum), 0o644); err != nil {
				t.Fatal(err)
			}
			bs, err := os.ReadFile(output)
			return err == nil && strings.Contains(string(bs), `["sum"] = FUNC_LIST[0],`)
		})

		cancel()
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	})
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		note   string
		output string
		path   string
		exp    string
	}{
		{note: "default", path: "dir/add.wasm", exp: "dir/add.luau"},
		{note: "no extension", path: "add", exp: "add.luau"},
		{note: "explicit", output: "out.lua", path: "add.wasm", exp: "out.lua"},
		{note: "stdout", output: "-", path: "add.wasm", exp: "-"},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := outputPath(tc.output, tc.path); got != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}
