// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open-policy-agent/wasm2luau/codegen"
	"github.com/open-policy-agent/wasm2luau/util/test"
)

func TestWriteRuntime(t *testing.T) {
	tests := []struct {
		note   string
		config string
		dir    string
		exp    map[string]string
	}{
		{
			note: "defaults",
			dir:  "out",
			exp: map[string]string{
				"runtime.luau":        codegen.Runtime,
				"export_runtime.luau": codegen.ExportRuntime,
			},
		},
		{
			note:   "configured names",
			config: "runtime:\n  name: rt\n  export_name: rt_export\n",
			dir:    "nested/out",
			exp: map[string]string{
				"rt.luau":        codegen.Runtime,
				"rt_export.luau": codegen.ExportRuntime,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			files := map[string]string{}
			if tc.config != "" {
				files["config.yaml"] = tc.config
			}

			test.WithTempFS(files, func(root string) {
				var params runtimeCommandParams
				if tc.config != "" {
					params.configFile = filepath.Join(root, "config.yaml")
				}

				dir := filepath.Join(root, tc.dir)
				var out bytes.Buffer
				if err := writeRuntime(&out, params, dir); err != nil {
					t.Fatal(err)
				}

				got := map[string]string{}
				entries, err := os.ReadDir(dir)
				if err != nil {
					t.Fatal(err)
				}
				for _, e := range entries {
					bs, err := os.ReadFile(filepath.Join(dir, e.Name()))
					if err != nil {
						t.Fatal(err)
					}
					got[e.Name()] = string(bs)
				}

				if diff := cmp.Diff(tc.exp, got); diff != "" {
					t.Fatalf("unexpected files (-want, +got):\n%s", diff)
				}
				if lines := strings.Count(out.String(), "\n"); lines != len(tc.exp) {
					t.Fatalf("expected %d written paths, got:\n%s", len(tc.exp), out.String())
				}
			})
		})
	}
}

func TestWriteRuntimeBadConfig(t *testing.T) {
	files := map[string]string{
		"config.yaml": "runtime:\n  name: same\n  export_name: same\n",
	}

	test.WithTempFS(files, func(root string) {
		params := runtimeCommandParams{configFile: filepath.Join(root, "config.yaml")}
		err := writeRuntime(&bytes.Buffer{}, params, filepath.Join(root, "out"))
		if err == nil || !strings.Contains(err.Error(), "must differ") {
			t.Fatalf("expected name conflict error, got: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "out")); !os.IsNotExist(err) {
			t.Fatalf("expected no output directory, got: %v", err)
		}
	})
}

func TestRootCommand(t *testing.T) {
	var names []string
	for _, c := range RootCommand.Commands() {
		names = append(names, c.Name())
	}
	for _, exp := range []string{"runtime", "translate", "version"} {
		if !slices.Contains(names, exp) {
			t.Errorf("expected %q command, got %v", exp, names)
		}
	}
}
