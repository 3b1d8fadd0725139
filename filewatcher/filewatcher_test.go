// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/open-policy-agent/wasm2luau/logging"
	loggingtest "github.com/open-policy-agent/wasm2luau/logging/test"
	"github.com/open-policy-agent/wasm2luau/util/test"
)

type recorder struct {
	mtx   sync.Mutex
	paths []string
}

func (r *recorder) onChange(_ context.Context, path string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) seen(path string) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return slices.Contains(r.paths, path)
}

func TestFileWatcher(t *testing.T) {
	files := map[string]string{
		"a.wasm":     "",
		"other.wasm": "",
	}

	test.WithTempFS(files, func(root string) {
		watched := filepath.Join(root, "a.wasm")
		other := filepath.Join(root, "other.wasm")

		var rec recorder
		logger := loggingtest.New()
		logger.SetLevel(logging.Debug)

		w := NewFileWatcher([]string{watched}, rec.onChange, logger)
		if err := w.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer w.Close()

		if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(watched, []byte("\x00asm"), 0o644); err != nil {
			t.Fatal(err)
		}

		test.EventuallyOrFatal(t, 5*time.Second, func() bool {
			return rec.seen(watched)
		})

		if rec.seen(other) {
			t.Fatalf("unexpected change notification for %v", other)
		}

		var watching []string
		for _, e := range logger.Entries() {
			if e.Message == "watching path" {
				watching = append(watching, e.Fields["path"].(string))
			}
		}
		if diff := cmp.Diff([]string{root}, watching); diff != "" {
			t.Fatalf("unexpected watched paths (-want, +got):\n%s", diff)
		}
	})
}

func TestFileWatcherRecreate(t *testing.T) {
	test.WithTempFS(map[string]string{"a.wasm": ""}, func(root string) {
		watched := filepath.Join(root, "a.wasm")

		var rec recorder
		w := NewFileWatcher([]string{watched}, rec.onChange, nil)
		if err := w.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		defer w.Close()

		// Replace the file the way build tools do.
		tmp := filepath.Join(root, "a.wasm.tmp")
		if err := os.WriteFile(tmp, []byte("\x00asm"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(tmp, watched); err != nil {
			t.Fatal(err)
		}

		test.EventuallyOrFatal(t, 5*time.Second, func() bool {
			return rec.seen(watched)
		})
	})
}

func TestFileWatcherMissingDirectory(t *testing.T) {
	w := NewFileWatcher([]string{filepath.Join(t.TempDir(), "missing", "a.wasm")}, func(context.Context, string) {}, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Close()
		t.Fatal("expected error watching a missing directory")
	}
}

func TestFileWatcherClose(t *testing.T) {
	test.WithTempFS(map[string]string{"a.wasm": ""}, func(root string) {
		w := NewFileWatcher([]string{filepath.Join(root, "a.wasm")}, func(context.Context, string) {}, nil)

		if err := w.Close(); err != nil {
			t.Fatalf("unexpected error closing an unstarted watcher: %v", err)
		}
		if err := w.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("unexpected error closing twice: %v", err)
		}
	})
}

func TestFileWatcherContextCancel(t *testing.T) {
	test.WithTempFS(map[string]string{"a.wasm": ""}, func(root string) {
		ctx, cancel := context.WithCancel(context.Background())
		w := NewFileWatcher([]string{filepath.Join(root, "a.wasm")}, func(context.Context, string) {}, nil)
		if err := w.Start(ctx); err != nil {
			t.Fatal(err)
		}
		cancel()
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	})
}
