// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package test

import (
	"testing"
	"time"
)

// Eventually polls f until it returns true or timeout expires.
func Eventually(t *testing.T, timeout time.Duration, f func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// EventuallyOrFatal fails t if f does not return true before timeout expires.
func EventuallyOrFatal(t *testing.T, timeout time.Duration, f func() bool) {
	t.Helper()
	if !Eventually(t, timeout, f) {
		t.Fatal("Timeout")
	}
}
