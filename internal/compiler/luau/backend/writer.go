// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package backend

import (
	"fmt"
	"strings"
)

// writer accumulates indented lines of Luau source.
type writer struct {
	buf    strings.Builder
	indent string
	level  int
}

func newWriter(indent string, level int) *writer {
	return &writer{indent: indent, level: level}
}

func (w *writer) line(format string, a ...interface{}) {
	for i := 0; i < w.level; i++ {
		w.buf.WriteString(w.indent)
	}
	fmt.Fprintf(&w.buf, format, a...)
	w.buf.WriteByte('\n')
}

func (w *writer) in() {
	w.level++
}

func (w *writer) out() {
	w.level--
}

func (w *writer) String() string {
	return w.buf.String()
}
