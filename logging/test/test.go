// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package test provides a logger that buffers entries for assertions.
package test

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/open-policy-agent/wasm2luau/logging"
)

// LogEntry is a buffered log message.
type LogEntry struct {
	Level   logging.Level
	Fields  map[string]any
	Message string
}

// Logger buffers messages at or above its level. Loggers derived with
// WithFields share the buffer and the level of their parent.
type Logger struct {
	fields map[string]any
	shared *shared
}

type shared struct {
	mtx     sync.Mutex
	level   logging.Level
	entries []LogEntry
}

// New returns a Logger at Info level.
func New() *Logger {
	return &Logger{shared: &shared{level: logging.Info}}
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]any) logging.Logger {
	flds := make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(flds, l.fields)
	maps.Copy(flds, fields)
	return &Logger{fields: flds, shared: l.shared}
}

// Debug buffers a log message.
func (l *Logger) Debug(f string, a ...any) {
	l.append(logging.Debug, f, a...)
}

// Info buffers a log message.
func (l *Logger) Info(f string, a ...any) {
	l.append(logging.Info, f, a...)
}

// Error buffers a log message.
func (l *Logger) Error(f string, a ...any) {
	l.append(logging.Error, f, a...)
}

// Warn buffers a log message.
func (l *Logger) Warn(f string, a ...any) {
	l.append(logging.Warn, f, a...)
}

// SetLevel sets the level of the logger and every logger derived from it.
func (l *Logger) SetLevel(level logging.Level) {
	l.shared.mtx.Lock()
	defer l.shared.mtx.Unlock()
	l.shared.level = level
}

// GetLevel returns the level.
func (l *Logger) GetLevel() logging.Level {
	l.shared.mtx.Lock()
	defer l.shared.mtx.Unlock()
	return l.shared.level
}

// Entries returns a copy of the buffered entries.
func (l *Logger) Entries() []LogEntry {
	l.shared.mtx.Lock()
	defer l.shared.mtx.Unlock()
	return slices.Clone(l.shared.entries)
}

func (l *Logger) append(lvl logging.Level, f string, a ...any) {
	l.shared.mtx.Lock()
	defer l.shared.mtx.Unlock()
	if lvl > l.shared.level {
		return
	}
	l.shared.entries = append(l.shared.entries, LogEntry{
		Level:   lvl,
		Fields:  l.fields,
		Message: fmt.Sprintf(f, a...),
	})
}
