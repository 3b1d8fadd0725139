// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging configures loggers from command line flags.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/wasm2luau/logging"
)

// Formats accepted by GetFormatter.
var Formats = []string{"text", "json", "json-pretty"}

// Configure applies a level and a format given on the command line to
// logger.
func Configure(logger *logging.StandardLogger, level, format string) error {
	lvl, err := GetLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(GetFormatter(format, ""))
	return nil
}

// GetLevel parses a log level name.
func GetLevel(level string) (logging.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logging.Debug, nil
	case "", "info":
		return logging.Info, nil
	case "warn":
		return logging.Warn, nil
	case "error":
		return logging.Error, nil
	default:
		return logging.Debug, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the logrus formatter for a log format name. Unknown
// names select JSON.
func GetFormatter(format, timestampFormat string) logrus.Formatter {
	switch format {
	case "text":
		return &prettyFormatter{}
	case "json-pretty":
		return &logrus.JSONFormatter{PrettyPrint: true, TimestampFormat: timestampFormat}
	default:
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
}

// prettyFormatter writes an entry as a "[LEVEL] message" line followed by
// one "key = value" line per field, sorted by key. Multi-line strings, such as
// generated Luau, are written as indented blocks. Other values are JSON.
type prettyFormatter struct{}

const (
	fieldIndent = "  "
	blockIndent = "      "
)

func (*prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		val, err := formatValue(e.Data[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		b.WriteString(fieldIndent)
		b.WriteString(k)
		if strings.Contains(val, "\n") {
			b.WriteString(" = |\n")
			b.WriteString(blockIndent)
		} else {
			b.WriteString(" = ")
		}
		b.WriteString(val)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func formatValue(v any) (string, error) {
	if err, ok := v.(error); ok {
		v = err.Error()
	}

	s, ok := v.(string)
	switch {
	case ok && strings.Contains(s, "\n"):
		lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
		return strings.Join(lines, "\n"+blockIndent), nil
	case ok && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) && json.Valid([]byte(s)):
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(s), blockIndent, "  "); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	bs, err := json.MarshalIndent(v, blockIndent, "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
