// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/open-policy-agent/wasm2luau/logging"
)

func TestPrettyFormatter(t *testing.T) {
	tests := []struct {
		note   string
		level  logrus.Level
		fields logrus.Fields
		exp    string
	}{
		{
			note:  "no fields",
			level: logrus.InfoLevel,
			exp:   "[INFO] test\n\n",
		},
		{
			note:  "basic fields sorted",
			level: logrus.InfoLevel,
			fields: logrus.Fields{
				"string": "field_string",
				"number": 5,
				"nil":    nil,
				"error":  errors.New("field_error"),
			},
			exp: "[INFO] test\n" +
				"  error = \"field_error\"\n" +
				"  nil = null\n" +
				"  number = 5\n" +
				"  string = \"field_string\"\n\n",
		},
		{
			note:  "multi-line string",
			level: logrus.DebugLevel,
			fields: logrus.Fields{
				"code": "FUNC_LIST[1] = function(loc_0, loc_1)\n\treturn ((loc_0 + loc_1) % 4294967296)\nend\n",
			},
			exp: "[DEBUG] test\n" +
				"  code = |\n" +
				"      FUNC_LIST[1] = function(loc_0, loc_1)\n" +
				"      \treturn ((loc_0 + loc_1) % 4294967296)\n" +
				"      end\n\n",
		},
		{
			note:  "json string",
			level: logrus.WarnLevel,
			fields: logrus.Fields{
				"config": `{"max_locals":180}`,
			},
			exp: "[WARNING] test\n" +
				"  config = |\n" +
				"      {\n" +
				"        \"max_locals\": 180\n" +
				"      }\n\n",
		},
		{
			note:  "object",
			level: logrus.ErrorLevel,
			fields: logrus.Fields{
				"exports": map[string]any{"names": []string{"add"}},
			},
			exp: "[ERROR] test\n" +
				"  exports = |\n" +
				"      {\n" +
				"        \"names\": [\n" +
				"          \"add\"\n" +
				"        ]\n" +
				"      }\n\n",
		},
		{
			note:  "brackets in plain string",
			level: logrus.InfoLevel,
			fields: logrus.Fields{
				"name": "[not json",
			},
			exp: "[INFO] test\n  name = \"[not json\"\n\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			e := logrus.WithFields(tc.fields)
			e.Message = "test"
			e.Level = tc.level

			out, err := (&prettyFormatter{}).Format(e)
			if err != nil {
				t.Fatal(err)
			}
			if string(out) != tc.exp {
				t.Fatalf("expected:\n%q\ngot:\n%q", tc.exp, string(out))
			}
		})
	}
}

func TestPrettyFormatterUnsupportedField(t *testing.T) {
	e := logrus.WithFields(logrus.Fields{"callback": make(chan int)})
	e.Message = "test"

	_, err := (&prettyFormatter{}).Format(e)
	if err == nil || !strings.Contains(err.Error(), `field "callback"`) {
		t.Fatalf("expected field error, got: %v", err)
	}
}

func TestGetLevel(t *testing.T) {
	tests := []struct {
		note  string
		input string
		exp   logging.Level
		err   bool
	}{
		{note: "default", input: "", exp: logging.Info},
		{note: "debug", input: "debug", exp: logging.Debug},
		{note: "upper case", input: "WARN", exp: logging.Warn},
		{note: "error", input: "error", exp: logging.Error},
		{note: "invalid", input: "verbose", err: true},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			lvl, err := GetLevel(tc.input)
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if lvl != tc.exp {
				t.Fatalf("expected %v but got %v", tc.exp, lvl)
			}
		})
	}
}

func TestGetFormatter(t *testing.T) {
	if _, ok := GetFormatter("text", "").(*prettyFormatter); !ok {
		t.Fatal("expected pretty formatter for text")
	}
	f, ok := GetFormatter("json-pretty", "").(*logrus.JSONFormatter)
	if !ok || !f.PrettyPrint {
		t.Fatal("expected pretty JSON formatter")
	}
	if _, ok := GetFormatter("json", "").(*logrus.JSONFormatter); !ok {
		t.Fatal("expected JSON formatter")
	}
}

func TestConfigure(t *testing.T) {
	logger := logging.New()
	if err := Configure(logger, "debug", "text"); err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != logging.Debug {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}
	if err := Configure(logger, "loud", "text"); err == nil {
		t.Fatal("expected error")
	}
}
