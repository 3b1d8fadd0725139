// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open-policy-agent/wasm2luau/util"
)

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		note  string
		input string
		exp   map[string]interface{}
		err   bool
	}{
		{
			note:  "json",
			input: `{"indent": "  ", "max_locals": 120}`,
			exp:   map[string]interface{}{"indent": "  ", "max_locals": json.Number("120")},
		},
		{
			note:  "yaml",
			input: "runtime:\n  inline: true\nmax_locals: 64\n",
			exp: map[string]interface{}{
				"runtime":    map[string]interface{}{"inline": true},
				"max_locals": json.Number("64"),
			},
		},
		{
			note:  "invalid",
			input: "runtime: [",
			err:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			var got map[string]interface{}
			err := util.Unmarshal([]byte(tc.input), &got)
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Fatalf("unexpected result (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalJSONTrailingContent(t *testing.T) {
	var x interface{}
	if err := util.UnmarshalJSON([]byte(`{"a": 1} {"b": 2}`), &x); err == nil {
		t.Fatal("expected error")
	}
}

func TestMustMarshalJSON(t *testing.T) {
	if got := string(util.MustMarshalJSON(map[string]int{"a": 1})); got != `{"a":1}` {
		t.Fatalf("unexpected JSON: %s", got)
	}
}
