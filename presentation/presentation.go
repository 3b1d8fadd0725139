// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package presentation prints translation statistics and metrics in json and
// tabular formats.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/olekukonko/tablewriter"

	"github.com/open-policy-agent/wasm2luau/codegen"
)

// Stats describes a translated module and its output.
type Stats struct {
	Types       int    `json:"types"`
	Imports     int    `json:"imports"`
	Functions   int    `json:"functions"`
	Tables      int    `json:"tables"`
	Memories    int    `json:"memories"`
	Globals     int    `json:"globals"`
	Exports     int    `json:"exports"`
	Elements    int    `json:"elements"`
	Data        int    `json:"data"`
	OutputBytes int    `json:"output_bytes"`
	Digest      string `json:"digest"`
}

// NewStats returns the statistics of translating m into out. The digest is
// the xxhash of out, so unchanged output can be recognized across runs.
func NewStats(m *codegen.Module, out string) Stats {
	return Stats{
		Types:       len(m.Type.Functions),
		Imports:     len(m.Import.Imports),
		Functions:   len(m.Function.TypeIndices),
		Tables:      len(m.Table.Tables),
		Memories:    len(m.Memory.Memories),
		Globals:     len(m.Global.Globals),
		Exports:     len(m.Export.Exports),
		Elements:    len(m.Element.Segments),
		Data:        len(m.Data.Segments),
		OutputBytes: len(out),
		Digest:      Digest(out),
	}
}

// Digest returns the hex encoded xxhash of s.
func Digest(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Result holds the statistics and metrics of a translation.
type Result struct {
	File    string         `json:"file,omitempty"`
	Stats   *Stats         `json:"stats,omitempty"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// PrintJSON prints indented json output.
func PrintJSON(writer io.Writer, x any) error {
	buf, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(writer, string(buf))
	return nil
}

// PrintPretty prints statistics and metrics in a tabular format.
func PrintPretty(writer io.Writer, result Result) {
	if result.Stats != nil {
		PrintPrettyStats(writer, *result.Stats)
	}
	PrintPrettyMetrics(writer, result.Metrics)
}

// PrintPrettyStats prints statistics in a tabular format
func PrintPrettyStats(writer io.Writer, stats Stats) {
	// The footer carries the digest, which must keep its case.
	table := generateTable(writer, "SECTION", "COUNT")
	table.SetAutoFormatHeaders(false)
	table.AppendBulk([][]string{
		{"types", strconv.Itoa(stats.Types)},
		{"imports", strconv.Itoa(stats.Imports)},
		{"functions", strconv.Itoa(stats.Functions)},
		{"tables", strconv.Itoa(stats.Tables)},
		{"memories", strconv.Itoa(stats.Memories)},
		{"globals", strconv.Itoa(stats.Globals)},
		{"exports", strconv.Itoa(stats.Exports)},
		{"elements", strconv.Itoa(stats.Elements)},
		{"data", strconv.Itoa(stats.Data)},
	})
	table.SetFooter([]string{"output", fmt.Sprintf("%d bytes (%s)", stats.OutputBytes, stats.Digest)})
	table.Render()
}

// PrintPrettyMetrics prints metrics in a tabular format
func PrintPrettyMetrics(writer io.Writer, data map[string]any) {
	table := generateTable(writer, "Name", "Value")
	populateTableMetrics(data, table)
	if table.NumLines() > 0 {
		fmt.Fprintln(writer)
		table.Render()
	}
}

func generateTable(writer io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	alignment := make([]int, len(header))
	for i := range alignment {
		alignment[i] = tablewriter.ALIGN_LEFT
	}
	table.SetColumnAlignment(alignment)
	return table
}

func populateTableMetrics(data map[string]any, table *tablewriter.Table) {
	lines := [][]string{}
	for name, value := range data {
		val, ok := value.(map[string]any)
		if !ok {
			lines = append(lines, []string{name, fmt.Sprintf("%v", value)})
			continue
		}
		for k, v := range val {
			lines = append(lines, []string{fmt.Sprintf("%v_%v", name, k), fmt.Sprintf("%v", v)})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i][0] < lines[j][0]
	})
	table.AppendBulk(lines)
}
