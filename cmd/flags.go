// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/spf13/pflag"

	"github.com/open-policy-agent/wasm2luau/config"
	internal_logging "github.com/open-policy-agent/wasm2luau/internal/logging"
	"github.com/open-policy-agent/wasm2luau/util"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

func newFlavorFlag() *util.EnumFlag {
	return util.NewEnumFlag(config.FlavorUntyped, []string{config.FlavorUntyped, config.FlavorTyped})
}

func newLogLevelFlag() *util.EnumFlag {
	return util.NewEnumFlag("info", []string{"debug", "info", "warn", "error"})
}

func newLogFormatFlag() *util.EnumFlag {
	return util.NewEnumFlag(internal_logging.Formats[0], internal_logging.Formats)
}

func newFormatFlag() *util.EnumFlag {
	return util.NewEnumFlag(formatPretty, []string{formatPretty, formatJSON})
}

func addConfigFileFlag(fs *pflag.FlagSet, file *string) {
	fs.StringVarP(file, "config-file", "c", "", "set path of configuration file")
}

func addLogFlags(fs *pflag.FlagSet, level, format *util.EnumFlag) {
	fs.VarP(level, "log-level", "l", "set log level")
	fs.Var(format, "log-format", "set log format")
}
