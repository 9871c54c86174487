/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/rotblauer/posacc/gate"
	"github.com/rotblauer/posacc/params"
	"github.com/spf13/cobra"
)

var gateConfig = params.DefaultGateConfig()

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fail CI when the mean position error exceeds the threshold",
	Long: `Finds the newest session report in --log-dir (or reads --log-file),
and compares its mean position error, and optionally each vehicle's, to --threshold.

The check fails only when a mean error is strictly greater than the threshold;
an error equal to the threshold passes.
A report holding NaN or infinite errors is INCONCLUSIVE.

Exit codes:

  0  PASS
  1  FAIL
  2  NO_DATA       no report, or a report with no entries
  3  INCONCLUSIVE  a report that could not be read

Examples:

  posacc check --log-dir Logs/PositionAccuracy --threshold 1.5
  posacc check --log-file Logs/PositionAccuracy/position_accuracy_2025-11-04_12-30-00.csv
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		os.Exit(runCheck(cmd))
	},
}

func runCheck(cmd *cobra.Command) int {
	res := gate.Evaluate(gateConfig)
	if err := res.WriteReport(cmd.OutOrStdout()); err != nil {
		slog.Error("Failed to write report", "error", err)
	}
	return res.ExitCode()
}

func init() {
	rootCmd.AddCommand(checkCmd)

	flags := checkCmd.Flags()
	flags.StringVar(&gateConfig.Dir, "log-dir", gateConfig.Dir, "Directory searched for the newest report")
	flags.StringVar(&gateConfig.File, "log-file", gateConfig.File, "Explicit summary (.txt) or row log (.csv)")
	flags.StringVar(&gateConfig.Pattern, "pattern", gateConfig.Pattern, "Glob overriding the default report patterns")
	flags.Float64Var(&gateConfig.Threshold, "threshold", gateConfig.Threshold, "Maximum allowed mean position error, in meters")
	flags.BoolVar(&gateConfig.PerVehicle, "per-vehicle", gateConfig.PerVehicle, "Also check each vehicle's mean error")
}
