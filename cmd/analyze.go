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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/report"
	"github.com/spf13/cobra"
)

var optPlots bool
var optPlotVehicle string

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <row log>",
	Short: "Print distribution statistics for a row log",
	Long: `Reads a position accuracy CSV row log and prints per-session and per-vehicle
error distributions.

Flags:

  --plots    Also write PNG charts to an "analysis" directory next to the row log.
  --vehicle  Vehicle for the trajectory chart. Default is the first vehicle in the log.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setDefaultSlog(cmd, args)
		return runAnalyze(cmd, args[0])
	},
}

func runAnalyze(cmd *cobra.Command, rowLog string) error {
	f, err := os.Open(rowLog)
	if err != nil {
		return err
	}
	rows, err := report.ReadRows(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", rowLog, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: no entries", rowLog)
	}

	if err := report.Analyze(rows).WriteAnalysis(cmd.OutOrStdout()); err != nil {
		return err
	}
	if !optPlots {
		return nil
	}
	dir := filepath.Join(filepath.Dir(rowLog), "analysis")
	written, err := report.WritePlots(rows, dir, conceptual.EntityID(optPlotVehicle))
	for _, p := range written {
		slog.Info("Wrote plot", "path", p)
	}
	return err
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()
	flags.BoolVar(&optPlots, "plots", false, "Write PNG charts next to the row log")
	flags.StringVar(&optPlotVehicle, "vehicle", "", "Vehicle for the trajectory chart")
}
