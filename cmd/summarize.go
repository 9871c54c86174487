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
	"time"

	"github.com/rotblauer/posacc/accdb/flat"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
	"github.com/spf13/cobra"
)

var optSummaryOut string
var optSummaryWindow int

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize <row log>",
	Short: "Rebuild a statistics summary from a row log",
	Long: `Replays a position accuracy CSV row log through the aggregator
and writes the statistics summary it would have produced.

With no --output the summary goes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setDefaultSlog(cmd, args)
		return runSummarize(cmd, args[0])
	},
}

func runSummarize(cmd *cobra.Command, rowLog string) error {
	f, err := os.Open(rowLog)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := report.FromRowLog(f, report.Meta{Generated: time.Now(), LogFile: rowLog}, optSummaryWindow)
	if err != nil {
		return fmt.Errorf("%s: %w", rowLog, err)
	}
	if optSummaryOut == "" {
		return s.WriteText(cmd.OutOrStdout())
	}
	p, err := flat.NewFlatWithRoot(filepath.Dir(optSummaryOut)).WriteFileAtomic(filepath.Base(optSummaryOut), []byte(s.String()))
	if err != nil {
		return err
	}
	slog.Info("Wrote summary", "path", p, "entries", s.TotalEntriesLogged, "vehicles", s.ActiveVehicles)
	return nil
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	flags := summarizeCmd.Flags()
	flags.StringVarP(&optSummaryOut, "output", "o", "", "Write the summary to this file")
	flags.IntVar(&optSummaryWindow, "window", params.DefaultWindowSize, "Rolling window size per vehicle")
}
