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
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/state"
	"github.com/spf13/cobra"
)

var optSessionsDir string

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		setDefaultSlog(cmd, args)
		return runSessions(cmd)
	},
}

func runSessions(cmd *cobra.Command) error {
	x, err := state.OpenIndex(optSessionsDir, true)
	if err != nil {
		return err
	}
	defer x.Close()

	records, err := x.Sessions()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAMP\tFINISHED\tENTRIES\tVEHICLES\tMEAN (m)\tMAX (m)\tSUMMARY")
	for _, r := range records {
		summary := r.Summary
		if r.LogDisabled {
			summary += " (no row log)"
		}
		if r.NonFinite {
			summary += " (non-finite errors)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%.4f\t%s\n",
			r.Stamp, humanize.Time(r.Finished), humanize.Comma(r.Entries), r.Vehicles,
			r.AverageError, r.MaxError, summary)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVar(&optSessionsDir, "out", params.DefaultOutputDir, "Session output directory holding the index")
}
