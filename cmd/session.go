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
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rotblauer/posacc/archive"
	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/daemon/webd"
	"github.com/rotblauer/posacc/gz"
	"github.com/rotblauer/posacc/metrics/influxdb"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/session"
	"github.com/rotblauer/posacc/stream"
	"github.com/spf13/cobra"
)

var optInput string
var optRecord bool

var (
	sessionConfig = params.DefaultSessionConfig()
	webConfig     = params.DefaultWebDaemonConfig()
	influxConfig  = params.DefaultInfluxConfig()
	archiveConfig = params.DefaultArchiveConfig()
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Log position accuracy from a transport stream on stdin",
	Long: `Reads JSON lines from stdin, one message per line:

  {"type":"frame","step":1,"time":0.1,"reference":[...],"rendered":[...]}
  {"type":"export"}
  {"type":"clear"}
  {"type":"end"}

Frames are sampled every --interval seconds of simulated time. Each sample
is appended to a CSV row log, and a statistics summary is written when the session ends.
The session ends on "end", EOF, or SIGINT/SIGTERM. Each of these writes the final summary.

Examples:

  simbridge | posacc session --out Logs/PositionAccuracy --interval 0.1
  posacc session --overlay localhost:3333 --input transport_2025-11-04_12-30-00.jsonl.gz
  simbridge | posacc session --record
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		os.Exit(runSession())
	},
}

func runSession() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := session.New(*sessionConfig)

	if webConfig.Address != "" {
		webConfig.SummaryDir = sessionConfig.OutputDir
		server, err := webd.NewWebDaemon(webConfig)
		if err != nil {
			slog.Error("Failed to create overlay", "error", err)
		} else {
			server.Attach(ctx, s)
			go func() {
				if err := server.Run(ctx); err != nil {
					slog.Error("Overlay stopped", "error", err)
				}
			}()
		}
	}

	influxDone := make(chan struct{})
	if influxConfig.URL != "" {
		sink, err := influxdb.NewSink(influxConfig)
		if err != nil {
			slog.Error("Failed to create InfluxDB sink", "error", err)
			close(influxDone)
		} else {
			sinkDone := sink.Attach(ctx, s)
			go func() {
				defer close(influxDone)
				if err := <-sinkDone; err != nil {
					slog.Warn("InfluxDB export had errors", "error", err)
				}
			}()
		}
	} else {
		close(influxDone)
	}

	code := 0
	if err := consume(ctx, s, optInput, optRecord, common.Interrupted()); err != nil {
		slog.Error("Session failed", "error", err)
		code = 1
	}

	if archiveConfig.Bucket != "" && s.Enabled() {
		archiveSession(s)
	}

	cancel()
	select {
	case <-influxDone:
	case <-time.After(10 * time.Second):
		slog.Warn("Timed out waiting for InfluxDB flush")
	}
	return code
}

// consume feeds the transport at input to s until it ends or a signal arrives,
// then finalizes s. With record, the raw transport is also written to a gzipped
// recording next to the session artifacts.
func consume(ctx context.Context, s *session.Session, input string, record bool, interrupt <-chan os.Signal) error {
	in, err := gz.OpenInput(input)
	if err != nil {
		return errors.Join(err, s.Finalize())
	}
	defer in.Close()

	var r io.Reader = in
	closeRecording := func() {}
	if record && s.Stamp() != "" {
		dir := filepath.Dir(s.RowLogPath())
		if s.RowLogPath() == "" {
			dir = sessionConfig.OutputDir
		}
		rec, err := gz.NewGZFileWriter(filepath.Join(dir, gz.RecordingName(s.Stamp())), nil)
		if err != nil {
			slog.Error("Failed to create transport recording", "error", err)
		} else {
			closeRecording = func() {
				if err := rec.Close(); err != nil {
					slog.Error("Failed to close transport recording", "error", err)
				}
			}
			slog.Info("Recording transport", "path", rec.Path())
			r = io.TeeReader(in, rec)
		}
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	msgs, errs := stream.ReadMessages(readCtx, r)

readLoop:
	for {
		select {
		case sig := <-interrupt:
			slog.Warn("Received signal", "signal", sig)
			break readLoop
		case m, ok := <-msgs:
			if !ok {
				slog.Info("Transport closed")
				break readLoop
			}
			if s.Handle(m) {
				slog.Info("Received end of session")
				break readLoop
			}
		}
	}

	err = s.Finalize()

	// Stop the reader before the recording is closed. A reader blocked on
	// a silent stdin is abandoned and its recording left unclosed.
	cancel()
	select {
	case rerr := <-errs:
		if rerr != nil {
			slog.Error("Transport read failed", "error", rerr)
		}
	case <-time.After(time.Second):
		slog.Warn("Transport reader still blocked")
		closeRecording = func() {}
	}
	closeRecording()
	return err
}

func archiveSession(s *session.Session) {
	a, err := archive.NewArchiver(archiveConfig)
	if err != nil {
		slog.Error("Failed to create archiver", "error", err)
		return
	}
	keys, err := a.Upload(context.Background(), s.ID(), s.RowLogPath(), s.SummaryPath())
	if err != nil {
		slog.Error("Archive upload incomplete", "error", err)
	}
	slog.Info("Archived session", "keys", len(keys))
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	flags := sessionCmd.Flags()
	flags.BoolVar(&sessionConfig.Enabled, "enabled", sessionConfig.Enabled, "Enable position accuracy logging")
	flags.Float64Var(&sessionConfig.SampleInterval, "interval", sessionConfig.SampleInterval, "Minimum simulated seconds between samples")
	flags.StringVar(&sessionConfig.OutputDir, "out", sessionConfig.OutputDir, "Output directory for row logs and summaries")
	flags.IntVar(&sessionConfig.AutoSaveThreshold, "autosave", sessionConfig.AutoSaveThreshold, "Flush the row log every N entries")
	flags.IntVar(&sessionConfig.WindowSize, "window", sessionConfig.WindowSize, "Rolling window size per vehicle")
	flags.IntVar(&sessionConfig.ExportEvery, "export-every", sessionConfig.ExportEvery, "Write an intermediate summary every N sampled ticks (0 = off)")
	flags.StringVar(&optInput, "input", "-", "Transport source: a file, a .gz recording, or - for stdin")
	flags.BoolVar(&optRecord, "record", false, "Write the raw transport to a gzipped recording in the output directory")
	flags.BoolVar(&sessionConfig.UseIndex, "index", sessionConfig.UseIndex, "Record finished sessions in the output directory index")

	flags.StringVar(&webConfig.Address, "overlay", webConfig.Address, "Serve the diagnostic overlay on this address (empty = off)")
	flags.DurationVar(&webConfig.LastKnownTTL, "overlay.ttl", webConfig.LastKnownTTL, "How long the overlay remembers a vehicle's last sample")

	flags.StringVar(&influxConfig.URL, "influx.url", influxConfig.URL, "InfluxDB URL (empty = off)")
	flags.StringVar(&influxConfig.Token, "influx.token", influxConfig.Token, "InfluxDB token")
	flags.StringVar(&influxConfig.Org, "influx.org", influxConfig.Org, "InfluxDB organization")
	flags.StringVar(&influxConfig.Bucket, "influx.bucket", influxConfig.Bucket, "InfluxDB bucket")
	flags.IntVar(&influxConfig.BatchSize, "influx.batch", influxConfig.BatchSize, "InfluxDB points per write")

	flags.StringVar(&archiveConfig.Bucket, "archive.bucket", archiveConfig.Bucket, "S3 bucket for session artifacts (empty = off)")
	flags.StringVar(&archiveConfig.Prefix, "archive.prefix", archiveConfig.Prefix, "S3 key prefix")
	flags.DurationVar(&archiveConfig.Timeout, "archive.timeout", archiveConfig.Timeout, "S3 upload timeout")
}
