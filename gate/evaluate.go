package gate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
)

type Result struct {
	Status Status

	// Source is the file the verdict is based on.
	Source string

	Threshold  float64
	PerVehicle bool

	Summary *report.Summary

	// GlobalExceeded is set when the session average is over the threshold.
	GlobalExceeded bool

	// Worst lists the vehicles over the threshold, highest mean error first.
	Worst []report.VehicleSummary

	Err error
}

// Evaluate locates, loads and judges one report.
func Evaluate(cfg *params.GateConfig) *Result {
	if cfg == nil {
		cfg = params.DefaultGateConfig()
	}
	res := &Result{Threshold: cfg.Threshold, PerVehicle: cfg.PerVehicle}

	path := cfg.File
	if path == "" {
		found, err := FindLatest(cfg.Dir, cfg.Pattern)
		if err != nil {
			res.Status, res.Err = StatusNoData, err
			return res
		}
		path = found
		slog.Info("Using discovered report", "path", path)
	} else {
		slog.Info("Using explicit report", "path", path)
	}
	res.Source = path

	s, used, err := Load(path)
	res.Source = used
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Status, res.Err = StatusNoData, fmt.Errorf("%w: %v", ErrNoData, err)
		return res
	case err != nil:
		res.Status, res.Err = StatusInconclusive, err
		return res
	}
	res.Summary = s
	if s.Empty() {
		res.Status, res.Err = StatusNoData, fmt.Errorf("%w: %s has no logged entries", ErrNoData, used)
		return res
	}

	res.GlobalExceeded = s.AveragePositionError > cfg.Threshold
	if cfg.PerVehicle {
		for _, v := range s.WorstFirst() {
			if v.MeanError > cfg.Threshold {
				res.Worst = append(res.Worst, v)
			}
		}
	}
	if res.GlobalExceeded || len(res.Worst) > 0 {
		res.Status = StatusFail
	} else {
		res.Status = StatusPass
	}
	return res
}

// ExitCode is the process exit status for the result.
func (r *Result) ExitCode() int {
	switch r.Status {
	case StatusPass:
		return 0
	case StatusFail:
		return 1
	case StatusNoData:
		return 2
	}
	return 3
}

// WriteReport writes the human readable verdict.
func (r *Result) WriteReport(w io.Writer) error {
	f := common.FormatFixed
	line := strings.Repeat("=", 60)
	var b strings.Builder

	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Analyzed log: %s\n", r.Source)
	fmt.Fprintf(&b, "Threshold (mean error): %.3f m\n", r.Threshold)
	fmt.Fprintln(&b, line)
	if s := r.Summary; s != nil {
		if !s.Generated.IsZero() {
			fmt.Fprintf(&b, "Generated: %s\n", s.Generated.Format(report.GeneratedLayout))
		}
		fmt.Fprintf(&b, "Total entries: %d\n", s.TotalEntriesLogged)
		fmt.Fprintf(&b, "Active vehicles: %d\n", s.ActiveVehicles)
		fmt.Fprintf(&b, "Overall mean error: %s m\n", f(s.AveragePositionError))
		fmt.Fprintf(&b, "Maximum error: %s m\n", f(s.MaxPositionError))
		fmt.Fprintf(&b, "Vehicles analyzed: %d\n\n", len(s.Vehicles))
		fmt.Fprintf(&b, "%-25s%12s%18s\n", "Vehicle", "Samples", "Mean Error (m)")
		fmt.Fprintln(&b, strings.Repeat("-", 60))
		for _, v := range s.Vehicles {
			marker := "OK"
			if v.MeanError > r.Threshold {
				marker = "FAIL"
			}
			fmt.Fprintf(&b, "%-25s%12d%14s  %s\n", v.EntityID, v.Samples, f(v.MeanError), marker)
		}
		fmt.Fprintln(&b, line)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", r.Err)
	}
	if r.Status == StatusFail {
		if r.GlobalExceeded {
			fmt.Fprintf(&b, "Overall mean error %s m exceeds threshold\n", f(r.Summary.AveragePositionError))
		}
		if len(r.Worst) > 0 {
			fmt.Fprintln(&b, "Failing vehicles:")
			for _, v := range r.Worst {
				fmt.Fprintf(&b, "  %s: mean error %s m (samples=%d)\n", v.EntityID, f(v.MeanError), v.Samples)
			}
		}
	}
	fmt.Fprintf(&b, "Result: %s\n", r.Status)
	_, err := io.WriteString(w, b.String())
	return err
}
