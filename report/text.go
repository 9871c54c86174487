package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/conceptual"
)

const GeneratedLayout = "2006-01-02 15:04:05"

const (
	labelGenerated       = "Generated:"
	labelSession         = "Session:"
	labelLogFile         = "Log File:"
	labelTotalEntries    = "Total Entries Logged:"
	labelActiveVehicles  = "Active Vehicles:"
	labelAverageError    = "Average Position Error:"
	labelMaximumError    = "Maximum Position Error:"
	labelVehicle         = "Vehicle:"
	labelSamples         = "Samples:"
	labelAvgError        = "Avg Error:"
	labelMaxError        = "Max Error:"
	labelRollingAvg      = "Rolling Avg Error:"
	labelAbsLateral      = "Avg Abs Lateral Error:"
	labelAbsLongitudinal = "Avg Abs Longitudinal Error:"

	headerPerVehicle = "PER-VEHICLE STATISTICS"
)

var rule = strings.Repeat("=", 60)

// WriteText writes the summary in its labelled text form.
func (s *Summary) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	m := func(v float64) string { return common.FormatFixed(v) + " m" }

	fmt.Fprintln(bw, "POSITION ACCURACY STATISTICS SUMMARY")
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, labelGenerated, s.Generated.Format(GeneratedLayout))
	if s.SessionID != "" {
		fmt.Fprintln(bw, labelSession, s.SessionID)
	}
	if s.LogFile != "" {
		fmt.Fprintln(bw, labelLogFile, s.LogFile)
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, labelTotalEntries, s.TotalEntriesLogged)
	fmt.Fprintln(bw, labelActiveVehicles, s.ActiveVehicles)
	fmt.Fprintln(bw, labelAverageError, m(s.AveragePositionError))
	fmt.Fprintln(bw, labelMaximumError, m(s.MaxPositionError))
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, headerPerVehicle)
	fmt.Fprintln(bw, rule)
	for _, v := range s.Vehicles {
		fmt.Fprintln(bw, labelVehicle, v.EntityID)
		fmt.Fprintln(bw, " ", labelSamples, v.Samples)
		fmt.Fprintln(bw, " ", labelAvgError, m(v.MeanError))
		fmt.Fprintln(bw, " ", labelMaxError, m(v.MaxError))
		fmt.Fprintln(bw, " ", labelRollingAvg, m(v.RollingAverage))
		fmt.Fprintln(bw, " ", labelAbsLateral, m(v.MeanAbsLateral))
		fmt.Fprintln(bw, " ", labelAbsLongitudinal, m(v.MeanAbsLongitudinal))
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// String returns the text form.
func (s *Summary) String() string {
	var sb strings.Builder
	_ = s.WriteText(&sb)
	return sb.String()
}

// ParseText reads a summary written by WriteText.
// Labels match case-insensitively, lengths may carry an "m" or "cm" unit and a decimal comma.
// A summary without the global average line is malformed.
// Vehicle blocks without an "Avg Error" line are dropped.
func ParseText(r io.Reader) (*Summary, error) {
	s := &Summary{}
	var (
		haveAverage bool
		haveTotal   bool
		haveActive  bool
		current     *VehicleSummary
		haveMean    bool
	)
	commit := func() {
		if current != nil && haveMean {
			s.Vehicles = append(s.Vehicles, *current)
		}
		current, haveMean = nil, false
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		label, value, ok := cutLabel(line)
		if !ok {
			continue
		}
		var err error
		switch label {
		case labelGenerated:
			if t, perr := time.ParseInLocation(GeneratedLayout, value, time.Local); perr == nil {
				s.Generated = t
			}
		case labelSession:
			s.SessionID = value
		case labelLogFile:
			s.LogFile = value
		case labelTotalEntries:
			s.TotalEntriesLogged, err = parseCount(value)
			haveTotal = err == nil
		case labelActiveVehicles:
			var n int64
			n, err = parseCount(value)
			s.ActiveVehicles, haveActive = int(n), err == nil
		case labelAverageError:
			s.AveragePositionError, err = parseLength(value)
			haveAverage = err == nil
		case labelMaximumError:
			s.MaxPositionError, err = parseLength(value)
		case labelVehicle:
			commit()
			current = &VehicleSummary{EntityID: conceptual.EntityID(value)}
		default:
			if current == nil {
				continue
			}
			switch label {
			case labelSamples:
				current.Samples, err = parseCount(value)
			case labelAvgError:
				current.MeanError, err = parseLength(value)
				haveMean = err == nil
			case labelMaxError:
				current.MaxError, err = parseLength(value)
			case labelRollingAvg:
				current.RollingAverage, err = parseLength(value)
			case labelAbsLateral:
				current.MeanAbsLateral, err = parseLength(value)
			case labelAbsLongitudinal:
				current.MeanAbsLongitudinal, err = parseLength(value)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	commit()

	if !haveAverage {
		return nil, fmt.Errorf("%w: no %q line", ErrMalformed, labelAverageError)
	}
	if !haveTotal {
		for _, v := range s.Vehicles {
			s.TotalEntriesLogged += v.Samples
		}
	}
	if !haveActive {
		s.ActiveVehicles = len(s.Vehicles)
	}
	return s, nil
}

var knownLabels = []string{
	labelGenerated, labelSession, labelLogFile,
	labelTotalEntries, labelActiveVehicles, labelAverageError, labelMaximumError,
	labelVehicle, labelSamples, labelAvgError, labelMaxError, labelRollingAvg,
	labelAbsLateral, labelAbsLongitudinal,
}

// cutLabel splits a line into its canonical label and the trimmed value.
func cutLabel(line string) (label, value string, ok bool) {
	lower := strings.ToLower(line)
	for _, l := range knownLabels {
		if strings.HasPrefix(lower, strings.ToLower(l)) {
			return l, strings.TrimSpace(line[len(l):]), true
		}
	}
	return "", "", false
}

// parseCount keeps only the digits, so "1,234" and "1 234" both read as 1234.
func parseCount(v string) (int64, error) {
	var digits strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", v)
	}
	return strconv.ParseInt(digits.String(), 10, 64)
}

// parseLength reads a length in meters. A "cm" unit is converted.
func parseLength(v string) (float64, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "cm"):
		v, scale = strings.TrimSuffix(v, "cm"), 0.01
	case strings.HasSuffix(v, "m"):
		v = strings.TrimSuffix(v, "m")
	}
	v = strings.ReplaceAll(v, " ", "")
	f, err := common.ParseFixed(v)
	if err != nil {
		return 0, err
	}
	return f * scale, nil
}
