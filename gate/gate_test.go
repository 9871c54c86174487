package gate

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
	"github.com/rotblauer/posacc/types/sample"
)

func writeFile(t *testing.T, dir, name, content string, mod time.Time) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0660); err != nil {
		t.Fatal(err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(p, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func summaryText(avg float64, vehicles ...report.VehicleSummary) string {
	s := &report.Summary{
		TotalEntriesLogged:   10,
		ActiveVehicles:       len(vehicles),
		AveragePositionError: avg,
		MaxPositionError:     avg * 2,
		Vehicles:             vehicles,
	}
	return s.String()
}

func rowLogText(rows ...*sample.AccuracySample) string {
	var b strings.Builder
	b.WriteString(strings.Join(sample.Header(), ",") + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r.Row(), ",") + "\n")
	}
	return b.String()
}

func config(dir string, threshold float64) *params.GateConfig {
	c := params.DefaultGateConfig()
	c.Dir = dir
	c.Threshold = threshold
	return c
}

func TestEvaluate_NoReports(t *testing.T) {
	res := Evaluate(config(t.TempDir(), 1.5))
	if res.Status != StatusNoData {
		t.Errorf("Expected NO_DATA, but got %s", res.Status)
	}
	if res.ExitCode() == 0 {
		t.Error("Expected non-zero exit code")
	}
	if !errors.Is(res.Err, ErrNoData) {
		t.Errorf("Expected ErrNoData, but got %v", res.Err)
	}
}

func TestEvaluate_MissingDir(t *testing.T) {
	res := Evaluate(config(filepath.Join(t.TempDir(), "nope"), 1.5))
	if res.Status != StatusNoData || res.ExitCode() != 2 {
		t.Errorf("Expected NO_DATA exit 2, but got %s exit %d", res.Status, res.ExitCode())
	}
}

func TestEvaluate_Threshold(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "statistics_summary_2025-01-01_00-00-00.txt", summaryText(1.80,
		report.VehicleSummary{EntityID: "veh0", Samples: 5, MeanError: 1.80},
	), time.Time{})

	cases := []struct {
		threshold float64
		status    Status
		code      int
	}{
		{1.5, StatusFail, 1},
		{2.0, StatusPass, 0},
		{1.8, StatusPass, 0},
	}
	for _, c := range cases {
		res := Evaluate(config(dir, c.threshold))
		if res.Status != c.status {
			t.Errorf("threshold %v: expected %s, but got %s (%v)", c.threshold, c.status, res.Status, res.Err)
		}
		if res.ExitCode() != c.code {
			t.Errorf("threshold %v: expected exit %d, but got %d", c.threshold, c.code, res.ExitCode())
		}
	}
}

func TestEvaluate_PerVehicle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "statistics_summary_2025-01-01_00-00-00.txt", summaryText(1.0,
		report.VehicleSummary{EntityID: "good", Samples: 5, MeanError: 0.2},
		report.VehicleSummary{EntityID: "bad", Samples: 5, MeanError: 1.7},
		report.VehicleSummary{EntityID: "worse", Samples: 5, MeanError: 2.4},
	), time.Time{})

	c := config(dir, 1.5)
	res := Evaluate(c)
	if res.Status != StatusFail {
		t.Fatalf("Expected FAIL, but got %s", res.Status)
	}
	if len(res.Worst) != 2 || res.Worst[0].EntityID != "worse" || res.Worst[1].EntityID != "bad" {
		t.Errorf("Expected [worse bad], but got %+v", res.Worst)
	}
	buf := new(bytes.Buffer)
	if err := res.WriteReport(buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Result: FAIL") || !strings.Contains(buf.String(), "worse: mean error 2.4000 m") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}

	c.PerVehicle = false
	if res := Evaluate(c); res.Status != StatusPass {
		t.Errorf("Expected PASS with global check only, but got %s", res.Status)
	}
}

func TestEvaluate_ZeroEntries(t *testing.T) {
	dir := t.TempDir()
	s := &report.Summary{}
	writeFile(t, dir, "statistics_summary_2025-01-01_00-00-00.txt", s.String(), time.Time{})
	res := Evaluate(config(dir, 1.5))
	if res.Status != StatusNoData {
		t.Errorf("Expected NO_DATA for an empty session, but got %s", res.Status)
	}
}

func TestEvaluate_CSVFallback(t *testing.T) {
	dir := t.TempDir()
	stamp := "2025-01-01_00-00-00"
	writeFile(t, dir, params.SummaryPrefix+stamp+params.SummaryExt, "truncated", time.Time{})
	writeFile(t, dir, params.RowLogPrefix+stamp+params.RowLogExt, rowLogText(
		sample.New(0, "v1", sample.Vector3{X: 1}, sample.Vector3{}, 0, 0),
		sample.New(1, "v1", sample.Vector3{X: 3}, sample.Vector3{}, 0, 0),
	), time.Time{})

	res := Evaluate(config(dir, 1.5))
	if res.Status != StatusFail {
		t.Errorf("Expected FAIL from fallback mean 2.0, but got %s (%v)", res.Status, res.Err)
	}
	if filepath.Ext(res.Source) != ".csv" {
		t.Errorf("Expected the row log as source, but got %s", res.Source)
	}
}

func TestEvaluate_Inconclusive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "statistics_summary_2025-01-01_00-00-00.txt", "not a summary", time.Time{})
	res := Evaluate(config(dir, 1.5))
	if res.Status != StatusInconclusive || res.ExitCode() != 3 {
		t.Errorf("Expected INCONCLUSIVE exit 3, but got %s exit %d", res.Status, res.ExitCode())
	}
	if !errors.Is(res.Err, report.ErrMalformed) {
		t.Errorf("Expected ErrMalformed, but got %v", res.Err)
	}
}

func TestEvaluate_NonFinite(t *testing.T) {
	dir := t.TempDir()
	stamp := "2025-01-01_00-00-00"
	writeFile(t, dir, params.SummaryPrefix+stamp+params.SummaryExt,
		summaryText(math.Inf(1), report.VehicleSummary{EntityID: "v1", Samples: 10, MeanError: math.Inf(1)}), time.Time{})

	res := Evaluate(config(dir, 1.5))
	if res.Status != StatusInconclusive || res.ExitCode() != 3 {
		t.Errorf("Expected INCONCLUSIVE exit 3 for an infinite average, but got %s exit %d", res.Status, res.ExitCode())
	}
	if !errors.Is(res.Err, report.ErrMalformed) {
		t.Errorf("Expected ErrMalformed, but got %v", res.Err)
	}

	// The row log fallback holds the same overflowed sample.
	writeFile(t, dir, params.RowLogPrefix+stamp+params.RowLogExt, rowLogText(
		sample.New(0, "v1", sample.Vector3{X: 1}, sample.Vector3{}, 0, 0),
		sample.New(1, "v1", sample.Vector3{X: 1e308}, sample.Vector3{X: -1e308}, 0, 0),
	), time.Time{})
	res = Evaluate(config(dir, 1.5))
	if res.Status != StatusInconclusive || res.ExitCode() != 3 {
		t.Errorf("Expected INCONCLUSIVE exit 3 from the fallback, but got %s exit %d (%v)", res.Status, res.ExitCode(), res.Err)
	}
}

func TestEvaluate_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "custom.csv", rowLogText(
		sample.New(0, "v1", sample.Vector3{X: 0.5}, sample.Vector3{}, 0, 0),
	), time.Time{})
	c := config(dir, 1.5)
	c.File = p
	if res := Evaluate(c); res.Status != StatusPass || res.Source != p {
		t.Errorf("Expected PASS from %s, but got %s from %s", p, res.Status, res.Source)
	}
	c.File = filepath.Join(dir, "missing.txt")
	if res := Evaluate(c); res.Status != StatusNoData {
		t.Errorf("Expected NO_DATA for a missing explicit file, but got %s", res.Status)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "position_accuracy_b.csv", "", now.Add(time.Hour))
	older := writeFile(t, dir, "statistics_summary_a.txt", "", now.Add(-time.Hour))
	newer := writeFile(t, dir, "statistics_summary_b.txt", "", now)

	got, err := FindLatest(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("Expected %s, but got %s", newer, got)
	}
	got, err = FindLatest(dir, "*_a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != older {
		t.Errorf("Expected %s, but got %s", older, got)
	}
	if _, err := FindLatest(dir, "*.json"); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, but got %v", err)
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		StatusNoData: "NO_DATA", StatusPass: "PASS", StatusFail: "FAIL", StatusInconclusive: "INCONCLUSIVE",
	} {
		if s.String() != want {
			t.Errorf("Expected %s, but got %s", want, s.String())
		}
	}
}
