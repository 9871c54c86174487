package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/sample"
)

func errSample(ts float64, id conceptual.EntityID, lat, long float64) *sample.AccuracySample {
	return sample.New(ts, id, sample.Vector3{X: lat, Z: long}, sample.Vector3{}, 10, 0)
}

func testAggregator() *aggregate.Aggregator {
	agg := aggregate.NewAggregator(10)
	agg.Record("veh0", errSample(0.0, "veh0", 1, 0))
	agg.Record("veh1", errSample(0.1, "veh1", 0, 3))
	agg.Record("veh0", errSample(0.2, "veh0", 0, -2))
	agg.Record("veh0", errSample(0.3, "veh0", 3, 0))
	return agg
}

var testMeta = Meta{
	Generated: time.Date(2025, 11, 4, 12, 30, 0, 0, time.Local),
	SessionID: "abc",
	LogFile:   "position_accuracy_2025-11-04_12-30-00.csv",
}

func TestBuild(t *testing.T) {
	s := Build(testMeta, testAggregator())
	if s.TotalEntriesLogged != 4 || s.ActiveVehicles != 2 {
		t.Errorf("Expected 4 entries and 2 vehicles, but got %d and %d", s.TotalEntriesLogged, s.ActiveVehicles)
	}
	if s.AveragePositionError != 2.25 {
		t.Errorf("Expected average 2.25, but got %v", s.AveragePositionError)
	}
	if s.Vehicles[0].EntityID != "veh0" || s.Vehicles[1].EntityID != "veh1" {
		t.Errorf("Expected first-sighting order, but got %v", s.Vehicles)
	}
	v0 := s.Vehicles[0]
	if v0.MeanError != 2 || v0.MaxError != 3 ||
		math.Abs(v0.MeanAbsLateral-4.0/3) > 1e-9 || math.Abs(v0.MeanAbsLongitudinal-2.0/3) > 1e-9 {
		t.Errorf("Unexpected veh0 summary %+v", v0)
	}
	worst := s.WorstFirst()
	if worst[0].EntityID != "veh1" {
		t.Errorf("Expected veh1 worst, but got %s", worst[0].EntityID)
	}
}

func TestText_RoundTrip(t *testing.T) {
	want := Build(testMeta, testAggregator())
	buf := new(bytes.Buffer)
	if err := want.WriteText(buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Average Position Error: 2.2500 m") {
		t.Errorf("Expected fixed 4-decimal average line, got:\n%s", buf.String())
	}
	got, err := ParseText(buf)
	if err != nil {
		t.Fatal(err)
	}
	approx := cmpopts.EquateApprox(0, 5e-5)
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestParseText_Tolerant(t *testing.T) {
	text := `generated: 2025-11-04 12:30:00
TOTAL ENTRIES LOGGED: 1,234
average position error: 180 cm
Maximum Position Error: 4,5000 m

Vehicle: veh7
  samples: 10
  avg error: 1,2000 m
Vehicle: incomplete
  Samples: 3
`
	s, err := ParseText(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEntriesLogged != 1234 {
		t.Errorf("Expected 1234 entries, but got %d", s.TotalEntriesLogged)
	}
	if math.Abs(s.AveragePositionError-1.8) > 1e-9 {
		t.Errorf("Expected 1.8 m, but got %v", s.AveragePositionError)
	}
	if s.MaxPositionError != 4.5 {
		t.Errorf("Expected 4.5 m, but got %v", s.MaxPositionError)
	}
	if len(s.Vehicles) != 1 || s.Vehicles[0].MeanError != 1.2 {
		t.Errorf("Expected one complete vehicle with 1.2 m, but got %+v", s.Vehicles)
	}
	if s.ActiveVehicles != 1 {
		t.Errorf("Expected active vehicles to default to 1, but got %d", s.ActiveVehicles)
	}
}

func TestParseText_Malformed(t *testing.T) {
	cases := []string{
		"",
		"garbage\nmore garbage\n",
		"Total Entries Logged: 3\nVehicle: v\nAvg Error: 1.0 m\n",
		"Average Position Error: abc m\n",
		"Average Position Error: +Inf m\n",
		"Average Position Error: 1.0 m\nVehicle: v\nAvg Error: NaN m\n",
	}
	for _, c := range cases {
		if _, err := ParseText(strings.NewReader(c)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Expected ErrMalformed for %q, but got %v", c, err)
		}
	}
}

func writeRowLog(t *testing.T, rows ...*sample.AccuracySample) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.WriteString(strings.Join(sample.Header(), ",") + "\n")
	for _, r := range rows {
		buf.WriteString(strings.Join(r.Row(), ",") + "\n")
	}
	return buf
}

func TestFromRowLog(t *testing.T) {
	buf := writeRowLog(t,
		errSample(0, "a", 1, 0),
		errSample(1, "a", 2, 0),
		errSample(1, "b", 0, 3),
	)
	// Truncated trailing row from a crashed writer.
	buf.WriteString("2.0000,a,1.0")

	s, err := FromRowLog(buf, Meta{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEntriesLogged != 3 || s.ActiveVehicles != 2 {
		t.Errorf("Expected 3 entries and 2 vehicles, but got %+v", s)
	}
	if s.AveragePositionError != 2 {
		t.Errorf("Expected average 2, but got %v", s.AveragePositionError)
	}
	a, _ := s.Vehicle("a")
	if a.MeanError != 1.5 || a.Samples != 2 {
		t.Errorf("Expected a mean 1.5 over 2 samples, but got %+v", a)
	}
}

func TestFromRowLog_HeaderOnly(t *testing.T) {
	s, err := FromRowLog(writeRowLog(t), Meta{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Empty() {
		t.Errorf("Expected empty summary, but got %+v", s)
	}
}

func TestReadRows_MinimalColumns(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("\ufeffVehicleID,PositionError\nv1,0.5\n,9\nv2,oops\nv3,1.5\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 usable rows, but got %d", len(rows))
	}
	if rows[0].EntityID != "v1" || rows[0].PositionError != 0.5 {
		t.Errorf("Unexpected first row %+v", rows[0])
	}
}

func TestReadRows_NonFinite(t *testing.T) {
	_, err := ReadRows(strings.NewReader("VehicleID,PositionError\nv1,0.5\nv2,+Inf\n"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, but got %v", err)
	}
}

func TestReadRows_MissingColumns(t *testing.T) {
	_, err := ReadRows(strings.NewReader("Timestamp,Speed\n1,2\n"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, but got %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	rows := []*sample.AccuracySample{
		errSample(1, "b", 3, 4),
		errSample(2, "a", 1, 0),
		errSample(4, "a", 3, 0),
	}
	a := Analyze(rows)
	if a.Entries != 3 || a.Vehicles != 2 || a.Duration != 3 {
		t.Errorf("Unexpected totals %+v", a)
	}
	if a.PositionError.Mean != 3 || a.PositionError.Median != 3 || a.PositionError.Min != 1 || a.PositionError.Max != 5 {
		t.Errorf("Unexpected distribution %+v", a.PositionError)
	}
	if a.PerVehicle[0].EntityID != "a" || a.PerVehicle[0].Mean != 2 || a.PerVehicle[0].MeanAbsLateral != 2 {
		t.Errorf("Unexpected vehicle a analysis %+v", a.PerVehicle[0])
	}
	if a.PerVehicle[1].Std != 0 {
		t.Errorf("Expected std 0 for a single sample, but got %v", a.PerVehicle[1].Std)
	}
	buf := new(bytes.Buffer)
	if err := a.WriteAnalysis(buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Mean:   3.0000 m") {
		t.Errorf("Expected mean line in analysis, got:\n%s", buf.String())
	}
}

func TestWritePlots(t *testing.T) {
	var rows []*sample.AccuracySample
	for i := 0; i < 20; i++ {
		f := float64(i)
		rows = append(rows,
			sample.New(f*0.1, "veh0", sample.Vector3{X: f, Z: f * 0.5}, sample.Vector3{X: f + 0.2, Z: f*0.5 - 0.1}, 10, 0),
			sample.New(f*0.1, "veh1", sample.Vector3{X: -f, Z: 2}, sample.Vector3{X: -f, Z: 2.3}, 8, 0),
		)
	}
	dir := filepath.Join(t.TempDir(), "analysis")
	written, err := WritePlots(rows, dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 4 {
		t.Errorf("Expected 4 plots, but got %d", len(written))
	}
	for _, p := range written {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Errorf("Expected non-empty plot %s, err %v", p, err)
		}
	}
}
