package webd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/report"
	"github.com/rotblauer/posacc/types/sample"
)

func serve(s *WebDaemon, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(w, req)
	return w
}

func TestPingPong(t *testing.T) {
	s := newTestWebDaemon(t, t.TempDir())
	w := serve(s, "/ping")
	if w.Code != http.StatusOK {
		t.Errorf("Expected %v, but got %v", http.StatusOK, w.Code)
	}
	if w.Body.String() != "pong" {
		t.Errorf("Expected %v, but got %v", "pong", w.Body.String())
	}
}

func TestStatusReport(t *testing.T) {
	s := newTestWebDaemon(t, t.TempDir())
	w := serve(s, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected %v, but got %v", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected %v, but got %v", "application/json", ct)
	}
	st := webDaemonStatus{}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Statistics != nil {
		t.Errorf("Expected no statistics before the first snapshot, but got %+v", st.Statistics)
	}
}

func TestAttach(t *testing.T) {
	s := newTestWebDaemon(t, t.TempDir())
	src := &testSource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Attach(ctx, src)

	smp := sample.New(1, "veh0", sample.Vector3{X: 2}, sample.Vector3{}, 10, 0)
	src.samples.Send([]*sample.AccuracySample{smp})
	src.snapshots.Send(&aggregate.Snapshot{
		Time:   1,
		Global: aggregate.GlobalStatistics{TotalEntriesLogged: 1, ActiveVehicleCount: 1, AveragePositionError: 2, MaxPositionError: 2},
		Vehicles: []aggregate.HistorySnapshot{
			{EntityID: "veh0", RollingAverage: 2, MeanError: 2, Samples: 1},
		},
	})

	deadline := time.Now().Add(2 * time.Second)
	for s.snapshot.Load() == nil || s.lastKnown.Get("veh0") == nil {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the overlay to observe the session")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w := serve(s, "/last/veh0")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected %v, but got %v", http.StatusOK, w.Code)
	}
	got := &sample.AccuracySample{}
	if err := json.Unmarshal(w.Body.Bytes(), got); err != nil {
		t.Fatal(err)
	}
	if got.PositionError != 2 {
		t.Errorf("Expected %v, but got %v", 2.0, got.PositionError)
	}
	if w := serve(s, "/last/nobody"); w.Code != http.StatusNotFound {
		t.Errorf("Expected %v, but got %v", http.StatusNotFound, w.Code)
	}

	w = serve(s, "/vehicles")
	var vehicles []aggregate.HistorySnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &vehicles); err != nil {
		t.Fatal(err)
	}
	if len(vehicles) != 1 || vehicles[0].EntityID != "veh0" {
		t.Errorf("Unexpected vehicles %+v", vehicles)
	}

	w = serve(s, "/chart")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "veh0") {
		t.Errorf("Expected a chart naming veh0, got %v", w.Code)
	}
}

func TestSummaries(t *testing.T) {
	dir := t.TempDir()
	good := &report.Summary{
		TotalEntriesLogged:   3,
		ActiveVehicles:       1,
		AveragePositionError: 0.5,
		MaxPositionError:     0.9,
		Vehicles:             []report.VehicleSummary{{EntityID: "veh0", Samples: 3, MeanError: 0.5}},
	}
	files := map[string]string{
		"statistics_summary_2025-01-01_00-00-00.txt": good.String(),
		"statistics_summary_2025-01-02_00-00-00.txt": "garbage",
		"notes.txt": "not a report",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0660); err != nil {
			t.Fatal(err)
		}
	}
	s := newTestWebDaemon(t, dir)

	w := serve(s, "/summaries")
	var list []summaryEntry
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("Expected %v, but got %v", 2, len(list))
	}

	w = serve(s, "/summaries/statistics_summary_2025-01-01_00-00-00.txt")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected %v, but got %v", http.StatusOK, w.Code)
	}
	got := &report.Summary{}
	if err := json.Unmarshal(w.Body.Bytes(), got); err != nil {
		t.Fatal(err)
	}
	if got.TotalEntriesLogged != 3 || got.AveragePositionError != 0.5 {
		t.Errorf("Unexpected summary %+v", got)
	}
	if s.summaries.Len() != 1 {
		t.Errorf("Expected %v, but got %v", 1, s.summaries.Len())
	}

	cases := map[string]int{
		"/summaries/statistics_summary_2025-01-02_00-00-00.txt": http.StatusUnprocessableEntity,
		"/summaries/statistics_summary_2030-01-01_00-00-00.txt": http.StatusNotFound,
		"/summaries/notes.txt":                                  http.StatusBadRequest,
	}
	for path, code := range cases {
		if w := serve(s, path); w.Code != code {
			t.Errorf("%s: expected %v, but got %v", path, code, w.Code)
		}
	}
}

func TestIsReportName(t *testing.T) {
	cases := map[string]bool{
		"statistics_summary_x.txt":  true,
		"position_accuracy_x.csv":   true,
		"statistics_summary_x.csv":  false,
		"../statistics_summary.txt": false,
		"index.db":                  false,
	}
	for name, want := range cases {
		if got := isReportName(name); got != want {
			t.Errorf("%s: expected %v, but got %v", name, want, got)
		}
	}
}
