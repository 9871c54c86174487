package webd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/gate"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/report"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt time.Time               `json:"started_at"`
	Uptime    string                  `json:"uptime"`
	Config    *params.WebDaemonConfig `json:"config"`
	WSOpen    bool                    `json:"ws_open"`
	WSConns   int                     `json:"ws_conns"`

	// Statistics is the latest session snapshot, nil before the first sampled tick.
	Statistics *aggregate.Snapshot `json:"statistics"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt:  s.started,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		WSOpen:     !s.melodyInstance.IsClosed(),
		WSConns:    s.melodyInstance.Len(),
		Config:     s.Config,
		Statistics: s.snapshot.Load(),
	}
	s.writeJSON(w, st)
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(j); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

// handleVehicles lists the per-entity statistics of the latest snapshot, worst rolling average first.
func (s *WebDaemon) handleVehicles(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.Load()
	if snap == nil {
		s.writeJSON(w, []aggregate.HistorySnapshot{})
		return
	}
	out := make([]aggregate.HistorySnapshot, len(snap.Vehicles))
	copy(out, snap.Vehicles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RollingAverage > out[j].RollingAverage
	})
	s.writeJSON(w, out)
}

func (s *WebDaemon) handleLastKnown(w http.ResponseWriter, r *http.Request) {
	id := conceptual.EntityID(mux.Vars(r)["entity"])
	if id.Empty() {
		http.Error(w, "Missing entity", http.StatusBadRequest)
		return
	}
	item := s.lastKnown.Get(id)
	if item == nil {
		http.Error(w, "No recent sample", http.StatusNotFound)
		return
	}
	s.writeJSON(w, item.Value())
}

type summaryEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// handleSummaries lists the report files in the summary directory, newest first.
func (s *WebDaemon) handleSummaries(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.Config.SummaryDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to list summaries", "dir", s.Config.SummaryDir, "error", err)
		http.Error(w, "Failed to list summaries", http.StatusInternalServerError)
		return
	}
	out := []summaryEntry{}
	for _, e := range entries {
		if e.IsDir() || !isReportName(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, summaryEntry{Name: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	s.writeJSON(w, out)
}

func isReportName(name string) bool {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	return (strings.HasPrefix(name, params.SummaryPrefix) && strings.HasSuffix(name, params.SummaryExt)) ||
		(strings.HasPrefix(name, params.RowLogPrefix) && strings.HasSuffix(name, params.RowLogExt))
}

func (s *WebDaemon) handleSummary(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !isReportName(name) {
		http.Error(w, "Invalid report name", http.StatusBadRequest)
		return
	}
	sum, err := s.loadSummary(filepath.Join(s.Config.SummaryDir, name))
	switch {
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Warn("Failed to load report", "name", name, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.writeJSON(w, sum)
}

// loadSummary parses a report, caching by path and modification time
// so a rewritten file is parsed again.
func (s *WebDaemon) loadSummary(path string) (*report.Summary, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s@%d", path, fi.ModTime().UnixNano())
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}
	sum, _, err := gate.Load(path)
	if err != nil {
		return nil, err
	}
	s.summaries.Add(key, sum)
	return sum, nil
}
