/*
Package aggregate keeps per-entity rolling error windows and session-wide running statistics.

The Aggregator is not safe for concurrent use. It is driven from the session tick loop;
other goroutines read Snapshot copies.
*/
package aggregate

import (
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/params"
	"github.com/rotblauer/posacc/types/sample"
)

// GlobalStatistics are the running statistics for a session.
type GlobalStatistics struct {
	TotalEntriesLogged   int64   `json:"total_entries_logged"`
	ActiveVehicleCount   int     `json:"active_vehicle_count"`
	AveragePositionError float64 `json:"average_position_error"`
	MaxPositionError     float64 `json:"max_position_error"`
}

type Aggregator struct {
	window int
	global GlobalStatistics

	histories map[conceptual.EntityID]*VehicleErrorHistory
	// order is first-sighting order.
	order []conceptual.EntityID
}

// NewAggregator creates an aggregator with per-entity windows of the given size.
// A window < 1 falls back to the default.
func NewAggregator(window int) *Aggregator {
	if window < 1 {
		window = params.DefaultWindowSize
	}
	return &Aggregator{
		window:    window,
		histories: make(map[conceptual.EntityID]*VehicleErrorHistory),
	}
}

// Record adds one sample for id.
// An empty id or a nil sample is a programmer error and panics.
func (a *Aggregator) Record(id conceptual.EntityID, s *sample.AccuracySample) {
	if id.Empty() {
		panic("aggregate: Record with empty entity id")
	}
	if s == nil {
		panic("aggregate: Record with nil sample")
	}

	h, ok := a.histories[id]
	if !ok {
		h = newHistory(id, a.window)
		a.histories[id] = h
		a.order = append(a.order, id)
	}
	h.record(s)

	g := &a.global
	g.TotalEntriesLogged++
	// Incremental mean over the global count, not the window.
	g.AveragePositionError += (s.PositionError - g.AveragePositionError) / float64(g.TotalEntriesLogged)
	if g.TotalEntriesLogged == 1 || s.PositionError > g.MaxPositionError {
		g.MaxPositionError = s.PositionError
	}
	g.ActiveVehicleCount = len(a.histories)
}

// Global returns a copy of the global statistics.
func (a *Aggregator) Global() GlobalStatistics {
	return a.global
}

// History returns the history for id, or nil if id was never recorded.
func (a *Aggregator) History(id conceptual.EntityID) *VehicleErrorHistory {
	return a.histories[id]
}

// Histories returns every history in first-sighting order.
func (a *Aggregator) Histories() []*VehicleErrorHistory {
	out := make([]*VehicleErrorHistory, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.histories[id])
	}
	return out
}

// WindowSize is the configured per-entity window capacity.
func (a *Aggregator) WindowSize() int {
	return a.window
}

// Clear resets all statistics and histories.
func (a *Aggregator) Clear() {
	a.global = GlobalStatistics{}
	a.histories = make(map[conceptual.EntityID]*VehicleErrorHistory)
	a.order = nil
}

// Snapshot is a deep copy of the aggregator state.
type Snapshot struct {
	Time     float64           `json:"time"`
	Global   GlobalStatistics  `json:"global"`
	Vehicles []HistorySnapshot `json:"vehicles"`
}

// Snapshot copies the current state; the copy shares nothing with the aggregator.
func (a *Aggregator) Snapshot(time float64) *Snapshot {
	s := &Snapshot{
		Time:     time,
		Global:   a.global,
		Vehicles: make([]HistorySnapshot, 0, len(a.order)),
	}
	for _, id := range a.order {
		s.Vehicles = append(s.Vehicles, a.histories[id].snapshot())
	}
	return s
}
