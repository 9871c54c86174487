/*
Package report builds, writes and reads session summaries.

A summary is a labelled plain text file. It is meant to be read by people and by the
CI gate, so the labels are fixed and numbers use four decimals with a dot.
*/
package report

import (
	"errors"
	"sort"
	"time"

	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/conceptual"
)

var ErrMalformed = errors.New("malformed summary")

// Meta identifies the session a summary belongs to.
type Meta struct {
	Generated time.Time
	SessionID string
	LogFile   string
}

type VehicleSummary struct {
	EntityID            conceptual.EntityID `json:"entity"`
	Samples             int64               `json:"samples"`
	MeanError           float64             `json:"mean_error"`
	MaxError            float64             `json:"max_error"`
	RollingAverage      float64             `json:"rolling_average"`
	MeanAbsLateral      float64             `json:"mean_abs_lateral"`
	MeanAbsLongitudinal float64             `json:"mean_abs_longitudinal"`
}

type Summary struct {
	Meta

	TotalEntriesLogged   int64            `json:"total_entries_logged"`
	ActiveVehicles       int              `json:"active_vehicles"`
	AveragePositionError float64          `json:"average_position_error"`
	MaxPositionError     float64          `json:"max_position_error"`
	Vehicles             []VehicleSummary `json:"vehicles"`
}

// Build summarizes the current aggregator state.
// Vehicles are listed in first-sighting order.
func Build(meta Meta, agg *aggregate.Aggregator) *Summary {
	g := agg.Global()
	s := &Summary{
		Meta:                 meta,
		TotalEntriesLogged:   g.TotalEntriesLogged,
		ActiveVehicles:       g.ActiveVehicleCount,
		AveragePositionError: g.AveragePositionError,
		MaxPositionError:     g.MaxPositionError,
	}
	for _, h := range agg.Histories() {
		s.Vehicles = append(s.Vehicles, VehicleSummary{
			EntityID:            h.EntityID,
			Samples:             h.Samples,
			MeanError:           h.MeanError,
			MaxError:            h.MaxError,
			RollingAverage:      h.RollingAverage,
			MeanAbsLateral:      h.MeanAbsLateral,
			MeanAbsLongitudinal: h.MeanAbsLongitudinal,
		})
	}
	return s
}

// Empty is true when nothing was logged.
func (s *Summary) Empty() bool {
	return s.TotalEntriesLogged == 0
}

// Vehicle returns the summary for id, if present.
func (s *Summary) Vehicle(id conceptual.EntityID) (VehicleSummary, bool) {
	for _, v := range s.Vehicles {
		if v.EntityID == id {
			return v, true
		}
	}
	return VehicleSummary{}, false
}

// WorstFirst returns the vehicles sorted by mean error, descending.
// Ties keep their summary order.
func (s *Summary) WorstFirst() []VehicleSummary {
	out := append([]VehicleSummary{}, s.Vehicles...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanError > out[j].MeanError
	})
	return out
}
