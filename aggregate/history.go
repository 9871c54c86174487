package aggregate

import (
	"math"

	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/sample"
)

// VehicleErrorHistory is the error history of one tracked entity.
// It is owned by the Aggregator and only mutated through Record.
// Entities that stop appearing keep their last state.
type VehicleErrorHistory struct {
	EntityID conceptual.EntityID

	recent *common.RingBuffer[float64]

	// RollingAverage is the mean of the current window.
	RollingAverage float64

	// Lifetime statistics, all samples ever recorded for the entity.
	Samples             int64
	MeanError           float64
	MaxError            float64
	MeanAbsLateral      float64
	MeanAbsLongitudinal float64

	FirstSeen float64
	LastSeen  float64
}

func newHistory(id conceptual.EntityID, window int) *VehicleErrorHistory {
	return &VehicleErrorHistory{
		EntityID: id,
		recent:   common.NewRingBuffer[float64](window),
	}
}

// RecentErrors returns the window contents, oldest first.
func (h *VehicleErrorHistory) RecentErrors() []float64 {
	return h.recent.Get()
}

// WindowSize is the configured window capacity.
func (h *VehicleErrorHistory) WindowSize() int {
	return h.recent.Cap()
}

func (h *VehicleErrorHistory) record(s *sample.AccuracySample) {
	h.recent.Add(s.PositionError)

	// Summed oldest first, every time, so the result depends only on the window contents.
	sum := 0.0
	h.recent.Scan(func(v float64) bool {
		sum += v
		return true
	})
	h.RollingAverage = sum / float64(h.recent.Len())

	h.Samples++
	n := float64(h.Samples)
	h.MeanError += (s.PositionError - h.MeanError) / n
	h.MeanAbsLateral += (math.Abs(s.LateralError) - h.MeanAbsLateral) / n
	h.MeanAbsLongitudinal += (math.Abs(s.LongitudinalError) - h.MeanAbsLongitudinal) / n
	if h.Samples == 1 || s.PositionError > h.MaxError {
		h.MaxError = s.PositionError
	}
	if h.Samples == 1 {
		h.FirstSeen = s.Timestamp
	}
	h.LastSeen = s.Timestamp
}

// HistorySnapshot is a copy of a VehicleErrorHistory, safe to share.
type HistorySnapshot struct {
	EntityID            conceptual.EntityID `json:"entity"`
	RecentErrors        []float64           `json:"recent_errors"`
	RollingAverage      float64             `json:"rolling_average"`
	Samples             int64               `json:"samples"`
	MeanError           float64             `json:"mean_error"`
	MaxError            float64             `json:"max_error"`
	MeanAbsLateral      float64             `json:"mean_abs_lateral"`
	MeanAbsLongitudinal float64             `json:"mean_abs_longitudinal"`
	FirstSeen           float64             `json:"first_seen"`
	LastSeen            float64             `json:"last_seen"`
}

func (h *VehicleErrorHistory) snapshot() HistorySnapshot {
	return HistorySnapshot{
		EntityID:            h.EntityID,
		RecentErrors:        h.RecentErrors(),
		RollingAverage:      h.RollingAverage,
		Samples:             h.Samples,
		MeanError:           h.MeanError,
		MaxError:            h.MaxError,
		MeanAbsLateral:      h.MeanAbsLateral,
		MeanAbsLongitudinal: h.MeanAbsLongitudinal,
		FirstSeen:           h.FirstSeen,
		LastSeen:            h.LastSeen,
	}
}
