package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/sample"
)

// Distribution describes a set of error values.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P95    float64 `json:"p95"`
}

type VehicleAnalysis struct {
	EntityID            conceptual.EntityID `json:"entity"`
	Samples             int                 `json:"samples"`
	Mean                float64             `json:"mean"`
	Max                 float64             `json:"max"`
	Std                 float64             `json:"std"`
	MeanAbsLateral      float64             `json:"mean_abs_lateral"`
	MeanAbsLongitudinal float64             `json:"mean_abs_longitudinal"`
}

// Analysis is the offline evaluation of a whole row log.
type Analysis struct {
	Entries  int     `json:"entries"`
	Vehicles int     `json:"vehicles"`
	Duration float64 `json:"duration"`

	PositionError Distribution `json:"position_error"`

	// Bound covers the reference positions on the ground plane.
	Bound orb.Bound `json:"-"`

	// PerVehicle is sorted by entity id.
	PerVehicle []VehicleAnalysis `json:"per_vehicle"`
}

func statsMustFloat(fn func() (float64, error), def float64) float64 {
	out, err := fn()
	if err != nil || math.IsNaN(out) {
		return def
	}
	return out
}

func describe(data []float64) Distribution {
	d := stats.Float64Data(data)
	return Distribution{
		Mean:   statsMustFloat(d.Mean, 0),
		Median: statsMustFloat(d.Median, 0),
		Std:    statsMustFloat(func() (float64, error) { return stats.StandardDeviationSample(d) }, 0),
		Min:    statsMustFloat(d.Min, 0),
		Max:    statsMustFloat(d.Max, 0),
		P95:    statsMustFloat(func() (float64, error) { return stats.Percentile(d, 95) }, 0),
	}
}

// Analyze computes the distribution of errors over all rows and per vehicle.
func Analyze(rows []*sample.AccuracySample) *Analysis {
	a := &Analysis{Entries: len(rows)}
	if len(rows) == 0 {
		return a
	}

	all := make([]float64, 0, len(rows))
	byID := map[conceptual.EntityID][]*sample.AccuracySample{}
	first, last := rows[0].Timestamp, rows[0].Timestamp
	a.Bound = rows[0].Reference.Planar().Bound()
	for _, r := range rows {
		all = append(all, r.PositionError)
		byID[r.EntityID] = append(byID[r.EntityID], r)
		first = math.Min(first, r.Timestamp)
		last = math.Max(last, r.Timestamp)
		a.Bound = a.Bound.Extend(r.Reference.Planar())
	}
	a.Duration = last - first
	a.Vehicles = len(byID)
	a.PositionError = describe(all)

	for id, vrows := range byID {
		errs := make([]float64, len(vrows))
		lat, long := 0.0, 0.0
		for i, r := range vrows {
			errs[i] = r.PositionError
			lat += math.Abs(r.LateralError)
			long += math.Abs(r.LongitudinalError)
		}
		d := describe(errs)
		n := float64(len(vrows))
		a.PerVehicle = append(a.PerVehicle, VehicleAnalysis{
			EntityID:            id,
			Samples:             len(vrows),
			Mean:                d.Mean,
			Max:                 d.Max,
			Std:                 d.Std,
			MeanAbsLateral:      lat / n,
			MeanAbsLongitudinal: long / n,
		})
	}
	sort.Slice(a.PerVehicle, func(i, j int) bool {
		return a.PerVehicle[i].EntityID < a.PerVehicle[j].EntityID
	})
	return a
}

// WriteAnalysis writes a human readable report of the analysis.
func (a *Analysis) WriteAnalysis(w io.Writer) error {
	bw := bufio.NewWriter(w)
	f := common.FormatFixed
	line := strings.Repeat("=", 70)

	fmt.Fprintln(bw, line)
	fmt.Fprintln(bw, "OVERALL STATISTICS")
	fmt.Fprintln(bw, line)
	fmt.Fprintf(bw, "Total entries: %s\n", humanize.Comma(int64(a.Entries)))
	fmt.Fprintf(bw, "Number of vehicles: %d\n", a.Vehicles)
	fmt.Fprintf(bw, "Simulation duration: %.2f seconds\n", a.Duration)
	if !a.Bound.IsZero() {
		fmt.Fprintf(bw, "Reference extent: %.2f x %.2f m\n",
			a.Bound.Max.X()-a.Bound.Min.X(), a.Bound.Max.Y()-a.Bound.Min.Y())
	}
	d := a.PositionError
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Position Error Statistics:")
	fmt.Fprintf(bw, "  Mean:   %s m\n", f(d.Mean))
	fmt.Fprintf(bw, "  Median: %s m\n", f(d.Median))
	fmt.Fprintf(bw, "  Std:    %s m\n", f(d.Std))
	fmt.Fprintf(bw, "  Min:    %s m\n", f(d.Min))
	fmt.Fprintf(bw, "  Max:    %s m\n", f(d.Max))
	fmt.Fprintf(bw, "  95th percentile: %s m\n", f(d.P95))

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, line)
	fmt.Fprintln(bw, headerPerVehicle)
	fmt.Fprintln(bw, line)
	for _, v := range a.PerVehicle {
		fmt.Fprintln(bw)
		fmt.Fprintf(bw, "%s:\n", v.EntityID)
		fmt.Fprintf(bw, "  Samples: %d\n", v.Samples)
		fmt.Fprintln(bw, "  Position Error:")
		fmt.Fprintf(bw, "    Mean:   %s m\n", f(v.Mean))
		fmt.Fprintf(bw, "    Max:    %s m\n", f(v.Max))
		fmt.Fprintf(bw, "    Std:    %s m\n", f(v.Std))
		fmt.Fprintf(bw, "  Lateral Error (mean abs):  %s m\n", f(v.MeanAbsLateral))
		fmt.Fprintf(bw, "  Longitudinal Error (mean abs): %s m\n", f(v.MeanAbsLongitudinal))
	}
	return bw.Flush()
}
