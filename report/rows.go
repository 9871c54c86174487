package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotblauer/posacc/aggregate"
	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/sample"
)

// ReadRows reads a session row log.
// Columns are found by header name, so logs with extra or missing optional columns still load.
// VehicleID and PositionError are required; rows without a usable value for either are skipped,
// as is a truncated trailing row left by a crashed session.
// A non-finite PositionError makes the whole log malformed.
func ReadRows(r io.Reader) ([]*sample.AccuracySample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty row log", ErrMalformed)
	}
	if err != nil {
		return nil, err
	}
	cols := map[string]int{}
	for i, name := range head {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}
	idCol, okID := cols[sample.ColVehicleID]
	errCol, okErr := cols[sample.ColPositionError]
	if !okID || !okErr {
		return nil, fmt.Errorf("%w: row log missing %s and/or %s column",
			ErrMalformed, sample.ColVehicleID, sample.ColPositionError)
	}

	var out []*sample.AccuracySample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return out, err
		}
		if idCol >= len(rec) || errCol >= len(rec) {
			continue
		}
		id := strings.TrimSpace(rec[idCol])
		if id == "" {
			continue
		}
		posErr, err := common.ParseFixed(rec[errCol])
		if errors.Is(err, common.ErrNonFinite) {
			return nil, fmt.Errorf("%w: vehicle %s: %s %v", ErrMalformed, id, sample.ColPositionError, err)
		}
		if err != nil {
			continue
		}
		num := func(name string) float64 {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return 0
			}
			v, err := common.ParseFixed(rec[i])
			if err != nil {
				return 0
			}
			return v
		}
		out = append(out, &sample.AccuracySample{
			Timestamp:         num(sample.ColTimestamp),
			EntityID:          conceptual.EntityID(id),
			Rendered:          sample.Vector3{X: num(sample.ColUnityX), Y: num(sample.ColUnityY), Z: num(sample.ColUnityZ)},
			Reference:         sample.Vector3{X: num(sample.ColSumoX), Y: num(sample.ColSumoY), Z: num(sample.ColSumoZ)},
			PositionError:     posErr,
			LateralError:      num(sample.ColLateralError),
			LongitudinalError: num(sample.ColLongitudinalError),
			Speed:             num(sample.ColSpeed),
			SteeringAngle:     num(sample.ColSteeringAngle),
		})
	}
	return out, nil
}

// Replay records rows into a fresh aggregator with the given window size.
func Replay(rows []*sample.AccuracySample, window int) *aggregate.Aggregator {
	agg := aggregate.NewAggregator(window)
	for _, s := range rows {
		agg.Record(s.EntityID, s)
	}
	return agg
}

// FromRowLog rebuilds a summary from a row log.
// A log with a header and no rows yields an empty summary, not an error.
func FromRowLog(r io.Reader, meta Meta, window int) (*Summary, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	return Build(meta, Replay(rows, window)), nil
}
