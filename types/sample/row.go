package sample

import (
	"errors"
	"fmt"

	"github.com/rotblauer/posacc/common"
	"github.com/rotblauer/posacc/conceptual"
)

// Column names of the session row log, in order.
// The CI gate depends on VehicleID and PositionError.
const (
	ColTimestamp         = "Timestamp"
	ColVehicleID         = "VehicleID"
	ColUnityX            = "UnityX"
	ColUnityY            = "UnityY"
	ColUnityZ            = "UnityZ"
	ColSumoX             = "SumoX"
	ColSumoY             = "SumoY"
	ColSumoZ             = "SumoZ"
	ColPositionError     = "PositionError"
	ColLateralError      = "LateralError"
	ColLongitudinalError = "LongitudinalError"
	ColSpeed             = "Speed"
	ColSteeringAngle     = "SteeringAngle"
)

var header = []string{
	ColTimestamp, ColVehicleID,
	ColUnityX, ColUnityY, ColUnityZ,
	ColSumoX, ColSumoY, ColSumoZ,
	ColPositionError, ColLateralError, ColLongitudinalError,
	ColSpeed, ColSteeringAngle,
}

var ErrRowLength = errors.New("unexpected row length")

// Header returns a copy of the row log header.
func Header() []string {
	return append([]string{}, header...)
}

// Row encodes the sample as row log fields, fixed 4-decimal numbers.
func (s *AccuracySample) Row() []string {
	f := common.FormatFixed
	return []string{
		f(s.Timestamp), s.EntityID.String(),
		f(s.Rendered.X), f(s.Rendered.Y), f(s.Rendered.Z),
		f(s.Reference.X), f(s.Reference.Y), f(s.Reference.Z),
		f(s.PositionError), f(s.LateralError), f(s.LongitudinalError),
		f(s.Speed), f(s.SteeringAngle),
	}
}

// ParseRow decodes a row written by Row. Values are taken as written;
// the errors are not recomputed, so a parsed sample reproduces the logged values.
func ParseRow(fields []string) (*AccuracySample, error) {
	if len(fields) != len(header) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrRowLength, len(fields), len(header))
	}
	nums := make([]float64, len(fields))
	for i, field := range fields {
		if i == 1 {
			continue
		}
		v, err := common.ParseFixed(field)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", header[i], err)
		}
		nums[i] = v
	}
	return &AccuracySample{
		Timestamp:         nums[0],
		EntityID:          conceptual.EntityID(fields[1]),
		Rendered:          Vector3{X: nums[2], Y: nums[3], Z: nums[4]},
		Reference:         Vector3{X: nums[5], Y: nums[6], Z: nums[7]},
		PositionError:     nums[8],
		LateralError:      nums[9],
		LongitudinalError: nums[10],
		Speed:             nums[11],
		SteeringAngle:     nums[12],
	}, nil
}
