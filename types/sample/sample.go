package sample

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/posacc/conceptual"
)

// Vector3 is a position in engine space. Y is the vertical axis.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Planar projects the position onto the ground plane.
// Elevation is dropped because it is not comparable between sources.
func (v Vector3) Planar() orb.Point {
	return orb.Point{v.X, v.Z}
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

// AccuracySample is one position comparison for one entity at one tick.
// It is created once and never mutated.
type AccuracySample struct {
	// Timestamp is simulation-relative time of capture, in seconds.
	Timestamp float64 `json:"timestamp"`

	EntityID conceptual.EntityID `json:"entity"`

	// Rendered is the engine's physics-driven position.
	Rendered Vector3 `json:"rendered"`

	// Reference is the external simulator's ground truth position.
	Reference Vector3 `json:"reference"`

	// PositionError is the planar Euclidean distance between Rendered and Reference.
	PositionError float64 `json:"position_error"`

	// LateralError and LongitudinalError are the signed X and Z components
	// of the rendered-minus-reference offset.
	LateralError      float64 `json:"lateral_error"`
	LongitudinalError float64 `json:"longitudinal_error"`

	// Speed and SteeringAngle are carried for debugging and are not used in threshold math.
	Speed         float64 `json:"speed"`
	SteeringAngle float64 `json:"steering_angle"`
}

// New builds a sample and derives its error metrics.
func New(timestamp float64, id conceptual.EntityID, rendered, reference Vector3, speed, steering float64) *AccuracySample {
	return &AccuracySample{
		Timestamp:         timestamp,
		EntityID:          id,
		Rendered:          rendered,
		Reference:         reference,
		PositionError:     planar.Distance(rendered.Planar(), reference.Planar()),
		LateralError:      rendered.X - reference.X,
		LongitudinalError: rendered.Z - reference.Z,
		Speed:             speed,
		SteeringAngle:     steering,
	}
}
