package frame

import (
	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/sample"
)

// ExternalEntity is one ground truth entity reported by the traffic simulator for a step.
type ExternalEntity struct {
	ID       conceptual.EntityID `json:"id"`
	Position sample.Vector3      `json:"position"`
	Speed    float64             `json:"speed"`
	Angle    float64             `json:"angle"`
}

// RenderedEntity is a candidate in-engine object.
// Name is its display name, which by convention embeds the external id.
type RenderedEntity struct {
	Name     string         `json:"name"`
	Position sample.Vector3 `json:"position"`
}

// Frame is everything the transport delivers for one tick.
type Frame struct {
	Step      int64            `json:"step"`
	Time      float64          `json:"time"`
	Reference []ExternalEntity `json:"reference"`
	Rendered  []RenderedEntity `json:"rendered"`
}

// Kind is the message type on the transport.
type Kind string

const (
	KindFrame  Kind = "frame"
	KindExport Kind = "export"
	KindClear  Kind = "clear"
	KindEnd    Kind = "end"
)

// Message is one decoded transport line.
// Frame is set only for KindFrame.
type Message struct {
	Kind  Kind
	Frame *Frame
}
