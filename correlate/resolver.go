/*
Package correlate pairs the external simulator's entities with their rendered counterparts.

Matching is by substring: a rendered entity matches an external entity when its
display name contains the external id, e.g. "Vehicle_flow_0.3(Clone)" matches "flow_0.3".
When more than one rendered entity matches, the first one in candidate order wins.
Overlapping ids (e.g. "veh1" and "veh10") can mis-associate; this is kept as-is.
*/
package correlate

import (
	"strings"

	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/frame"
	"github.com/rotblauer/posacc/types/sample"
)

// Pair is a matched external entity and the position of its rendered counterpart.
type Pair struct {
	External     frame.ExternalEntity
	RenderedName string
	Rendered     sample.Vector3
}

// Correlation is the result of one tick's matching.
type Correlation struct {
	// Pairs are in external entity order.
	Pairs []Pair

	// Unmatched counts external entities without a rendered counterpart this tick.
	Unmatched int

	lookup map[conceptual.EntityID]sample.Vector3
}

// Lookup returns the rendered position matched to id, if any.
func (c Correlation) Lookup(id conceptual.EntityID) (sample.Vector3, bool) {
	v, ok := c.lookup[id]
	return v, ok
}

// Len is the size of the correlation set.
func (c Correlation) Len() int {
	return len(c.Pairs)
}

// Resolve matches every external entity against the candidates.
// The candidate set is rebuilt on every call; nothing is cached between ticks.
func Resolve(external []frame.ExternalEntity, rendered []frame.RenderedEntity) Correlation {
	c := Correlation{
		Pairs:  make([]Pair, 0, len(external)),
		lookup: make(map[conceptual.EntityID]sample.Vector3, len(external)),
	}
	for _, ext := range external {
		// An empty id is a substring of everything.
		if ext.ID.Empty() {
			c.Unmatched++
			continue
		}
		// Duplicate external ids in one frame keep the first.
		if _, seen := c.lookup[ext.ID]; seen {
			continue
		}
		match, ok := firstMatch(ext.ID, rendered)
		if !ok {
			c.Unmatched++
			continue
		}
		c.Pairs = append(c.Pairs, Pair{
			External:     ext,
			RenderedName: match.Name,
			Rendered:     match.Position,
		})
		c.lookup[ext.ID] = match.Position
	}
	return c
}

func firstMatch(id conceptual.EntityID, rendered []frame.RenderedEntity) (frame.RenderedEntity, bool) {
	for _, r := range rendered {
		if strings.Contains(r.Name, id.String()) {
			return r, true
		}
	}
	return frame.RenderedEntity{}, false
}
