package correlate

import (
	"testing"

	"github.com/rotblauer/posacc/types/frame"
	"github.com/rotblauer/posacc/types/sample"
)

func TestResolve_SubstringMatch(t *testing.T) {
	external := []frame.ExternalEntity{
		{ID: "flow_0.0", Position: sample.Vector3{X: 1}},
		{ID: "flow_0.1", Position: sample.Vector3{X: 2}},
		{ID: "ghost", Position: sample.Vector3{X: 3}},
	}
	rendered := []frame.RenderedEntity{
		{Name: "Vehicle_flow_0.1(Clone)", Position: sample.Vector3{X: 2.1}},
		{Name: "Vehicle_flow_0.0(Clone)", Position: sample.Vector3{X: 1.1}},
		{Name: "Pedestrian_ped0", Position: sample.Vector3{X: 9}},
	}
	c := Resolve(external, rendered)
	if c.Len() != 2 {
		t.Fatalf("Expected 2 pairs, but got %d", c.Len())
	}
	if c.Unmatched != 1 {
		t.Errorf("Expected 1 unmatched, but got %d", c.Unmatched)
	}
	if c.Pairs[0].External.ID != "flow_0.0" || c.Pairs[1].External.ID != "flow_0.1" {
		t.Errorf("Expected pairs in external order, got %v, %v", c.Pairs[0].External.ID, c.Pairs[1].External.ID)
	}
	if pos, ok := c.Lookup("flow_0.1"); !ok || pos.X != 2.1 {
		t.Errorf("Expected flow_0.1 at X=2.1, but got %v (%v)", pos, ok)
	}
	if _, ok := c.Lookup("ghost"); ok {
		t.Error("Expected ghost to be unmatched")
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	// "veh1" is a substring of "veh10"; the first candidate wins.
	external := []frame.ExternalEntity{{ID: "veh1"}}
	rendered := []frame.RenderedEntity{
		{Name: "Car_veh10", Position: sample.Vector3{X: 10}},
		{Name: "Car_veh1", Position: sample.Vector3{X: 1}},
	}
	c := Resolve(external, rendered)
	if pos, _ := c.Lookup("veh1"); pos.X != 10 {
		t.Errorf("Expected first candidate (X=10), but got %v", pos)
	}
	if c.Pairs[0].RenderedName != "Car_veh10" {
		t.Errorf("Expected Car_veh10, but got %s", c.Pairs[0].RenderedName)
	}
}

func TestResolve_EmptyAndDuplicate(t *testing.T) {
	external := []frame.ExternalEntity{
		{ID: ""},
		{ID: "a", Position: sample.Vector3{X: 1}},
		{ID: "a", Position: sample.Vector3{X: 2}},
	}
	rendered := []frame.RenderedEntity{{Name: "a", Position: sample.Vector3{Z: 5}}}
	c := Resolve(external, rendered)
	if c.Len() != 1 {
		t.Fatalf("Expected 1 pair, but got %d", c.Len())
	}
	if c.Pairs[0].External.Position.X != 1 {
		t.Errorf("Expected first duplicate kept, got %v", c.Pairs[0].External.Position)
	}
	if c.Unmatched != 1 {
		t.Errorf("Expected empty id counted unmatched, got %d", c.Unmatched)
	}
}

func TestResolve_NoCandidates(t *testing.T) {
	c := Resolve([]frame.ExternalEntity{{ID: "x"}}, nil)
	if c.Len() != 0 || c.Unmatched != 1 {
		t.Errorf("Expected no pairs and 1 unmatched, got %d/%d", c.Len(), c.Unmatched)
	}
	c = Resolve(nil, nil)
	if c.Len() != 0 {
		t.Errorf("Expected empty correlation")
	}
}
