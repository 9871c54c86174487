package conceptual

// EntityID is the stable identifier the external simulator gives a tracked entity.
// It is unique per tracked entity within a session, not across sessions.
type EntityID string

func (e EntityID) String() string {
	return string(e)
}

func (e EntityID) Empty() bool {
	return e == ""
}
