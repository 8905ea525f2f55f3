package entities

// Roster is the complete in-memory set of attendees at one point in time.
type Roster []Attendee

// Clone returns a deep copy; CheckedInAt pointers are not shared.
func (r Roster) Clone() Roster {
	if r == nil {
		return Roster{}
	}
	out := make(Roster, len(r))
	for i, a := range r {
		if a.CheckedInAt != nil {
			ts := *a.CheckedInAt
			a.CheckedInAt = &ts
		}
		out[i] = a
	}
	return out
}

// IndexOf returns the position of the attendee with the given id, or -1.
func (r Roster) IndexOf(id string) int {
	for i := range r {
		if r[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the attendee with the given id.
func (r Roster) Find(id string) (Attendee, bool) {
	if i := r.IndexOf(id); i >= 0 {
		return r[i], true
	}
	return Attendee{}, false
}
