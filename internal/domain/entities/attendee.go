package entities

import (
	"time"

	"checkin/internal/domain"
)

// Attendee is the canonical roster record, whatever source it was loaded from.
type Attendee struct {
	ID             string        `json:"id"`
	TableNumber    string        `json:"tableNumber"`
	GroupName      string        `json:"groupName"`
	AttendeeName   string        `json:"attendeeName"`
	TicketType     string        `json:"ticketType"`
	Email          string        `json:"email"`
	AdditionalInfo string        `json:"additionalInfo"`
	Status         domain.Status `json:"status"`
	CheckedInAt    *time.Time    `json:"checkedInAt"`
	RowIndex       int           `json:"rowIndex"` // traceability only, never an identity key
}

func (a Attendee) IsCheckedIn() bool {
	return a.Status == domain.StatusCheckedIn
}

// WithStatus returns a copy of a in the given status. checkedInAt is set exactly
// when the status is checked-in (at, or now when at is nil) and cleared otherwise.
func (a Attendee) WithStatus(status domain.Status, at *time.Time) Attendee {
	out := a
	if status == domain.StatusCheckedIn {
		ts := time.Now().UTC()
		if at != nil && !at.IsZero() {
			ts = at.UTC()
		}
		out.Status = domain.StatusCheckedIn
		out.CheckedInAt = &ts
		return out
	}
	out.Status = domain.StatusPending
	out.CheckedInAt = nil
	return out
}

// Equal compares two records field by field, timestamps included.
func (a Attendee) Equal(b Attendee) bool {
	if a.CheckedInAt == nil || b.CheckedInAt == nil {
		if a.CheckedInAt != b.CheckedInAt {
			return false
		}
	} else if !a.CheckedInAt.Equal(*b.CheckedInAt) {
		return false
	}
	a.CheckedInAt, b.CheckedInAt = nil, nil
	return a == b
}

// StatusUpdate is the payload persisted by a source for one check-in change.
type StatusUpdate struct {
	Status      domain.Status
	CheckedInAt *time.Time
}
