package overlay

import (
	"sync"
	"time"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
)

// Stamps merges check-in state into snapshots. A check-in stored without a
// time keeps the time it was first seen, so repeated loads of an unchanged
// overlay yield identical records. The zero value is ready to use.
type Stamps struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// Apply merges checkins into attendees by id, in place.
func (s *Stamps) Apply(attendees []entities.Attendee, checkins map[string]entities.StatusUpdate) []entities.Attendee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]time.Time)
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	stamped := make(map[string]struct{})
	for i, a := range attendees {
		u, ok := checkins[a.ID]
		if !ok {
			continue
		}
		at := u.CheckedInAt
		if u.Status == domain.StatusCheckedIn && (at == nil || at.IsZero()) {
			switch ts, known := s.seen[a.ID]; {
			case a.IsCheckedIn() && a.CheckedInAt != nil:
				at = a.CheckedInAt
			case known:
				at = &ts
			default:
				ts = now().UTC()
				s.seen[a.ID] = ts
				at = &ts
			}
			stamped[a.ID] = struct{}{}
		}
		attendees[i] = a.WithStatus(u.Status, at)
	}
	for id := range s.seen {
		if _, ok := stamped[id]; !ok {
			delete(s.seen, id)
		}
	}
	return attendees
}
