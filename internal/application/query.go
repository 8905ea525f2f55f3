package application

import (
	"cmp"
	"slices"
	"strings"

	"checkin/internal/domain/entities"
	"checkin/internal/ports/input"
)

// Query filters and sorts a copy of the roster for the searchable list.
func (m *Manager) Query(q input.RosterQuery) entities.Roster {
	return FilterRoster(m.CurrentRoster(), q)
}

// FilterRoster applies q to r. The search matches name, table, group, ticket
// and email, case-insensitively.
func FilterRoster(r entities.Roster, q input.RosterQuery) entities.Roster {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make(entities.Roster, 0, len(r))
	for _, a := range r {
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if needle != "" && !matches(a, needle) {
			continue
		}
		out = append(out, a)
	}

	less := sortKey(q.SortBy)
	slices.SortStableFunc(out, func(a, b entities.Attendee) int {
		c := less(a, b)
		if c == 0 {
			c = cmp.Compare(strings.ToLower(a.AttendeeName), strings.ToLower(b.AttendeeName))
		}
		if q.Desc {
			return -c
		}
		return c
	})
	return out
}

func matches(a entities.Attendee, needle string) bool {
	for _, field := range []string{a.AttendeeName, a.TableNumber, a.GroupName, a.TicketType, a.Email} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func sortKey(by string) func(a, b entities.Attendee) int {
	switch by {
	case "table":
		return func(a, b entities.Attendee) int { return naturalCompare(a.TableNumber, b.TableNumber) }
	case "group":
		return func(a, b entities.Attendee) int {
			return cmp.Compare(strings.ToLower(a.GroupName), strings.ToLower(b.GroupName))
		}
	case "status":
		return func(a, b entities.Attendee) int { return cmp.Compare(a.Status, b.Status) }
	case "checkedInAt":
		return func(a, b entities.Attendee) int {
			switch {
			case a.CheckedInAt == nil && b.CheckedInAt == nil:
				return 0
			case a.CheckedInAt == nil:
				return 1
			case b.CheckedInAt == nil:
				return -1
			}
			return a.CheckedInAt.Compare(*b.CheckedInAt)
		}
	default:
		return func(a, b entities.Attendee) int { return 0 }
	}
}

// naturalCompare orders "Table 2" before "Table 10".
func naturalCompare(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		da, ra := leadingDigits(a)
		db, rb := leadingDigits(b)
		if da != "" && db != "" {
			na, nb := strings.TrimLeft(da, "0"), strings.TrimLeft(db, "0")
			if c := cmp.Compare(len(na), len(nb)); c != 0 {
				return c
			}
			if c := cmp.Compare(na, nb); c != 0 {
				return c
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			return cmp.Compare(a[0], b[0])
		}
		a, b = a[1:], b[1:]
	}
	return cmp.Compare(len(a), len(b))
}

func leadingDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
