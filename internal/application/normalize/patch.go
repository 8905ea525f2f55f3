package normalize

import (
	"log"
	"strings"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
)

// KeyOf returns the primary key carried by a keyed row, or "".
func KeyOf(m map[string]any) string {
	for k, v := range m {
		switch normalizeHeader(k) {
		case "id", "attendeeid":
			return strings.TrimSpace(stringify(v))
		}
	}
	return ""
}

// Patch applies the keys present in a change-feed record to a. Keys absent
// from m leave the field untouched; id and row index never change.
func (n *Normalizer) Patch(a entities.Attendee, m map[string]any) entities.Attendee {
	var (
		statusSet, atSet bool
		status           = a.Status
		rawAt            string
	)
	for k, v := range m {
		key := normalizeHeader(k)
		val := strings.TrimSpace(stringify(v))
		switch key {
		case "status":
			s, err := domain.ParseStatus(strings.ToLower(val))
			if err != nil {
				log.Printf("⚠️ Statut inconnu %q dans la notification pour %s", val, a.ID)
				continue
			}
			status, statusSet = s, true
			continue
		case "checkedinat":
			rawAt, atSet = val, true
			continue
		}
		pos, ok := headerAliases[key]
		if !ok {
			continue
		}
		switch pos {
		case ColTable:
			if val == "" {
				val = DefaultTable
			}
			a.TableNumber = val
		case ColGroup:
			a.GroupName = val
		case ColName:
			a.AttendeeName = val
		case ColTicket:
			a.TicketType = val
		case ColEmail:
			a.Email = n.email(val, a.RowIndex)
		case ColInfo:
			a.AdditionalInfo = val
		}
	}
	if a.GroupName == "" && a.TicketType != "" {
		a.GroupName = a.TicketType
	}

	switch {
	case statusSet:
		at := a.CheckedInAt
		if atSet {
			at = parseTime(rawAt)
		}
		return a.WithStatus(status, at)
	case atSet:
		if at := parseTime(rawAt); at != nil {
			return a.WithStatus(domain.StatusCheckedIn, at)
		}
		return a.WithStatus(domain.StatusPending, nil)
	default:
		return a
	}
}
