package normalize

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/output"
)

// DefaultTable is assigned to attendees without a table number.
const DefaultTable = "General"

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalizer turns raw rows from any source into attendees.
type Normalizer struct {
	emails output.EmailValidator
}

// New returns a Normalizer. emails may be nil, in which case addresses are only trimmed.
func New(emails output.EmailValidator) *Normalizer {
	return &Normalizer{
		emails: emails,
	}
}

// Normalize converts one raw row. It returns false when the row carries no
// table, group or name and must be dropped.
func (n *Normalizer) Normalize(raw RawRow, index int, kind domain.SourceKind) (entities.Attendee, bool) {
	a := entities.Attendee{
		TableNumber:    raw.cell(ColTable),
		GroupName:      raw.cell(ColGroup),
		AttendeeName:   raw.cell(ColName),
		TicketType:     raw.cell(ColTicket),
		Email:          raw.cell(ColEmail),
		AdditionalInfo: raw.cell(ColInfo),
		RowIndex:       index,
	}
	if a.GroupName == "" && a.TicketType != "" {
		a.GroupName = a.TicketType
	}
	if a.TableNumber == "" && a.GroupName == "" && a.AttendeeName == "" {
		return entities.Attendee{}, false
	}
	if a.TableNumber == "" {
		a.TableNumber = DefaultTable
	}

	a.Email = n.email(a.Email, index)

	a.ID = strings.TrimSpace(raw.ID)
	if !kind.HasNaturalKey() || a.ID == "" {
		a.ID = n.SynthesizeID(kind, a.AttendeeName, index)
	}

	status, err := domain.ParseStatus(strings.ToLower(strings.TrimSpace(raw.Status)))
	if err != nil {
		log.Printf("⚠️ Statut inconnu %q (ligne %d), participant remis en attente", raw.Status, index)
		status = domain.StatusPending
	}
	return a.WithStatus(status, parseTime(raw.CheckedInAt)), true
}

// SynthesizeID builds the id of a row from a source without a natural key:
// kind, lowercased name with whitespace collapsed to '_', and row index.
// It is stable across reloads of an unchanged file, not across row reordering.
func (n *Normalizer) SynthesizeID(kind domain.SourceKind, name string, index int) string {
	slug := whitespaceRe.ReplaceAllString(cases.Lower(language.Und).String(strings.TrimSpace(name)), "_")
	return fmt.Sprintf("%s_%s_%d", kind, slug, index)
}

// NormalizeAll normalizes rows in order; row i gets index i+1. It also
// returns how many rows were dropped.
func (n *Normalizer) NormalizeAll(rows []RawRow, kind domain.SourceKind) ([]entities.Attendee, int) {
	out := make([]entities.Attendee, 0, len(rows))
	for i, r := range rows {
		if a, ok := n.Normalize(r, i+1, kind); ok {
			out = append(out, a)
		}
	}
	return out, len(rows) - len(out)
}

// Tally keeps the drop count of a source's last load. Sources embed it to
// implement output.DropReporter.
type Tally struct {
	n atomic.Int64
}

func (t *Tally) Record(dropped int) { t.n.Store(int64(dropped)) }

// Dropped is the number of rows discarded by the last recorded load.
func (t *Tally) Dropped() int { return int(t.n.Load()) }

// email returns the sanitized address, or "" when the validator rejects it.
func (n *Normalizer) email(raw string, index int) string {
	if raw == "" || n.emails == nil {
		return raw
	}
	res := n.emails.Validate(raw)
	if !res.Valid {
		log.Printf("⚠️ Email invalide ignoré (ligne %d, %q): %s", index, raw, res.Error)
		return ""
	}
	return res.Sanitized
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999-07", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	log.Printf("⚠️ Horodatage illisible ignoré: %q", s)
	return nil
}
