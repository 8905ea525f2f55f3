package database

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/ports/output"
)

// attendeeRow mirrors one row of the attendees table. Every column but id
// may be NULL when the table is filled by hand.
type attendeeRow struct {
	ID             string
	TableNumber    pgtype.Text
	GroupName      pgtype.Text
	AttendeeName   pgtype.Text
	TicketType     pgtype.Text
	Email          pgtype.Text
	AdditionalInfo pgtype.Text
	Status         pgtype.Text
	CheckedInAt    pgtype.Timestamptz
}

func (r *attendeeRow) scanTargets() []any {
	return []any{
		&r.ID, &r.TableNumber, &r.GroupName, &r.AttendeeName, &r.TicketType,
		&r.Email, &r.AdditionalInfo, &r.Status, &r.CheckedInAt,
	}
}

// pgtypeTimestamptzToString returns t as RFC 3339 when Valid, else "".
func pgtypeTimestamptzToString(t pgtype.Timestamptz) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}

func timeToPgtypeTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func attendeeToRaw(r attendeeRow) normalize.RawRow {
	cells := make([]string, normalize.ColInfo+1)
	cells[normalize.ColTable] = r.TableNumber.String
	cells[normalize.ColGroup] = r.GroupName.String
	cells[normalize.ColName] = r.AttendeeName.String
	cells[normalize.ColTicket] = r.TicketType.String
	cells[normalize.ColEmail] = r.Email.String
	cells[normalize.ColInfo] = r.AdditionalInfo.String
	return normalize.RawRow{
		Cells:       cells,
		ID:          r.ID,
		Status:      r.Status.String,
		CheckedInAt: pgtypeTimestamptzToString(r.CheckedInAt),
	}
}

// decodeNotification parses a trigger payload: {"eventType","new","old"}.
func decodeNotification(payload string) (output.PushDelta, error) {
	var delta output.PushDelta
	if err := json.Unmarshal([]byte(payload), &delta); err != nil {
		return output.PushDelta{}, fmt.Errorf("decode notification: %v: %w", err, domain.ErrSourceParse)
	}
	delta.EventType = strings.ToUpper(strings.TrimSpace(delta.EventType))
	if delta.EventType == "" {
		return output.PushDelta{}, fmt.Errorf("decode notification: eventType manquant: %w", domain.ErrSourceParse)
	}
	return delta, nil
}
