package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/ports/output"
)

func TestAttendeeToRaw(t *testing.T) {
	at := time.Date(2024, 5, 1, 19, 30, 0, 0, time.UTC)
	raw := attendeeToRaw(attendeeRow{
		ID:           "42",
		TableNumber:  pgtype.Text{String: "7", Valid: true},
		AttendeeName: pgtype.Text{String: "Ada Lovelace", Valid: true},
		TicketType:   pgtype.Text{String: "VIP", Valid: true},
		Status:       pgtype.Text{String: "checked-in", Valid: true},
		CheckedInAt:  pgtype.Timestamptz{Time: at, Valid: true},
	})

	a, ok := normalize.New(nil).Normalize(raw, 1, domain.SourceDatabase)
	if !ok {
		t.Fatal("row dropped")
	}
	if a.ID != "42" || a.GroupName != "VIP" || a.TableNumber != "7" {
		t.Errorf("unexpected attendee %+v", a)
	}
	if !a.IsCheckedIn() || a.CheckedInAt == nil || !a.CheckedInAt.Equal(at) {
		t.Errorf("checked-in state lost: %+v", a)
	}
}

func TestDecodeNotification(t *testing.T) {
	delta, err := decodeNotification(`{"eventType":"update","new":{"id":3,"status":"checked-in"},"old":{"id":3}}`)
	if err != nil {
		t.Fatal(err)
	}
	if delta.EventType != output.EventUpdate {
		t.Errorf("event type not normalized: %q", delta.EventType)
	}
	if string(delta.New) != `{"id":3,"status":"checked-in"}` {
		t.Errorf("new record: %s", delta.New)
	}

	for _, bad := range []string{"not json", `{"new":{}}`} {
		if _, err := decodeNotification(bad); !errors.Is(err, domain.ErrSourceParse) {
			t.Errorf("%q: expected parse error, got %v", bad, err)
		}
	}
}

func TestClassify(t *testing.T) {
	missing := classify("load", &pgconn.PgError{Code: "42P01", Message: `relation "guests" does not exist`})
	if !errors.Is(missing, domain.ErrSourceMisconfigured) {
		t.Errorf("missing table should be misconfigured, got %v", missing)
	}
	down := classify("load", fmt.Errorf("dial tcp: connection refused"))
	if !errors.Is(down, domain.ErrSourceUnavailable) {
		t.Errorf("network failure should be unavailable, got %v", down)
	}
}
