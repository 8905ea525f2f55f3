package overlay

import (
	"context"
	"os"
	"testing"
	"time"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
)

func TestApply(t *testing.T) {
	at := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	attendees := []entities.Attendee{
		{ID: "csv_a_1", Status: domain.StatusPending},
		{ID: "csv_b_2", Status: domain.StatusPending},
		{ID: "csv_c_3", Status: domain.StatusCheckedIn, CheckedInAt: &at},
	}
	var stamps Stamps
	got := stamps.Apply(attendees, map[string]entities.StatusUpdate{
		"csv_a_1":   {Status: domain.StatusCheckedIn, CheckedInAt: &at},
		"csv_c_3":   {Status: domain.StatusPending},
		"unrelated": {Status: domain.StatusCheckedIn},
	})

	if !got[0].IsCheckedIn() || !got[0].CheckedInAt.Equal(at) {
		t.Errorf("a: %+v", got[0])
	}
	if got[1].IsCheckedIn() {
		t.Errorf("b should be untouched: %+v", got[1])
	}
	if got[2].IsCheckedIn() || got[2].CheckedInAt != nil {
		t.Errorf("c should be pending without timestamp: %+v", got[2])
	}
}

func TestStampsKeepFirstSeenTime(t *testing.T) {
	first := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	clock := first
	stamps := Stamps{now: func() time.Time { return clock }}
	checkins := map[string]entities.StatusUpdate{"csv_a_1": {Status: domain.StatusCheckedIn}}
	load := func() entities.Attendee {
		return stamps.Apply([]entities.Attendee{{ID: "csv_a_1", Status: domain.StatusPending}}, checkins)[0]
	}

	a := load()
	clock = clock.Add(30 * time.Second)
	b := load()
	if !a.IsCheckedIn() || !a.Equal(b) || !b.CheckedInAt.Equal(first) {
		t.Errorf("timestamp moved between loads: %v then %v", a.CheckedInAt, b.CheckedInAt)
	}

	// An undo forgets the stamp; a later check-in gets a fresh one.
	checkins["csv_a_1"] = entities.StatusUpdate{Status: domain.StatusPending}
	if c := load(); c.IsCheckedIn() {
		t.Errorf("expected pending, got %+v", c)
	}
	checkins["csv_a_1"] = entities.StatusUpdate{Status: domain.StatusCheckedIn}
	if d := load(); !d.CheckedInAt.Equal(clock) {
		t.Errorf("expected a fresh stamp %v, got %v", clock, d.CheckedInAt)
	}
}

// TestRedis runs against a real server when REDIS_TEST_URL is set.
func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, url, "test-"+time.Now().Format("150405.000000"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		r.conn.Del(ctx, r.key)
		r.Close()
	}()

	at := time.Now().UTC().Truncate(time.Second)
	if err := r.Put(ctx, "spreadsheet_ada_1", entities.StatusUpdate{Status: domain.StatusCheckedIn, CheckedInAt: &at}); err != nil {
		t.Fatal(err)
	}
	got, err := r.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	u, ok := got["spreadsheet_ada_1"]
	if !ok || u.Status != domain.StatusCheckedIn || u.CheckedInAt == nil || !u.CheckedInAt.Equal(at) {
		t.Errorf("unexpected state %+v", got)
	}
}
