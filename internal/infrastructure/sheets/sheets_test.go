package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/domain/entities"
)

func TestExportURL(t *testing.T) {
	cases := map[string]string{
		"https://docs.google.com/spreadsheets/d/1AbC_d-9/edit#gid=123":     "https://docs.google.com/spreadsheets/d/1AbC_d-9/export?format=csv&gid=123",
		"https://docs.google.com/spreadsheets/d/1AbC/edit?usp=sharing":     "https://docs.google.com/spreadsheets/d/1AbC/export?format=csv",
		"https://docs.google.com/spreadsheets/d/1AbC/htmlview":             "https://docs.google.com/spreadsheets/d/1AbC/export?format=csv",
		"https://docs.google.com/spreadsheets/d/e/2PACX-1v/pubhtml?gid=7":  "https://docs.google.com/spreadsheets/d/e/2PACX-1v/pub?gid=7&output=csv&single=true",
		"https://docs.google.com/spreadsheets/d/e/2PACX-1v/pub?output=csv": "https://docs.google.com/spreadsheets/d/e/2PACX-1v/pub?output=csv",
		"https://example.com/exports/guests.csv":                           "https://example.com/exports/guests.csv",
	}
	for in, want := range cases {
		got, err := ExportURL(in)
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ExportURL(%s)\n got  %s\n want %s", in, got, want)
		}
	}

	for _, bad := range []string{"", "   ", "docs.google.com/spreadsheets", "https://docs.google.com/document/d/xyz/edit"} {
		if _, err := ExportURL(bad); !errors.Is(err, domain.ErrSourceMisconfigured) {
			t.Errorf("%q: expected misconfigured, got %v", bad, err)
		}
	}
}

func TestParseTable(t *testing.T) {
	rows, err := ParseTable([]byte("Table,Group,Name,Ticket\n\"Table 1\",\"Smith, Jones & Co\",John Smith,VIP\n,,Jane Doe,Standard\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(rows))
	}
	if rows[0][1] != "Smith, Jones & Co" {
		t.Errorf("quoted delimiter not preserved: %q", rows[0][1])
	}

	rows, err = ParseTable([]byte("\xEF\xBB\xBFTable;Group;Name\n2;Band;Zoé\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][2] != "Zoé" {
		t.Errorf("semicolon/BOM export misparsed: %q", rows)
	}

	rows, err = ParseTable([]byte("Table,Group,Name\n3,Caf\xe9,Ren\xe9\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][1] != "Café" || rows[0][2] != "René" {
		t.Errorf("latin-1 not decoded: %q", rows[0])
	}

	rows, err = ParseTable([]byte("Table\tGroup\tName\n4\tCrew\tSam\n"))
	if err != nil || len(rows) != 1 || rows[0][2] != "Sam" {
		t.Errorf("tab export misparsed: %q, %v", rows, err)
	}

	if _, err := ParseTable([]byte("<!DOCTYPE html><html>sign in</html>")); !errors.Is(err, domain.ErrSourceParse) {
		t.Errorf("expected parse error for HTML, got %v", err)
	}
	if rows, err := ParseTable(nil); err != nil || len(rows) != 0 {
		t.Errorf("empty input should give no rows, got %q, %v", rows, err)
	}
}

type memOverlay struct {
	mu   sync.Mutex
	data map[string]entities.StatusUpdate
}

func (m *memOverlay) Fetch(ctx context.Context) (map[string]entities.StatusUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]entities.StatusUpdate, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memOverlay) Put(ctx context.Context, id string, u entities.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = u
	return nil
}

const sheetCSV = "Table,Group,Name,Ticket\nTable 1,VIP,John Smith,VIP Ticket\n,,Jane Doe,Standard\n"

func TestSource_FallsBackToRelay(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer origin.Close()

	var relayed string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayed = r.URL.Query().Get("url")
		w.Write([]byte(sheetCSV))
	}))
	defer relay.Close()

	checkins := &memOverlay{data: map[string]entities.StatusUpdate{}}
	src, err := NewSource(domain.SheetSettings{URL: origin.URL + "/guests.csv", RelayURL: relay.URL + "/relay"}, checkins, normalize.New(nil), nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := src.LoadData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if relayed != origin.URL+"/guests.csv" {
		t.Errorf("relay received %q", relayed)
	}
	if len(got) != 2 || got[0].ID != "spreadsheet_john_smith_1" {
		t.Fatalf("unexpected attendees %+v", got)
	}

	if err := src.UpdateAttendee(context.Background(), got[1].ID, entities.StatusUpdate{Status: domain.StatusCheckedIn}); err != nil {
		t.Fatal(err)
	}
	got, err = src.LoadData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !got[1].IsCheckedIn() || got[1].CheckedInAt == nil {
		t.Errorf("overlay not applied after reload: %+v", got[1])
	}
}

func TestSource_AllStrategiesFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Table,Group,Name\n"))
	}))
	defer down.Close()

	src, err := NewSource(domain.SheetSettings{URL: down.URL, RelayURL: down.URL}, nil, normalize.New(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.LoadData(context.Background())
	if !errors.Is(err, domain.ErrSourceUnavailable) || !errors.Is(err, domain.ErrManualSourceRequired) {
		t.Fatalf("expected unavailable + manual required, got %v", err)
	}
	if domain.Code(err) != "manual_source_required" {
		t.Errorf("unexpected code %q", domain.Code(err))
	}

	src.Import([]byte(sheetCSV))
	got, err := src.LoadData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("manual import not used: %+v", got)
	}
	if err := src.UpdateAttendee(context.Background(), got[0].ID, entities.StatusUpdate{Status: domain.StatusCheckedIn}); !errors.Is(err, domain.ErrUpdateRejected) {
		t.Errorf("read-only sheet should reject updates, got %v", err)
	}
}

func TestSource_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guests.csv")
	if err := os.WriteFile(path, []byte(sheetCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	src, err := NewSource(domain.SheetSettings{LocalFile: path}, nil, normalize.New(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.LoadData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].TableNumber != "General" || got[1].GroupName != "Standard" {
		t.Errorf("unexpected attendees %+v", got)
	}

	if _, err := NewSource(domain.SheetSettings{}, nil, normalize.New(nil), nil); !errors.Is(err, domain.ErrSourceMisconfigured) {
		t.Errorf("expected misconfigured without url or file, got %v", err)
	}
}
