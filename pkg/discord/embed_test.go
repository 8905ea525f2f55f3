package discord

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/input"
)

type keyTranslator struct{}

func (keyTranslator) T(locale, key string, data map[string]any) string {
	if len(data) == 0 {
		return key
	}
	return fmt.Sprintf("%s %v", key, data)
}

func TestBuildStatsEmbed(t *testing.T) {
	v := StatsView{
		Stats: entities.Stats{
			Total: 4, CheckedIn: 3, Pending: 1, Percentage: 75,
			ByTable: map[string]int{"1": 2, "2": 1},
			ByGroup: map[string]int{"VIP": 3},
		},
		Source:    input.SourceStatus{Kind: domain.SourceCSV, State: "loaded"},
		UpdatedAt: time.Date(2024, 12, 31, 22, 15, 0, 0, time.UTC),
	}
	e := BuildStatsEmbed(keyTranslator{}, "fr", v, time.UTC)

	if e.Title != "stats_title" || e.Color != embedColor {
		t.Errorf("unexpected title/color %q %x", e.Title, e.Color)
	}
	if !strings.Contains(e.Description, "Percentage:75") {
		t.Errorf("description: %q", e.Description)
	}
	if !strings.Contains(e.Footer.Text, "Time:22:15") {
		t.Errorf("footer: %q", e.Footer.Text)
	}
	if len(e.Fields) != 2 || e.Fields[0].Value != "**1** : 2\n**2** : 1" {
		t.Errorf("fields: %+v", e.Fields)
	}

	v.Source.ErrorCode = "source_unavailable"
	v.Stats = entities.Stats{}
	e = BuildStatsEmbed(keyTranslator{}, "fr", v, time.UTC)
	if e.Color != embedColorError || e.Description != "stats_empty" {
		t.Errorf("error embed: %x %q", e.Color, e.Description)
	}
	if last := e.Fields[len(e.Fields)-1]; last.Value != "error_source_unavailable" {
		t.Errorf("error field: %+v", last)
	}
}

func TestBreakdownFieldTruncates(t *testing.T) {
	counts := map[string]int{}
	for i := 0; i < maxFieldLines+5; i++ {
		counts[fmt.Sprintf("T%02d", i)] = 1
	}
	f := breakdownField("tables", counts)
	if !strings.HasSuffix(f.Value, "… +5") {
		t.Errorf("expected truncation marker, got %q", f.Value)
	}
	if breakdownField("empty", nil) != nil {
		t.Error("empty breakdown should be omitted")
	}
}
