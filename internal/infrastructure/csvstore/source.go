package csvstore

import (
	"context"
	"fmt"
	"log"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/infrastructure/overlay"
	"checkin/internal/ports/output"
)

var (
	_ output.Source       = (*Source)(nil)
	_ output.DropReporter = (*Source)(nil)
)

// Source loads rows already parsed upstream by the CSV-store endpoint and
// overlays the server-held check-in map.
type Source struct {
	client     *Client
	overlay    output.CheckinOverlay
	normalizer *normalize.Normalizer
	normalize.Tally
	stamps overlay.Stamps
}

// NewSource uses client itself as check-in store when checkins is nil.
func NewSource(client *Client, checkins output.CheckinOverlay, normalizer *normalize.Normalizer) *Source {
	if checkins == nil {
		checkins = client
	}
	return &Source{client: client, overlay: checkins, normalizer: normalizer}
}

func (s *Source) Kind() domain.SourceKind { return domain.SourceCSV }
func (s *Source) SupportsPolling() bool   { return true }
func (s *Source) SupportsPush() bool      { return false }
func (s *Source) Close() error            { return nil }

func (s *Source) LoadData(ctx context.Context) ([]entities.Attendee, error) {
	payload, err := s.client.Rows(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]normalize.RawRow, 0, len(payload))
	for i, raw := range payload {
		row, err := normalize.RowFromJSON(raw)
		if err != nil {
			log.Printf("⚠️ Ligne CSV %d ignorée: %v", i+1, err)
			row = normalize.RawRow{}
		}
		rows = append(rows, row)
	}
	attendees, dropped := s.normalizer.NormalizeAll(rows, domain.SourceCSV)
	s.Record(dropped)

	checkins, err := s.overlay.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkins: %w", err)
	}
	return s.stamps.Apply(attendees, checkins), nil
}

func (s *Source) UpdateAttendee(ctx context.Context, id string, u entities.StatusUpdate) error {
	return s.overlay.Put(ctx, id, u)
}
