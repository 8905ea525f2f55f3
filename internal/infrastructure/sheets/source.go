package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/infrastructure/overlay"
	"checkin/internal/ports/output"
)

var (
	_ output.Source       = (*Source)(nil)
	_ output.DropReporter = (*Source)(nil)
	_ output.FileImporter = (*Source)(nil)
)

// Source reads a published spreadsheet. Acquisition strategies are tried in
// order; the first one yielding at least one row wins.
type Source struct {
	strategies []Strategy
	manual     *Manual
	overlay    output.CheckinOverlay
	normalizer *normalize.Normalizer
	normalize.Tally
	stamps overlay.Stamps
}

// NewSource builds the direct → relay → manual chain from settings. checkins
// may be nil, in which case the sheet is read-only.
func NewSource(settings domain.SheetSettings, checkins output.CheckinOverlay, normalizer *normalize.Normalizer, client *http.Client) (*Source, error) {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	manual := &Manual{Path: settings.LocalFile}

	var strategies []Strategy
	if strings.TrimSpace(settings.URL) != "" {
		export, err := ExportURL(settings.URL)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, Direct{URL: export, Client: client})
		if relay := strings.TrimSpace(settings.RelayURL); relay != "" {
			strategies = append(strategies, Relay{RelayURL: relay, Target: export, Client: client})
		}
	} else if strings.TrimSpace(settings.LocalFile) == "" {
		return nil, fmt.Errorf("sheets: SHEET_URL ou SHEET_LOCAL_FILE est requis: %w", domain.ErrSourceMisconfigured)
	}
	strategies = append(strategies, manual)

	return &Source{
		strategies: strategies,
		manual:     manual,
		overlay:    checkins,
		normalizer: normalizer,
	}, nil
}

func (s *Source) Kind() domain.SourceKind { return domain.SourceSpreadsheet }
func (s *Source) SupportsPolling() bool   { return true }
func (s *Source) SupportsPush() bool      { return false }
func (s *Source) Close() error            { return nil }

// Import hands an uploaded export to the manual strategy.
func (s *Source) Import(data []byte) {
	s.manual.Import(data)
}

func (s *Source) LoadData(ctx context.Context) ([]entities.Attendee, error) {
	rows, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	raw := make([]normalize.RawRow, len(rows))
	for i, cells := range rows {
		raw[i] = normalize.RowFromCells(cells)
	}
	attendees, dropped := s.normalizer.NormalizeAll(raw, domain.SourceSpreadsheet)
	s.Record(dropped)
	if s.overlay == nil {
		return attendees, nil
	}
	checkins, err := s.overlay.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkins: %w", err)
	}
	return s.stamps.Apply(attendees, checkins), nil
}

func (s *Source) acquire(ctx context.Context) ([][]string, error) {
	var errs []error
	for _, st := range s.strategies {
		data, err := st.Fetch(ctx)
		if err == nil {
			var rows [][]string
			rows, err = ParseTable(data)
			if err == nil && len(rows) > 0 {
				return rows, nil
			}
			if err == nil {
				err = errors.New("aucune ligne")
			}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%v: %w", ctx.Err(), domain.ErrSourceUnavailable)
		}
		log.Printf("⚠️ Feuille: stratégie %s en échec: %v", st.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %v", st.Name(), err))
	}
	return nil, fmt.Errorf("%w: %w (%v)", domain.ErrSourceUnavailable, domain.ErrManualSourceRequired, errors.Join(errs...))
}

func (s *Source) UpdateAttendee(ctx context.Context, id string, u entities.StatusUpdate) error {
	if s.overlay == nil {
		return fmt.Errorf("aucun stockage de check-in configuré: %w", domain.ErrUpdateRejected)
	}
	return s.overlay.Put(ctx, id, u)
}
