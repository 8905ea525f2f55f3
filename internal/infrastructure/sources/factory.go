package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/infrastructure/csvstore"
	"checkin/internal/infrastructure/database"
	"checkin/internal/infrastructure/overlay"
	"checkin/internal/infrastructure/sheets"
	"checkin/internal/ports/output"
)

var _ output.SourceFactory = (*Factory)(nil)

// Overlay backends for the check-in state of csv and spreadsheet sources.
const (
	OverlayHTTP  = "http"
	OverlayRedis = "redis"
)

// Options are the process-wide settings shared by every source built.
type Options struct {
	Overlay    string
	RedisURL   string
	EventKey   string
	HTTPClient *http.Client
	// Schema is applied each time a database source is opened, including
	// after a switch at runtime.
	Schema database.Schema
}

// Factory builds adapters from a SourceConfig. All sources share one
// normalizer.
type Factory struct {
	normalizer *normalize.Normalizer
	opts       Options

	mu    sync.Mutex
	redis *overlay.Redis
}

func NewFactory(normalizer *normalize.Normalizer, opts Options) *Factory {
	if opts.Overlay == "" {
		opts.Overlay = OverlayHTTP
	}
	return &Factory{normalizer: normalizer, opts: opts}
}

func (f *Factory) Build(ctx context.Context, cfg domain.SourceConfig) (output.Source, error) {
	switch cfg.Kind {
	case domain.SourceCSV:
		client, err := csvstore.NewClient(cfg.CSV.DataURL, cfg.CSV.CheckinsURL, f.opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		var checkins output.CheckinOverlay
		if f.opts.Overlay == OverlayRedis {
			if checkins, err = f.redisOverlay(ctx); err != nil {
				return nil, err
			}
		}
		return csvstore.NewSource(client, checkins, f.normalizer), nil

	case domain.SourceSpreadsheet:
		checkins, err := f.sheetOverlay(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sheets.NewSource(cfg.Sheet, checkins, f.normalizer, f.opts.HTTPClient)

	case domain.SourceDatabase:
		return database.Open(ctx, cfg.Database, f.normalizer, f.opts.Schema)

	default:
		return nil, fmt.Errorf("sources: type %q non pris en charge: %w", cfg.Kind, domain.ErrSourceMisconfigured)
	}
}

// sheetOverlay returns nil when nothing can hold check-ins: the sheet is
// then read-only.
func (f *Factory) sheetOverlay(ctx context.Context, cfg domain.SourceConfig) (output.CheckinOverlay, error) {
	if f.opts.Overlay == OverlayRedis {
		return f.redisOverlay(ctx)
	}
	if strings.TrimSpace(cfg.CSV.CheckinsURL) == "" {
		return nil, nil
	}
	return csvstore.NewClient(cfg.CSV.CheckinsURL, "", f.opts.HTTPClient)
}

func (f *Factory) redisOverlay(ctx context.Context) (*overlay.Redis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redis != nil {
		return f.redis, nil
	}
	r, err := overlay.NewRedis(ctx, f.opts.RedisURL, f.opts.EventKey)
	if err != nil {
		return nil, err
	}
	f.redis = r
	return r, nil
}

// Close releases the shared overlay connection.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redis == nil {
		return nil
	}
	err := f.redis.Close()
	f.redis = nil
	return err
}
