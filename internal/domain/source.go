package domain

import (
	"fmt"
	"time"
)

// SourceKind identifies one of the pluggable roster backends.
type SourceKind string

const (
	SourceCSV         SourceKind = "csv"
	SourceSpreadsheet SourceKind = "spreadsheet"
	SourceDatabase    SourceKind = "database"
)

// DefaultPollInterval is used when a polling source has no interval configured.
const DefaultPollInterval = 30 * time.Second

// ParseSourceKind validates a kind coming from configuration or the API.
func ParseSourceKind(s string) (SourceKind, error) {
	switch k := SourceKind(s); k {
	case SourceCSV, SourceSpreadsheet, SourceDatabase:
		return k, nil
	default:
		return "", fmt.Errorf("type de source inconnu %q: %w", s, ErrSourceMisconfigured)
	}
}

// HasNaturalKey reports whether rows of this kind carry their own primary key.
func (k SourceKind) HasNaturalKey() bool {
	return k == SourceDatabase
}

type CSVSettings struct {
	DataURL     string `toml:"data_url" json:"dataUrl"`
	CheckinsURL string `toml:"checkins_url" json:"checkinsUrl"`
}

type SheetSettings struct {
	URL       string `toml:"url" json:"url"`
	RelayURL  string `toml:"relay_url" json:"relayUrl"`
	LocalFile string `toml:"local_file" json:"localFile"`
}

type DatabaseSettings struct {
	URL     string `toml:"url" json:"url"`
	Table   string `toml:"table" json:"table"`
	Channel string `toml:"channel" json:"channel"`
}

// SourceConfig is the settings object handed to the source manager. The manager
// only reads Kind and PollInterval; the rest belongs to the adapters.
type SourceConfig struct {
	Kind         SourceKind       `toml:"type" json:"type"`
	PollInterval time.Duration    `toml:"-" json:"-"`
	CSV          CSVSettings      `toml:"csv" json:"csv"`
	Sheet        SheetSettings    `toml:"spreadsheet" json:"spreadsheet"`
	Database     DatabaseSettings `toml:"database" json:"database"`
}

// Interval returns the configured poll interval or DefaultPollInterval.
func (c SourceConfig) Interval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}
