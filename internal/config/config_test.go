package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"checkin/internal/domain"
)

var allVars = []string{
	"HTTP_ADDR", "MODE", "LOCALE", "SOURCE_TYPE", "POLL_INTERVAL", "CSV_DATA_URL",
	"CSV_CHECKINS_URL", "SHEET_URL", "SHEET_RELAY_URL", "SHEET_LOCAL_FILE",
	"DATABASE_URL", "DATABASE_TABLE", "DATABASE_CHANNEL", "MIGRATIONS_PATH",
	"OVERLAY", "REDIS_URL", "EVENT_KEY", "DISCORD_TOKEN", "DISCORD_CHANNEL_ID",
	"TIMEZONE", "SOURCES_FILE", "DATABASE_MIGRATE",
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, kv[k])
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"SOURCE_TYPE":  "CSV",
		"CSV_DATA_URL": "https://example.com/api.php",
	})
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Mode != ModeRelease || cfg.Locale != "fr" || cfg.Overlay != "http" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Source.Kind != domain.SourceCSV || cfg.Source.Interval() != domain.DefaultPollInterval {
		t.Errorf("unexpected source %+v", cfg.Source)
	}
	if cfg.Location == nil || cfg.Location.String() != "Europe/Paris" {
		t.Errorf("unexpected location %v", cfg.Location)
	}
	if cfg.DiscordEnabled() {
		t.Error("discord should be disabled without a token")
	}
	if !cfg.Migrate {
		t.Error("migrations should run by default")
	}
}

func TestLoad_MigrateDisabled(t *testing.T) {
	setEnv(t, map[string]string{
		"SOURCE_TYPE":      "database",
		"DATABASE_URL":     "postgres://db/checkin",
		"DATABASE_MIGRATE": "FALSE",
	})
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Migrate {
		t.Error("DATABASE_MIGRATE=false should disable migrations")
	}
}

func TestLoad_SourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.toml")
	content := `
type = "spreadsheet"
poll_interval = "45s"

[spreadsheet]
url = "https://docs.google.com/spreadsheets/d/abc/edit"
relay_url = "https://relay.example.com/fetch"

[database]
url = "postgres://localhost:5432/checkin"
table = "guests"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	setEnv(t, map[string]string{
		"SOURCES_FILE":   path,
		"DATABASE_TABLE": "attendees_2024",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Kind != domain.SourceSpreadsheet || cfg.Source.PollInterval != 45*time.Second {
		t.Errorf("file settings not applied: %+v", cfg.Source)
	}
	if cfg.Source.Sheet.RelayURL != "https://relay.example.com/fetch" {
		t.Errorf("relay url: %q", cfg.Source.Sheet.RelayURL)
	}
	if cfg.Source.Database.Table != "attendees_2024" {
		t.Errorf("environment should win over the file, got %q", cfg.Source.Database.Table)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]struct {
		env  map[string]string
		want string
	}{
		"missing type":   {env: map[string]string{}, want: "SOURCE_TYPE"},
		"unknown type":   {env: map[string]string{"SOURCE_TYPE": "ftp"}, want: "SOURCE_TYPE"},
		"bad interval":   {env: map[string]string{"SOURCE_TYPE": "csv", "POLL_INTERVAL": "soon"}, want: "POLL_INTERVAL"},
		"bad mode":       {env: map[string]string{"SOURCE_TYPE": "csv", "MODE": "prod"}, want: "MODE"},
		"redis, no url":  {env: map[string]string{"SOURCE_TYPE": "csv", "OVERLAY": "redis"}, want: "REDIS_URL"},
		"bad dsn":        {env: map[string]string{"SOURCE_TYPE": "database", "DATABASE_URL": "localhost"}, want: "DATABASE_URL"},
		"token, no chan": {env: map[string]string{"SOURCE_TYPE": "csv", "DISCORD_TOKEN": "x"}, want: "DISCORD_CHANNEL_ID"},
		"bad channel":    {env: map[string]string{"SOURCE_TYPE": "csv", "DISCORD_TOKEN": "x", "DISCORD_CHANNEL_ID": "#general"}, want: "DISCORD_CHANNEL_ID"},
		"bad zone":       {env: map[string]string{"SOURCE_TYPE": "csv", "TIMEZONE": "Nowhere/City"}, want: "TIMEZONE"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			setEnv(t, tc.env)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
