package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"checkin/internal/domain"
	"checkin/pkg/tz"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"
)

type Config struct {
	HTTPAddr       string
	Mode           string
	Locale         string
	Source         domain.SourceConfig
	MigrationsPath string
	// Migrate is false when DATABASE_MIGRATE=false: the schema is managed elsewhere.
	Migrate bool

	Overlay  string
	RedisURL string
	EventKey string

	DiscordToken     string
	DiscordChannelID string

	Timezone string
	Location *time.Location
}

// sourcesFile is the layout of SOURCES_FILE. Environment variables win over
// the file when both are set.
type sourcesFile struct {
	Type         string                  `toml:"type"`
	PollInterval string                  `toml:"poll_interval"`
	CSV          domain.CSVSettings      `toml:"csv"`
	Spreadsheet  domain.SheetSettings    `toml:"spreadsheet"`
	Database     domain.DatabaseSettings `toml:"database"`
}

// Load charge la configuration depuis les variables d'environnement et la valide.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env est optionnel lorsque les variables sont fournies par l'environnement (Docker, CI, etc.).
	}

	var file sourcesFile
	if path := strings.TrimSpace(os.Getenv("SOURCES_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: SOURCES_FILE illisible: %w", err)
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: SOURCES_FILE invalide: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		Mode:           envOr("MODE", ModeRelease),
		Locale:         envOr("LOCALE", "fr"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		Migrate:        !strings.EqualFold(envOr("DATABASE_MIGRATE", "true"), "false"),

		Overlay:  envOr("OVERLAY", "http"),
		RedisURL: os.Getenv("REDIS_URL"),
		EventKey: envOr("EVENT_KEY", "default"),

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		Timezone: envOr("TIMEZONE", tz.DefaultName),
	}

	cfg.Source = domain.SourceConfig{
		Kind: domain.SourceKind(strings.ToLower(envOr("SOURCE_TYPE", file.Type))),
		CSV: domain.CSVSettings{
			DataURL:     envOr("CSV_DATA_URL", file.CSV.DataURL),
			CheckinsURL: envOr("CSV_CHECKINS_URL", file.CSV.CheckinsURL),
		},
		Sheet: domain.SheetSettings{
			URL:       envOr("SHEET_URL", file.Spreadsheet.URL),
			RelayURL:  envOr("SHEET_RELAY_URL", file.Spreadsheet.RelayURL),
			LocalFile: envOr("SHEET_LOCAL_FILE", file.Spreadsheet.LocalFile),
		},
		Database: domain.DatabaseSettings{
			URL:     envOr("DATABASE_URL", file.Database.URL),
			Table:   envOr("DATABASE_TABLE", file.Database.Table),
			Channel: envOr("DATABASE_CHANNEL", file.Database.Channel),
		},
	}

	if raw := envOr("POLL_INTERVAL", file.PollInterval); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: POLL_INTERVAL invalide (%q), exemple: 30s", raw)
		}
		cfg.Source.PollInterval = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// validate applique toutes les règles métier sur la configuration chargée.
// Les réglages propres à chaque source sont vérifiés à la construction de
// l'adaptateur, pour que l'erreur remonte aussi lors d'un changement de source.
func (c *Config) validate() error {
	if c.Source.Kind == "" {
		return fmt.Errorf("config: SOURCE_TYPE est requis (csv, spreadsheet ou database)")
	}
	if _, err := domain.ParseSourceKind(string(c.Source.Kind)); err != nil {
		return fmt.Errorf("config: SOURCE_TYPE: %w", err)
	}

	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("config: MODE doit valoir %q ou %q", ModeDev, ModeRelease)
	}

	switch c.Overlay {
	case "http":
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("config: REDIS_URL est requis lorsque OVERLAY=redis")
		}
	default:
		return fmt.Errorf("config: OVERLAY doit valoir \"http\" ou \"redis\"")
	}

	if dsn := c.Source.Database.URL; dsn != "" {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return fmt.Errorf("config: DATABASE_URL invalide (%q): %w", dsn, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("config: DATABASE_URL invalide (%q): scheme ou host manquant", dsn)
		}
	}

	if c.DiscordToken != "" {
		if strings.TrimSpace(c.DiscordChannelID) == "" {
			return fmt.Errorf("config: DISCORD_CHANNEL_ID est requis lorsque DISCORD_TOKEN est défini")
		}
		for _, r := range c.DiscordChannelID {
			if r < '0' || r > '9' {
				return fmt.Errorf("config: DISCORD_CHANNEL_ID doit être un ID de salon Discord (chiffres uniquement)")
			}
		}
	}

	loc, err := tz.Load(c.Timezone)
	if err != nil {
		return fmt.Errorf("config: TIMEZONE invalide: %w", err)
	}
	c.Location = loc

	return nil
}

// DiscordEnabled reports whether the stats notifier should run.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}
