package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
	"checkin/internal/domain/entities"
	"checkin/internal/ports/output"
)

var (
	_ output.PushSource   = (*Source)(nil)
	_ output.DropReporter = (*Source)(nil)
)

const (
	DefaultTable   = "attendees"
	DefaultChannel = "attendees_changes"

	maxListenBackoff = 30 * time.Second
)

// Source reads the roster from a Postgres table and follows its change feed
// through LISTEN on the channel fed by the attendees trigger.
type Source struct {
	pool       *pgxpool.Pool
	table      string
	channel    string
	normalizer *normalize.Normalizer
	normalize.Tally

	changes chan output.PushDelta
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// Schema controls how Open prepares the database.
type Schema struct {
	// Migrate applies the embedded migrations, or those in MigrationsPath.
	Migrate        bool
	MigrationsPath string
}

// Open connects to settings.URL, prepares the schema and starts the listener.
// A table or channel other than the defaults gets its own notify trigger.
func Open(ctx context.Context, settings domain.DatabaseSettings, normalizer *normalize.Normalizer, schema Schema) (*Source, error) {
	if strings.TrimSpace(settings.URL) == "" {
		return nil, fmt.Errorf("database: DATABASE_URL est requis: %w", domain.ErrSourceMisconfigured)
	}
	pool, err := NewPool(ctx, settings.URL)
	if err != nil {
		return nil, err
	}
	if schema.Migrate {
		if err := RunMigrations(settings.URL, schema.MigrationsPath); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database: %v: %w", err, domain.ErrSourceUnavailable)
		}
	}
	table, channel := resolveNames(settings)
	if table != DefaultTable || channel != DefaultChannel {
		if err := ensureNotifyTrigger(ctx, pool, table, channel); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return NewSource(pool, settings, normalizer), nil
}

func resolveNames(settings domain.DatabaseSettings) (table, channel string) {
	table = strings.TrimSpace(settings.Table)
	if table == "" {
		table = DefaultTable
	}
	channel = strings.TrimSpace(settings.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return table, channel
}

// NewSource takes ownership of pool: Close stops the listener and closes it.
func NewSource(pool *pgxpool.Pool, settings domain.DatabaseSettings, normalizer *normalize.Normalizer) *Source {
	table, channel := resolveNames(settings)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		pool:       pool,
		table:      table,
		channel:    channel,
		normalizer: normalizer,
		changes:    make(chan output.PushDelta, 64),
		cancel:     cancel,
	}
	s.wg.Add(1)
	go s.listen(ctx)
	return s
}

func (s *Source) Kind() domain.SourceKind          { return domain.SourceDatabase }
func (s *Source) SupportsPolling() bool            { return false }
func (s *Source) SupportsPush() bool               { return true }
func (s *Source) Changes() <-chan output.PushDelta { return s.changes }

func (s *Source) tableIdent() string {
	return tableIdent(s.table)
}

func tableIdent(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

func (s *Source) LoadData(ctx context.Context) ([]entities.Attendee, error) {
	query := `SELECT id::text, table_number, group_name, attendee_name, ticket_type,
		email, additional_info, status, checked_in_at
		FROM ` + s.tableIdent() + ` ORDER BY attendee_name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, classify("load attendees", err)
	}
	defer rows.Close()

	var raw []normalize.RawRow
	for rows.Next() {
		var r attendeeRow
		if err := rows.Scan(r.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan attendee: %v: %w", err, domain.ErrSourceParse)
		}
		raw = append(raw, attendeeToRaw(r))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("load attendees", err)
	}
	attendees, dropped := s.normalizer.NormalizeAll(raw, domain.SourceDatabase)
	s.Record(dropped)
	return attendees, nil
}

func (s *Source) UpdateAttendee(ctx context.Context, id string, u entities.StatusUpdate) error {
	query := `UPDATE ` + s.tableIdent() + ` SET status = $1, checked_in_at = $2 WHERE id::text = $3`
	tag, err := s.pool.Exec(ctx, query, string(u.Status), timeToPgtypeTimestamptz(u.CheckedInAt), id)
	if err != nil {
		return fmt.Errorf("update attendee %s: %v: %w", id, err, domain.ErrUpdateRejected)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update attendee %s: %w: %w", id, domain.ErrUpdateRejected, domain.ErrAttendeeNotFound)
	}
	return nil
}

// Close stops the listener, closes the change channel and the pool.
func (s *Source) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.pool.Close()
	})
	return nil
}

func (s *Source) listen(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.changes)

	backoff := time.Second
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("⚠️ Écoute %q interrompue: %v (nouvelle tentative dans %s)", s.channel, err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxListenBackoff)
	}
}

func (s *Source) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		return err
	}
	log.Printf("✅ Écoute des changements sur %q", s.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		delta, err := decodeNotification(n.Payload)
		if err != nil {
			log.Printf("⚠️ Notification ignorée: %v", err)
			continue
		}
		if delta.EventType != output.EventUpdate {
			continue
		}
		select {
		case s.changes <- delta:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// classify maps driver errors onto the source error taxonomy.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", "42703", "42501", "42883":
			return fmt.Errorf("%s: %s: %w", op, pgErr.Message, domain.ErrSourceMisconfigured)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrSourceUnavailable)
}
