package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// notifyTriggerSQL attaches the attendees_notify function to table so that
// changes are announced on channel.
func notifyTriggerSQL(table, channel string) []string {
	ident := tableIdent(table)
	return []string{
		`DROP TRIGGER IF EXISTS attendees_notify_trigger ON ` + ident,
		`CREATE TRIGGER attendees_notify_trigger
	BEFORE INSERT OR UPDATE OR DELETE ON ` + ident + `
	FOR EACH ROW EXECUTE FUNCTION attendees_notify(` + quoteLiteral(channel) + `)`,
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ensureNotifyTrigger installs the change-feed trigger on a table that the
// migrations do not manage. It needs the attendees_notify function from the
// migrations.
func ensureNotifyTrigger(ctx context.Context, pool *pgxpool.Pool, table, channel string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return classify("notify trigger", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range notifyTriggerSQL(table, channel) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classify(fmt.Sprintf("notify trigger on %s", table), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("notify trigger", err)
	}
	log.Printf("✅ Déclencheur de notification installé sur %s (canal %q)", table, channel)
	return nil
}
