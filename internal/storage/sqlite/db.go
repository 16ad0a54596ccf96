package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	dbsqlite "github.com/agalitsyn/sqlite"

	"github.com/agalitsyn/taskboard/internal/storage/sqlite/migrations"
)

// Open connects to the database file at path and applies pending migrations.
func Open(path string) (*sql.DB, error) {
	db, err := dbsqlite.Connect(dsn(path))
	if err != nil {
		return nil, err
	}

	if err := dbsqlite.MigrateUp(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	// Fixed-width-ish text timestamps keep ORDER BY and range filters on
	// DATETIME columns consistent with time ordering.
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
