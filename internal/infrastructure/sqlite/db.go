// Package sqlite stores recorded episodes in a local SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/tokenwatt/internal/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB owns the connection pool for one ledger file.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path, applies pending
// migrations and returns the handle. When migrations are pending on an
// existing file a copy is written to path+".bak" first.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	dsn := "file:" + filepath.ToSlash(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(existed); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Connection returns the underlying pool.
func (d *DB) Connection() *sql.DB {
	return d.conn
}

// Episodes returns the episode repository.
func (d *DB) Episodes() *EpisodeRepository {
	return &EpisodeRepository{db: d.conn}
}

type migration struct {
	version int
	name    string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}

	var out []migration
	for _, e := range entries {
		var version int
		if _, err := fmt.Sscanf(e.Name(), "%04d_", &version); err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix", e.Name())
		}
		body, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: version, name: strings.TrimSuffix(e.Name(), ".sql"), sql: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// SchemaVersion returns the applied migration version.
func (d *DB) SchemaVersion() (int, error) {
	var v int
	err := d.conn.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

func (d *DB) migrate(existed bool) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	current, err := d.SchemaVersion()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	var pending []migration
	for _, m := range migrations {
		if m.version > current {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if existed && current > 0 {
		if err := d.backup(); err != nil {
			return err
		}
	}

	for _, m := range pending {
		tx, err := d.conn.Begin()
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			return errors.Join(fmt.Errorf("migration %s: %w", m.name, err), tx.Rollback())
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return errors.Join(fmt.Errorf("migration %s: %w", m.name, err), tx.Rollback())
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		log.Info(log.CatLedger, "Applied migration", "name", m.name, "version", m.version)
	}
	return nil
}

func (d *DB) backup() error {
	bak := d.path + ".bak"
	if err := os.Remove(bak); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing old backup: %w", err)
	}
	if _, err := d.conn.Exec("VACUUM INTO ?", bak); err != nil {
		return fmt.Errorf("writing pre-migration backup: %w", err)
	}
	log.Info(log.CatLedger, "Wrote pre-migration backup", "path", bak)
	return nil
}
