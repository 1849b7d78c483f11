package reminder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/timemath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps reminders and settings in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps whole-set replacement serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		name              TEXT    PRIMARY KEY,
		enabled           INTEGER NOT NULL DEFAULT 1,
		frequency         TEXT    NOT NULL,
		relative_event    TEXT    NOT NULL,
		minutes           TEXT    NOT NULL DEFAULT '',
		relative_position TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

func createTables(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns every stored reminder.
func (s *SQLiteStore) Get() (Set, error) {
	rows, err := s.db.Query(`
		SELECT name, enabled, frequency, relative_event, minutes, relative_position
		FROM reminders
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	set := make(Set)
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		set[r.Name] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return set, nil
}

func scanReminder(rows *sql.Rows) (Reminder, error) {
	var (
		r        Reminder
		enabled  int
		freq     string
		position string
	)
	if err := rows.Scan(&r.Name, &enabled, &freq, &r.RelativeEvent, &r.Minutes, &position); err != nil {
		return Reminder{}, fmt.Errorf("failed to scan reminder: %w", err)
	}
	r.Enabled = enabled != 0
	r.Frequency = Frequency(freq)
	r.RelativePosition = timemath.Position(position)
	return r, nil
}

// Set replaces the stored reminders with set in one transaction.
func (s *SQLiteStore) Set(set Set) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM reminders`); err != nil {
		return fmt.Errorf("failed to clear reminders: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO reminders (name, enabled, frequency, relative_event, minutes, relative_position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range set.Names() {
		r := set[name]
		enabled := 0
		if r.Enabled {
			enabled = 1
		}
		if _, err = stmt.Exec(name, enabled, string(r.Frequency), r.RelativeEvent, r.Minutes, string(r.RelativePosition)); err != nil {
			return fmt.Errorf("failed to insert reminder %q: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reminders: %w", err)
	}
	return nil
}

const (
	keyGeolocUsage = "geoloc-usage"
	keyLatitude    = "latitude"
	keyLongitude   = "longitude"
)

// Settings returns the stored settings.
func (s *SQLiteStore) Settings() (Settings, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	var st Settings
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Settings{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch k {
		case keyGeolocUsage:
			st.GeolocUsage = geo.Policy(v)
		case keyLatitude:
			st.Latitude = v
		case keyLongitude:
			st.Longitude = v
		}
	}
	return st, rows.Err()
}

// SaveSettings upserts every setting.
func (s *SQLiteStore) SaveSettings(st Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for k, v := range map[string]string{
		keyGeolocUsage: string(st.GeolocUsage),
		keyLatitude:    st.Latitude,
		keyLongitude:   st.Longitude,
	} {
		if _, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
