// Package sqlx implements leaderboard storage on a relational database.
// Intended for deployments that outgrow the flat file; the ranking policy
// is still applied in Go so the order matches the other adapters exactly.
package sqlx

import (
	"context"
	"fmt"
	"sort"
	"time"

	sqlxlib "github.com/jmoiron/sqlx"

	"scorekeeper/core"
)

// Driver identifies the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		DSN:             "",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements board.Storage on top of a SQL database.
type Store struct {
	db     *sqlxlib.DB
	driver Driver
}

// New opens a database connection with the provided configuration.
func New(cfg Config) (*Store, error) {
	db, err := sqlxlib.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return &Store{db: db, driver: cfg.Driver}, nil
}

// NewWithDB wraps an existing connection (useful for testing).
func NewWithDB(db *sqlxlib.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the entries table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS leaderboard_entries (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		score BIGINT NOT NULL,
		saved_at TEXT NOT NULL
	)`
	if s.driver == DriverMySQL {
		ddl = `CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			score BIGINT NOT NULL,
			saved_at VARCHAR(64) NOT NULL
		)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate leaderboard_entries: %w", err)
	}
	return nil
}

type entryRow struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Score   int    `db:"score"`
	SavedAt string `db:"saved_at"`
}

func (r entryRow) entry() core.Entry {
	return core.Entry{Name: r.Name, Score: r.Score, SavedAt: r.SavedAt}
}

func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, score, saved_at FROM leaderboard_entries`); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	entries := make([]core.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return core.Rank(entries), nil
}

// Append inserts the entry and prunes rows ranked out of the top
// core.MaxEntries, all in one transaction.
func (s *Store) Append(ctx context.Context, e core.Entry) ([]core.Entry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := tx.Rebind(`INSERT INTO leaderboard_entries (name, score, saved_at) VALUES (?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, e.Name, e.Score, e.SavedAt); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	var rows []entryRow
	if err := tx.SelectContext(ctx, &rows, `SELECT id, name, score, saved_at FROM leaderboard_entries`); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return core.Less(rows[i].entry(), rows[j].entry()) })

	if len(rows) > core.MaxEntries {
		evicted := make([]int64, 0, len(rows)-core.MaxEntries)
		for _, r := range rows[core.MaxEntries:] {
			evicted = append(evicted, r.ID)
		}
		query, args, err := sqlxlib.In(`DELETE FROM leaderboard_entries WHERE id IN (?)`, evicted)
		if err != nil {
			return nil, fmt.Errorf("build prune query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("prune entries: %w", err)
		}
		rows = rows[:core.MaxEntries]
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	entries := make([]core.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}
