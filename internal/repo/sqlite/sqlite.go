// Package sqlite opens the record store and translates driver failures into
// domain errors every repository shares.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

// Config holds configuration for the SQLite record store.
type Config struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/postboard.db"`
	// MaxOpenConns bounds the connection pool
	MaxOpenConns int `env:"MAX_OPEN_CONNS" default:"4"`
	// OpTimeout bounds every single store operation, including waiting for a pooled connection
	OpTimeout time.Duration `env:"OP_TIMEOUT" default:"3s"`
	// BusyTimeout is how long SQLite waits on a locked database
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" default:"5s"`
}

// DB is the shared handle repositories run their statements on.
type DB struct {
	db        *sql.DB
	log       logging.Logger
	opTimeout time.Duration
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

// Open connects to the database described by cfg and migrates its schema.
// Returns an error if database connection or initialization fails.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	log := logging.GetLogger("repo.sqlite").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 3 * time.Second
	}

	store := &DB{
		db:        db,
		log:       log,
		opTimeout: cfg.OpTimeout,
		writeLock: new(sync.Mutex),
	}

	if err := store.Ping(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	log.DebugContext(ctx, "record store opened")

	return store, nil
}

func dsn(cfg Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	query := url.Values{}
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", "busy_timeout("+strconv.FormatInt(busy.Milliseconds(), 10)+")")
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_txlock", "immediate")

	return "file:" + cfg.DatabasePath + "?" + query.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT    UNIQUE NOT NULL,
			email         TEXT    UNIQUE NOT NULL,
			password_hash BLOB    NOT NULL,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS posts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users (id),
			title      TEXT    UNIQUE NOT NULL,
			text       TEXT    NOT NULL,
			category   TEXT    NOT NULL DEFAULT 'Feed' CHECK (category IN ('Feed', 'Story')),
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS posts_user_id ON posts (user_id);
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Op returns a context bounded by the per-operation timeout.
func (s *DB) Op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Conn returns the underlying pool.
func (s *DB) Conn() *sql.DB {
	return s.db
}

// Write runs fn while holding the write lock and under the operation timeout.
func (s *DB) Write(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	ctx, cancel := s.Op(ctx)
	defer cancel()

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	return Classify(fn(ctx, s.db))
}

// Tx runs fn inside a transaction while holding the write lock. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *DB) Tx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	return s.Write(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}

		if err := fn(ctx, tx); err != nil {
			_ = tx.Rollback()

			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// Ping checks that the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	ctx, cancel := s.Op(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return errors.Join(domain.ErrStoreUnavailable, fmt.Errorf("ping db: %w", err))
	}

	return nil
}

// Close implements io.Closer by closing the database connection.
func (s *DB) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

//nolint:gochecknoglobals
var constraintCodes = map[int]domain.ConstraintKind{
	sqlite3.SQLITE_CONSTRAINT_UNIQUE:     domain.ConstraintUnique,
	sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: domain.ConstraintPrimaryKey,
	sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY: domain.ConstraintForeignKey,
	sqlite3.SQLITE_CONSTRAINT_NOTNULL:    domain.ConstraintNotNull,
	sqlite3.SQLITE_CONSTRAINT_CHECK:      domain.ConstraintCheck,
}

// Classify translates driver errors into domain errors. Constraint violations
// become *domain.ConstraintError; timeouts, busy databases and broken
// connections join domain.ErrStoreUnavailable. Anything else passes through.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var liteErr *sqlitedrv.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()

		if kind, ok := constraintCodes[code]; ok {
			return &domain.ConstraintError{Kind: kind, Detail: constraintDetail(liteErr), Err: err}
		}

		switch code & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return &domain.ConstraintError{Kind: domain.ConstraintNone, Detail: constraintDetail(liteErr), Err: err}
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR:
			return errors.Join(domain.ErrStoreUnavailable, err)
		}

		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) {
		return errors.Join(domain.ErrStoreUnavailable, err)
	}

	return err
}

// constraintDetail extracts SQLite's own message, e.g.
// "UNIQUE constraint failed: users.email".
func constraintDetail(err *sqlitedrv.Error) string {
	msg := err.Error()

	// drop the trailing result code, " (2067)"
	if i := strings.LastIndex(msg, " ("); i > 0 {
		msg = msg[:i]
	}

	// drop the generic result string in front of the detail
	if _, detail, ok := strings.Cut(msg, ": "); ok {
		msg = detail
	}

	return msg
}
