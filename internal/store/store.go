// Package store persists result records in SQLite tables that grow new
// columns as records with new fields arrive, and keeps a log of task runs.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memoryPath = ":memory:"

// dsnOptions apply to every connection. Transactions take the write lock at
// BEGIN; writers in other processes wait up to the busy timeout.
const dsnOptions = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_time_format=sqlite&_txlock=immediate"

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrInvalidTable    = errors.New("invalid table name")
	ErrUnsupportedURL  = errors.New("unsupported database url")
	ErrRunNotFound     = errors.New("run not found")
	ErrReservedField   = errors.New("reserved field")
	ErrDuplicateField  = errors.New("duplicate field")
	ErrIntegerOverflow = errors.New("integer overflows int64")
	reservedTableNames = map[string]bool{
		"task_runs":         true,
		"schema_migrations": true,
	}
)

// Store is a SQLite database holding result tables and the run log.
type Store struct {
	db   *sql.DB
	path string

	// serialises schema changes made by this process
	mu sync.Mutex
}

// ParsePath extracts the SQLite file path from a database URL. It accepts
// sqlite:///abs/path, sqlite://relative/path, a bare file path or :memory:.
func ParsePath(url string) (string, error) {
	switch {
	case url == "":
		return "", fmt.Errorf("%w: empty", ErrUnsupportedURL)
	case url == memoryPath:
		return memoryPath, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", fmt.Errorf("%w: %s has no path", ErrUnsupportedURL, url)
		}
		if path == "/"+memoryPath {
			return memoryPath, nil
		}
		return path, nil
	case strings.Contains(url, "://"):
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	return url, nil
}

// Open connects to the database named by url and applies pending migrations.
func Open(url string) (*Store, error) {
	path, err := ParsePath(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?"+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if path == memoryPath {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("database opened", "path", path)
	return s, nil
}

// Path returns the SQLite file path, or :memory:.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// MigrateUp runs all pending migrations up to the latest version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the shared database handle.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (l *migrateLogger) Verbose() bool {
	return false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CheckTableName reports whether name may be used for a result table.
func CheckTableName(name string) error {
	return checkTableName(name)
}

func checkTableName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTable)
	}
	if reservedTableNames[name] || strings.HasPrefix(name, "sqlite_") {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidTable, name)
	}
	return nil
}
