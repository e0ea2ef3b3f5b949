package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is used when no path is configured.
const DefaultDBPath = "~/.local/share/jucket/dislikes.db"

var (
	// ErrStore wraps every failure of the underlying database.
	ErrStore = errors.New("dislike store failure")
	// ErrInvalidEntity is returned for records without a URI or with an unknown kind.
	ErrInvalidEntity = errors.New("invalid dislike entity")
)

// Kind is the type of a disliked entity.
type Kind string

// KindTrack is the only kind the player marks today.
const KindTrack Kind = "TRACK"

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindTrack
}

// CasePolicy selects how name filters compare.
type CasePolicy int

const (
	CaseInsensitive CasePolicy = iota
	CaseSensitive
)

func (p CasePolicy) String() string {
	if p == CaseSensitive {
		return "case-sensitive"
	}
	return "case-insensitive"
}

// Track identifies the playable item being marked.
type Track struct {
	URI  string
	Name string
}

// Entity is a stored dislike record.
type Entity struct {
	ID        int64     `json:"-"`
	Kind      Kind      `json:"type"`
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DatabaseStats contains database statistics
type DatabaseStats struct {
	DislikeCount  int64
	KindCounts    map[Kind]int64
	SchemaVersion int
	DatabaseSize  int64
	LastDislikeAt *time.Time
}

// DatabaseManager handles all database operations
type DatabaseManager struct {
	DB *sql.DB

	logger     *zap.Logger
	casePolicy CasePolicy
	now        func() time.Time
}

// Option configures a DatabaseManager.
type Option func(*DatabaseManager)

// WithLogger sets the logger used for migrations and store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(dm *DatabaseManager) {
		if logger != nil {
			dm.logger = logger
		}
	}
}

// WithCasePolicy sets the name filter comparison used by Find and Count.
func WithCasePolicy(p CasePolicy) Option {
	return func(dm *DatabaseManager) {
		dm.casePolicy = p
	}
}

// WithNow overrides the time source for record timestamps.
func WithNow(now func() time.Time) Option {
	return func(dm *DatabaseManager) {
		if now != nil {
			dm.now = now
		}
	}
}

// NewDatabaseManager creates a new database manager instance
func NewDatabaseManager(dbPath string, opts ...Option) (*DatabaseManager, error) {
	dm := &DatabaseManager{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(dm)
	}

	// Expand home directory
	if strings.HasPrefix(dbPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[2:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// The player, auto-skip timers and the MCP server may share one file
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dm.DB = db

	if err := InitSchema(db, dm.logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return dm, nil
}

// Close closes the database connection
func (dm *DatabaseManager) Close() error {
	return dm.DB.Close()
}

// GetStats returns database statistics
func (dm *DatabaseManager) GetStats() (*DatabaseStats, error) {
	stats := &DatabaseStats{KindCounts: make(map[Kind]int64)}

	rows, err := dm.DB.Query("SELECT kind, COUNT(*) FROM dislikes GROUP BY kind")
	if err != nil {
		return nil, storeError("stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind Kind
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, storeError("stats", err)
		}
		stats.KindCounts[kind] = count
		stats.DislikeCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("stats", err)
	}

	var last sql.NullInt64
	if err := dm.DB.QueryRow("SELECT MAX(created_at) FROM dislikes").Scan(&last); err != nil {
		return nil, storeError("stats", err)
	}
	if last.Valid {
		t := time.Unix(last.Int64, 0)
		stats.LastDislikeAt = &t
	}

	if stats.SchemaVersion, err = GetSchemaVersion(dm.DB); err != nil {
		return nil, storeError("stats", err)
	}

	var pageCount, pageSize int64
	if err := dm.DB.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		dm.logger.Warn("Failed to get page count", zap.Error(err))
	}
	if err := dm.DB.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		dm.logger.Warn("Failed to get page size", zap.Error(err))
	}
	stats.DatabaseSize = pageCount * pageSize

	return stats, nil
}

// Vacuum optimizes the database by reclaiming unused space and defragmenting tables
func (dm *DatabaseManager) Vacuum() error {
	if _, err := dm.DB.Exec("VACUUM"); err != nil {
		return storeError("vacuum", err)
	}
	return nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
