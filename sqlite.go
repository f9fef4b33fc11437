package ygggo_formsql

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteConfig holds the pragmas applied to every SQLite destination.
type SQLiteConfig struct {
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	JournalMode string        `yaml:"journal_mode"` // WAL, DELETE, TRUNCATE, PERSIST, MEMORY, OFF
	Synchronous string        `yaml:"synchronous"`  // FULL, NORMAL, OFF
	CacheSize   int           `yaml:"cache_size"`   // pages
}

// DefaultSQLiteConfig returns a default SQLite configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
		CacheSize:   2000,
	}
}

// SQLiteProvider opens sqlite:// and file: destinations with modernc.org/sqlite.
//
//	sqlite:///var/lib/forms.db   absolute path
//	sqlite://forms.db            relative path
//	sqlite://:memory:            private in-memory database
//	file:forms.db?mode=rwc       passed to SQLite as a URI
type SQLiteProvider struct{}

func (SQLiteProvider) Name() string { return "sqlite" }

func (p SQLiteProvider) Open(ctx context.Context, rawURL string, opts OpenOptions) (Connector, error) {
	path, err := sqlitePath(rawURL)
	if err != nil {
		return nil, err
	}
	if isMemorySQLite(path) {
		// every connection to :memory: is a new database, so keep exactly one alive
		opts.Pool = PoolConfig{MaxOpen: 1, MaxIdle: 1}
	}
	return openSQL(ctx, p.Name(), "sqlite", buildSQLiteDSN(path, opts.SQLite), opts)
}

func sqlitePath(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "file:"):
		return s, nil
	case strings.HasPrefix(lower, "sqlite://"):
		path := s[len("sqlite://"):]
		if path == "" {
			return "", fmt.Errorf("invalid sqlite destination %q: path is required", rawURL)
		}
		return path, nil
	}
	return "", &UnsupportedDestinationError{URL: rawURL}
}

func isMemorySQLite(path string) bool {
	lower := strings.ToLower(path)
	return lower == ":memory:" ||
		strings.HasPrefix(lower, ":memory:?") ||
		strings.HasPrefix(lower, "file::memory:") ||
		strings.Contains(lower, "mode=memory")
}

// buildSQLiteDSN appends _pragma parameters to path in a fixed order.
func buildSQLiteDSN(path string, config SQLiteConfig) string {
	pragmas := make([]string, 0, 5)
	if config.BusyTimeout > 0 {
		pragmas = append(pragmas, "busy_timeout("+strconv.FormatInt(config.BusyTimeout.Milliseconds(), 10)+")")
	}
	if config.JournalMode != "" && !isMemorySQLite(path) {
		pragmas = append(pragmas, "journal_mode("+config.JournalMode+")")
	}
	if config.Synchronous != "" {
		pragmas = append(pragmas, "synchronous("+config.Synchronous+")")
	}
	if config.CacheSize > 0 {
		pragmas = append(pragmas, "cache_size("+strconv.Itoa(config.CacheSize)+")")
	}
	pragmas = append(pragmas, "foreign_keys(1)")

	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}
