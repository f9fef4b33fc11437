package ygggo_formsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresProvider opens postgres:// and postgresql:// destinations through the
// pgx database/sql driver. Queries are rebound from '?' to $n before preparing.
type PostgresProvider struct{}

func (PostgresProvider) Name() string { return "postgresql" }

func (p PostgresProvider) Open(ctx context.Context, rawURL string, opts OpenOptions) (Connector, error) {
	dsn := strings.TrimSpace(rawURL)
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return nil, fmt.Errorf("invalid postgresql destination %q: %w", redactURL(rawURL), err)
	}
	return openSQL(ctx, p.Name(), "pgx", dsn, opts)
}
