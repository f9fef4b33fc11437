package ygggo_formsql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

// sqlConnector is the database/sql backed Connector shared by every provider.
// Queries arrive with '?' markers and are rebound to the driver's bindvar style.
type sqlConnector struct {
	db     *sqlx.DB
	system string
}

// openSQL opens driverName/dsn, applies pool settings and verifies the connection.
func openSQL(ctx context.Context, system, driverName, dsn string, opts OpenOptions) (*sqlConnector, error) {
	var (
		db  *sql.DB
		err error
	)
	if opts.Telemetry {
		db, err = otelsql.Open(driverName, dsn,
			otelsql.WithAttributes(attribute.String("db.system", system)),
		)
	} else {
		db, err = sql.Open(driverName, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s destination: %w", system, err)
	}
	applyPool(db, opts.Pool)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s destination: %w", system, err)
	}
	return newSQLConnector(db, system, driverName), nil
}

func newSQLConnector(db *sql.DB, system, driverName string) *sqlConnector {
	return &sqlConnector{db: sqlx.NewDb(db, driverName), system: system}
}

func applyPool(db *sql.DB, pc PoolConfig) {
	if pc.MaxOpen > 0 {
		db.SetMaxOpenConns(pc.MaxOpen)
	}
	if pc.MaxIdle > 0 {
		db.SetMaxIdleConns(pc.MaxIdle)
	}
	if pc.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pc.ConnMaxLifetime)
	}
	if pc.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pc.ConnMaxIdleTime)
	}
}

// Acquire checks a single connection out of the pool. It must be closed.
func (c *sqlConnector) Acquire(ctx context.Context) (Session, error) {
	if c == nil || c.db == nil {
		return nil, sql.ErrConnDone
	}
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlSession{conn: conn, db: c.db}, nil
}

func (c *sqlConnector) System() string { return c.system }

func (c *sqlConnector) DB() *sql.DB { return c.db.DB }

func (c *sqlConnector) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *sqlConnector) Stats() sql.DBStats { return c.db.Stats() }

func (c *sqlConnector) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

type sqlSession struct {
	conn *sqlx.Conn
	db   *sqlx.DB
}

// Prepare rebinds query to the driver's placeholder style and prepares it on
// this session's connection.
func (s *sqlSession) Prepare(ctx context.Context, query string) (PreparedStatement, error) {
	if s == nil || s.conn == nil {
		return nil, sql.ErrConnDone
	}
	st, err := s.conn.PreparexContext(ctx, s.db.Rebind(query))
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Close returns the connection to the pool.
func (s *sqlSession) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
