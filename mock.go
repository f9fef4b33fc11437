package ygggo_formsql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// MockScheme is the URL prefix RegisterMock binds.
const MockScheme = "sqlmock://"

func init() {
	sqlx.BindDriver("sqlmock", sqlx.QUESTION)
}

// MockProvider serves every URL from a single go-sqlmock database. Queries are
// matched verbatim, so expectations are written against the '?' form produced
// by Compile.
type MockProvider struct {
	db *sql.DB
}

// NewMockProvider creates a provider and the expectations driving it.
func NewMockProvider() (*MockProvider, sqlmock.Sqlmock, error) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sqlmock: %w", err)
	}
	return &MockProvider{db: db}, mock, nil
}

func (p *MockProvider) Name() string { return "sqlmock" }

func (p *MockProvider) Open(ctx context.Context, rawURL string, opts OpenOptions) (Connector, error) {
	if p == nil || p.db == nil {
		return nil, sql.ErrConnDone
	}
	applyPool(p.db, opts.Pool)
	return newSQLConnector(p.db, p.Name(), "sqlmock"), nil
}

// RegisterMock binds sqlmock:// on r to a fresh MockProvider.
func RegisterMock(r *Registry) (sqlmock.Sqlmock, error) {
	p, mock, err := NewMockProvider()
	if err != nil {
		return nil, err
	}
	r.Register(MockScheme, p)
	return mock, nil
}
