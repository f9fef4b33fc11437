// Package ygggo_formsql stores web form submissions as single-row SQL INSERTs.
//
// # Overview
//
// A submission carries the JSON schema of the form, a destination (database URL
// and table) and the submitted values. The package turns it into a row in four
// steps:
//
//	Synthesize  schema + data       -> "INSERT INTO t (a,b) VALUES ({a:string},{b:integer})"
//	Compile     template            -> "INSERT INTO t (a,b) VALUES (?,?)" + [a string, b integer]
//	Bind        placeholders + data -> coerced positional arguments
//	Exec        prepared statement  -> one row
//
// Only properties present in the submitted data become columns, in schema
// declaration order. Placeholder types are case-insensitive: string, integer
// (also int, number), long and boolean. A missing value, an unknown type or an
// unconvertible value aborts the bind, and nothing is executed.
//
// # Quick Start
//
//	dest := ggf.NewDestinations(ggf.NewDefaultRegistry(), ggf.OpenOptions{}, logger)
//	defer dest.Close()
//	s := ggf.NewSubmitter(dest, logger)
//
//	err := s.Submit(ctx, ggf.Submission{
//		Schema:      schema,
//		Destination: ggf.Destination{URL: "sqlite:///var/lib/forms.db", Table: "todo"},
//		Data:        map[string]any{"title": "write docs"},
//	})
//	if err != nil {
//		// show clients only the summary; the full error is already logged
//		msg := ggf.Shorten(err.Error())
//	}
//
// # Destinations
//
// Destination URLs are resolved by prefix through a Registry:
//
//	mysql://, mariadb://         go-sql-driver/mysql
//	postgres://, postgresql://   jackc/pgx
//	sqlite://, file:             modernc.org/sqlite
//	sqlmock://                   go-sqlmock, after RegisterMock
//
// Each URL gets one database/sql pool, opened on first use. Every submission
// checks out its own connection and prepared statement and releases them before
// Submit returns.
//
// # HTTP
//
// NewHandler exposes POST /submit and GET /healthz. Errors are answered with
// {"error": "..."} holding at most the first two lines of the message.
//
// # Observability
//
//   - Structured logging with log/slog, one record per submission
//   - OpenTelemetry spans for submit and exec, plus otelsql driver spans
//   - OpenTelemetry metrics for submissions, durations and held connections
//
// # Configuration
//
// LoadConfig reads YAML and then environment variables with the prefix
// YGGGO_FORMSQL_* (e.g., YGGGO_FORMSQL_LISTEN, YGGGO_FORMSQL_DESTINATIONS).
//
// For runnable programs, see the examples/ directory in the repository.
package ygggo_formsql
