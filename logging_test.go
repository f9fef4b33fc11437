package ygggo_formsql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "v", rec["k"])

	buf.Reset()
	logger, err = NewLogger(LoggingConfig{Format: "text"}, &buf)
	require.NoError(t, err)
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	_, err = NewLogger(LoggingConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, err = NewLogger(LoggingConfig{Format: "xml"}, &buf)
	assert.Error(t, err)
}

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLogSubmission_Levels(t *testing.T) {
	var buf bytes.Buffer
	s := NewSubmitter(nil, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()
	rec := submissionRecord{
		id:           "abc",
		destination:  "postgres://app:secret@db/forms",
		table:        "people",
		template:     "INSERT INTO people (id) VALUES ({id:long})",
		placeholders: 1,
		duration:     3 * time.Millisecond,
	}

	s.logSubmission(ctx, rec, nil)
	s.logSubmission(ctx, rec, &MissingParameterError{Name: "id"})
	s.logSubmission(ctx, rec, &StatementExecutionError{Err: &pgconn.PgError{Code: "23505", Message: "duplicate key"}})

	lines := decodeLogLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "form submission stored", lines[0]["msg"])
	assert.Equal(t, "postgres://app:xxxxx@db/forms", lines[0]["destination"])
	assert.Equal(t, float64(1), lines[0]["placeholder_count"])

	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "form submission rejected", lines[1]["msg"])

	assert.Equal(t, "ERROR", lines[2]["level"])
	assert.Equal(t, "23505", lines[2]["sqlstate"])
	assert.Equal(t, "conflict", lines[2]["error_class"])
	assert.NotContains(t, buf.String(), "secret")
}

func TestLogConnectorEvent(t *testing.T) {
	var buf bytes.Buffer
	d := NewDestinations(NewRegistry(), OpenOptions{}, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	d.logConnectorEvent(context.Background(), "open", "mysql", "mysql://root:pw@db/x", time.Millisecond, nil)
	d.logConnectorEvent(context.Background(), "open", "mysql", "mysql://root:pw@db/x", time.Millisecond, errors.New("refused"))

	lines := decodeLogLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "success", lines[0]["status"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "refused", lines[1]["error"])
	assert.NotContains(t, buf.String(), ":pw@")
}
