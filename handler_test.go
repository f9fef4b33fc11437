package ygggo_formsql

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleBody = `{
	"schema": {"type": "object", "properties": {"id": {"type": "long"}, "name": {"type": "string"}}},
	"destination": {"url": "sqlmock://forms", "table": "people"},
	"data": %s
}`

func post(t *testing.T, h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHandler_SubmitStoresRow(t *testing.T) {
	s, mock, _ := newMockSubmitter(t)
	mock.ExpectPrepare(peopleInsert).
		ExpectExec().
		WithArgs(float64(42), "Ann").
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewHandler(s, DefaultConfig().HandlerConfig())
	rec := post(t, h, "application/json; charset=utf-8", strings.Replace(peopleBody, "%s", `{"id": 42, "name": "Ann"}`, 1))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_RejectsNonJSON(t *testing.T) {
	s, _, _ := newMockSubmitter(t)
	h := NewHandler(s, HandlerConfig{})
	rec := post(t, h, "text/plain", "id=1")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.NotEmpty(t, errorBody(t, rec))
}

func TestHandler_MissingFields(t *testing.T) {
	s, _, _ := newMockSubmitter(t)
	h := NewHandler(s, HandlerConfig{})
	cases := map[string]string{
		`{"destination": {"url": "sqlmock://x", "table": "t"}, "data": {}}`:  "missing field: schema",
		`{"schema": {"type": "object"}, "data": {}}`:                         "missing field: destination",
		`{"schema": {"type": "object"}, "destination": {"url": "sqlmock://x", "table": "t"}}`: "missing field: data",
		`{"schema": {"type": "object"}, "destination": {"url": "sqlmock://x"}, "data": {}}`:   "missing field: destination.table",
	}
	for body, want := range cases {
		rec := post(t, h, "application/json", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, want, errorBody(t, rec), body)
	}
	rec := post(t, h, "application/json", `{"schema":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	s, _, _ := newMockSubmitter(t)
	h := NewHandler(s, HandlerConfig{MaxBodyBytes: 32})
	rec := post(t, h, "application/json", strings.Replace(peopleBody, "%s", `{"id": 1}`, 1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_RequestErrorsAre400(t *testing.T) {
	s, mock, _ := newMockSubmitter(t)
	mock.ExpectPrepare(peopleInsert)
	h := NewHandler(s, HandlerConfig{})

	rec := post(t, h, "application/json", strings.Replace(peopleBody, "%s", `{"id": "x", "name": "Ann"}`, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), `parameter "id"`)

	body := `{"schema": {"type": "array"}, "destination": {"url": "sqlmock://x", "table": "t"}, "data": {}}`
	rec = post(t, h, "application/json", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ExecutionErrorIsSummarized(t *testing.T) {
	s, mock, logs := newMockSubmitter(t)
	trace := "Duplicate entry '1' for key 'PRIMARY'\nat com.example.Driver.exec\nat com.example.Pool.run"
	mock.ExpectPrepare(peopleInsert).
		ExpectExec().
		WithArgs(float64(1), "Ann").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: trace})
	h := NewHandler(s, HandlerConfig{})

	rec := post(t, h, "application/json", strings.Replace(peopleBody, "%s", `{"id": 1, "name": "Ann"}`, 1))
	assert.Equal(t, http.StatusConflict, rec.Code)
	msg := errorBody(t, rec)
	assert.Equal(t, 1, strings.Count(msg, "\n"))
	assert.NotContains(t, msg, "Pool.run")
	// the full text is in the server log
	assert.Contains(t, logs.String(), "Pool.run")
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	s, _, _ := newMockSubmitter(t)
	h := NewHandler(s, HandlerConfig{})
	req := httptest.NewRequest(http.MethodGet, "/submit", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&MissingParameterError{Name: "a"}, http.StatusBadRequest},
		{&UnsupportedDestinationError{URL: "x://"}, http.StatusBadRequest},
		{&StatementExecutionError{Err: &mysql.MySQLError{Number: 1062}}, http.StatusConflict},
		{&StatementExecutionError{Err: &mysql.MySQLError{Number: 1048}}, http.StatusConflict},
		{&StatementExecutionError{Err: &mysql.MySQLError{Number: 1213}}, http.StatusServiceUnavailable},
		{&StatementExecutionError{Err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "%v", tc.err)
	}
}
