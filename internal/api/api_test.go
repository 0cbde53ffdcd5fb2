package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilombo/crm/internal/api"
	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/domain"
	"github.com/kilombo/crm/internal/errs"
)

type fakeConns struct {
	acquireErr error
	refreshed  int
	tested     []config.ConnectionConfig
	result     database.TestResult
}

func (f *fakeConns) Acquire(context.Context) (*database.Conn, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return &database.Conn{ID: uuid.MustParse("6f1c2a9e-1d2b-4c3d-8e4f-5a6b7c8d9e0f")}, nil
}

func (f *fakeConns) TestConnection(_ context.Context, candidate config.ConnectionConfig) database.TestResult {
	f.tested = append(f.tested, candidate)
	return f.result
}

func (f *fakeConns) RefreshConfiguration()       { f.refreshed++ }
func (f *fakeConns) Info(context.Context) string { return "Conectado: no" }
func (f *fakeConns) Stats() database.Stats       { return database.Stats{Opens: 2} }

type fakeReports struct {
	limit int
	top   []domain.CustomerProfit
	err   error
}

func (f *fakeReports) TopCustomersByGrossProfit(_ context.Context, limit int) ([]domain.CustomerProfit, error) {
	f.limit = limit
	return f.top, f.err
}

type fixture struct {
	conns   *fakeConns
	store   *config.Store
	reports *fakeReports
	handler http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	f := fixture{conns: &fakeConns{}, store: store, reports: &fakeReports{}}
	f.handler = api.New(f.conns, f.store, f.reports, nil).Routes()
	return f
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "6f1c2a9e-1d2b-4c3d-8e4f-5a6b7c8d9e0f", body["conn_id"])
}

func TestHealthz_Unavailable(t *testing.T) {
	f := newFixture(t)
	f.conns.acquireErr = errs.New(errs.ErrKindConnectionFailed, "después de 3 intentos")

	w := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, "connection_failed", body["kind"])
}

func TestGetConfig_OmitsPassword(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var body struct {
		Config config.ConnectionConfig `json:"config"`
		Info   string                  `json:"info"`
		Stats  database.Stats          `json:"stats"`
	}
	decode(t, w, &body)
	assert.Equal(t, config.DefaultHost, body.Config.Host)
	assert.Equal(t, "Conectado: no", body.Info)
	assert.Equal(t, int64(2), body.Stats.Opens)
}

func TestTestConfig_DoesNotPersistOrRefresh(t *testing.T) {
	f := newFixture(t)
	f.conns.result = database.Failed(database.ErrorTypeHost,
		config.ConnectionConfig{Host: "bad-host"}, "dial tcp: lookup bad-host: no such host")

	w := f.do(t, http.MethodPost, "/api/config/test",
		`{"driver":"mysql","host":"bad-host","port":3306,"username":"u","password":"p","database":"crm"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res database.TestResult
	decode(t, w, &res)
	assert.False(t, res.Success)
	assert.Equal(t, database.ErrorTypeHost, res.ErrorType)
	assert.Contains(t, res.Message, "bad-host")

	require.Len(t, f.conns.tested, 1)
	assert.Equal(t, "p", f.conns.tested[0].Password)
	assert.Zero(t, f.conns.refreshed)
	assert.Equal(t, config.DefaultHost, f.store.Connection().Host)
}

func TestTestConfig_BadJSON(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/config/test", "{")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.conns.tested)
}

func TestPutConfig_PersistsAndRefreshes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/config",
		`{"driver":"postgres","host":"db.internal","port":5432,"username":"crm","password":"s3cret","database":"kilombo"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.conns.refreshed)
	assert.Equal(t, "db.internal", f.store.Connection().Host)
	assert.Equal(t, "s3cret", f.store.Connection().Password)
	assert.NotContains(t, w.Body.String(), "s3cret")
}

func TestPutConfig_InvalidIsRejected(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/config", `{"driver":"mysql","host":""}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "validation_failed", body["kind"])
	assert.Zero(t, f.conns.refreshed)
	assert.Equal(t, config.DefaultHost, f.store.Connection().Host)
}

func TestResetConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(config.ConnectionConfig{
		Driver: config.DriverSQLite, Database: "/tmp/other.db",
	}))

	w := f.do(t, http.MethodPost, "/api/config/reset", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.conns.refreshed)
	assert.Equal(t, config.Default(), f.store.Connection())
}

func TestTopCustomers(t *testing.T) {
	f := newFixture(t)
	f.reports.top = []domain.CustomerProfit{{CustomerID: 3, Name: "Luis Gil", GrossProfit: 43}}

	w := f.do(t, http.MethodGet, "/api/reports/top-customers?limit=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, f.reports.limit)

	var top []domain.CustomerProfit
	decode(t, w, &top)
	assert.Equal(t, f.reports.top, top)

	f.do(t, http.MethodGet, "/api/reports/top-customers", "")
	assert.Zero(t, f.reports.limit)
}

func TestTopCustomers_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{name: "bad limit", query: "?limit=abc", status: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", status: http.StatusBadRequest},
		{name: "connection lost", err: errs.New(errs.ErrKindConnectionFailed, "sin conexión"), status: http.StatusServiceUnavailable},
		{name: "timeout", err: errs.New(errs.ErrKindTimeout, "tiempo límite"), status: http.StatusGatewayTimeout},
		{name: "unexpected", err: errs.New(errs.ErrKindUnexpected, "boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.reports.err = tt.err

			w := f.do(t, http.MethodGet, "/api/reports/top-customers"+tt.query, "")

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
