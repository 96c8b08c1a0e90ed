package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/career-clicker/internal/catalog"
	"github.com/talgya/career-clicker/internal/engine"
	"github.com/talgya/career-clicker/internal/persistence"
)

const testAdminKey = "test-admin-key"

type fixture struct {
	server  *Server
	handler http.Handler
	store   persistence.Store
}

func newFixture(t *testing.T, store persistence.Store) *fixture {
	t.Helper()
	if store == nil {
		store = persistence.NewMemoryStore()
	}
	g := engine.NewGame(catalog.Default())
	session := engine.NewSession(g, nil)
	saves := persistence.NewSaves(store, "", g)
	sched := engine.NewScheduler(g, session, saves.Save)
	t.Cleanup(sched.Stop)

	s := &Server{
		Session:     session,
		Scheduler:   sched,
		Saves:       saves,
		AdminKey:    testAdminKey,
		CORSOrigins: []string{"https://career.example"},
	}
	if h, ok := store.(HistorySource); ok {
		s.History = h
	}
	return &fixture{server: s, handler: s.Handler(), store: store}
}

func (f *fixture) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminKey)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/v1/status", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	status := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), status["day"])
	assert.Equal(t, "Laborer", status["stage"])
	assert.Equal(t, float64(100), status["cash"])
	assert.Equal(t, false, status["running"])
}

func TestActionFlow(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/action", `{"type":"buyTool","id":"work_boots"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[actionResponse](t, rec)
	assert.True(t, resp.Changed)
	assert.Equal(t, 40.0, resp.State.Resources.Cash)

	rec = f.do(t, http.MethodPost, "/api/v1/action", `{"type":"takeGig","id":"yard_cleanup"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[actionResponse](t, rec)
	assert.True(t, resp.Changed)
	require.Len(t, resp.State.Jobs.Active, 1)
	assert.Equal(t, "yard_cleanup", resp.State.Jobs.Active[0].ID)

	assert.Len(t, f.server.Session.Snapshot().Jobs.Active, 1)
}

func TestActionRejectedIsNotAnError(t *testing.T) {
	f := newFixture(t, nil)
	before := f.server.Session.Snapshot()

	rec := f.do(t, http.MethodPost, "/api/v1/action", `{"type":"takeGig","id":"skyscraper"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[actionResponse](t, rec).Changed)
	assert.Same(t, before, f.server.Session.Snapshot())
}

func TestActionBadRequests(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/action", `{"type":"teleport"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown intent")

	rec = f.do(t, http.MethodPost, "/api/v1/action", `{"type":`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/action", "", false)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPrestigeEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/prestige", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[engine.PrestigeSummary](t, rec)
	assert.False(t, summary.Available)
	assert.Zero(t, summary.Earned)
	assert.NotEmpty(t, summary.Choices)

	rec = f.do(t, http.MethodPost, "/api/v1/prestige", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[actionResponse](t, rec).Changed)

	f.server.Session.Update(func(s *engine.State) *engine.State {
		next := s.Clone()
		next.Resources.Reputation = 400
		return next
	})
	rec = f.do(t, http.MethodPost, "/api/v1/prestige", `{"choices":[]}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[actionResponse](t, rec)
	assert.True(t, resp.Changed)
	assert.Equal(t, 1, resp.State.Day)
	assert.Equal(t, 2, resp.State.Prestige.Charters)
	assert.Zero(t, resp.State.Resources.Reputation)
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/snapshot", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.server.AdminKey = ""
	rec = f.do(t, http.MethodPost, "/api/v1/snapshot", "", true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "CAREER_ADMIN_KEY")
}

func TestSnapshotAndExport(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/snapshot", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok, err := f.store.Get(context.Background(), persistence.DefaultSaveKey)
	require.NoError(t, err)
	assert.True(t, ok)

	rec = f.do(t, http.MethodGet, "/api/v1/export", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "career-save.json")
	assert.Contains(t, rec.Body.String(), "\n  \"day\": 1,")
}

func TestImport(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/import", `{"day": 12, "stage": "Apprentice", "resources": {"cash": 750}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["saved"])

	st := f.server.Session.Snapshot()
	assert.Equal(t, 12, st.Day)
	assert.Equal(t, catalog.StageApprentice, st.Stage)
	assert.Equal(t, 750.0, st.Resources.Cash)

	loaded := f.server.Saves.Load(context.Background())
	assert.Equal(t, 12, loaded.Day)

	rec = f.do(t, http.MethodPost, "/api/v1/import", "{broken", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 12, f.server.Session.Snapshot().Day, "state untouched")
}

func TestImportRateLimited(t *testing.T) {
	f := newFixture(t, nil)
	f.server.ImportLimiter = NewRateLimiter(1, time.Hour)
	f.handler = f.server.Handler()

	rec := f.do(t, http.MethodPost, "/api/v1/import", `{}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/import", `{}`, true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestReset(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/v1/action", `{"type":"buyTool","id":"work_boots"}`, false)
	f.do(t, http.MethodPost, "/api/v1/snapshot", "", true)

	rec := f.do(t, http.MethodPost, "/api/v1/reset", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 100.0, f.server.Session.Snapshot().Resources.Cash)
	_, ok, err := f.store.Get(context.Background(), persistence.DefaultSaveKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchedulerControl(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/scheduler", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["running"])

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler", `{"action":"start","speed":2}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, 2.0, body["speed"])

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler", `{"action":"start"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.server.Scheduler.Running())

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler", `{"action":"stop"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["running"])

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler", `{"speed":5000}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/scheduler", `{"action":"rewind"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/v1/history", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "career.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f = newFixture(t, db)
	f.do(t, http.MethodPost, "/api/v1/snapshot", "", true)
	f.do(t, http.MethodPost, "/api/v1/action", `{"type":"buyTool","id":"work_boots"}`, false)
	f.do(t, http.MethodPost, "/api/v1/snapshot", "", true)

	rec = f.do(t, http.MethodGet, "/api/v1/history?limit=1", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]persistence.SaveRecord](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, 40.0, rows[0].Cash)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)

	for origin, allowed := range map[string]bool{
		"http://localhost:5173":  true,
		"https://career.example": true,
		"https://evil.example":   false,
	} {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/state", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, origin)
		if allowed {
			assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		}
	}
}
