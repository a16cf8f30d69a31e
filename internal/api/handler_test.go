package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewPublisher/internal/api"
	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/usecase"
)

type fakeRuns struct {
	started  []usecase.BatchRequest
	startErr error
	resetErr error
	stopped  bool
	snap     usecase.RunSnapshot
}

func (f *fakeRuns) Start(_ context.Context, req usecase.BatchRequest) (usecase.RunSnapshot, error) {
	if f.startErr != nil {
		return usecase.RunSnapshot{}, f.startErr
	}
	f.started = append(f.started, req)
	f.snap = usecase.RunSnapshot{ID: "run-1", State: domain.WorkflowState{Status: domain.StatusRunning}}
	return f.snap, nil
}

func (f *fakeRuns) Stop()                         { f.stopped = true }
func (f *fakeRuns) Reset() error                  { return f.resetErr }
func (f *fakeRuns) Snapshot() usecase.RunSnapshot { return f.snap }

type fakeHistory struct {
	entries []domain.HistoryEntry
	query   string
	limit   int
	cleared bool
}

func (f *fakeHistory) Record(_ context.Context, e domain.HistoryEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) List(_ context.Context, query string, limit int) ([]domain.HistoryEntry, error) {
	f.query, f.limit = query, limit
	return f.entries, nil
}

func (f *fakeHistory) FindDuplicates(_ context.Context, keywords []string) ([]domain.DuplicateKeyword, error) {
	var out []domain.DuplicateKeyword
	for _, kw := range keywords {
		for _, e := range f.entries {
			if e.Keyword == kw && e.Status == domain.HistorySuccess {
				out = append(out, domain.DuplicateKeyword{Keyword: kw, LastExecutedAt: e.ExecutedAt, PostURL: e.PostURL})
			}
		}
	}
	return out, nil
}

func (f *fakeHistory) Delete(_ context.Context, id string) (bool, error) {
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHistory) Clear(context.Context) error {
	f.cleared = true
	f.entries = nil
	return nil
}

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T, runs *fakeRuns, history *fakeHistory) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	deps := api.Deps{
		Runs: runs,
		Defaults: usecase.BatchRequest{
			Model:        domain.ModelClaude,
			ProductCount: 7,
			Settings:     domain.DefaultPublishSettings(),
		},
		Now: func() time.Time { return fixedNow },
	}
	if history != nil {
		deps.History = history
	}
	return api.NewRouter(api.NewHandler(deps))
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStartRun(t *testing.T) {
	runs := &fakeRuns{}
	router := setupRouter(t, runs, nil)

	w := do(t, router, http.MethodPost, "/api/v1/runs", map[string]any{
		"keywords":     []string{"wireless earbuds", "gaming mouse"},
		"model":        "gemini",
		"productCount": 5,
		"publish":      map[string]any{"enabled": true, "intervalMinutes": 30, "startTime": "08:00", "endTime": "20:00"},
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, runs.started, 1)
	req := runs.started[0]
	assert.Equal(t, []string{"wireless earbuds", "gaming mouse"}, req.Keywords)
	assert.Equal(t, domain.ModelGemini, req.Model)
	assert.Equal(t, 5, req.ProductCount)
	assert.True(t, req.Settings.Enabled)
	assert.Equal(t, 30, req.Settings.IntervalMinutes)

	var snap usecase.RunSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "run-1", snap.ID)
}

func TestStartRunErrors(t *testing.T) {
	cases := []struct {
		name string
		runs *fakeRuns
		body map[string]any
		code int
	}{
		{"no keywords", &fakeRuns{startErr: usecase.ErrNoKeywords}, map[string]any{"keywords": []string{}}, http.StatusBadRequest},
		{"in progress", &fakeRuns{startErr: usecase.ErrRunInProgress}, map[string]any{"keywords": []string{"a"}}, http.StatusConflict},
		{"unknown model", &fakeRuns{}, map[string]any{"keywords": []string{"a"}, "model": "gpt"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, setupRouter(t, tc.runs, nil), http.MethodPost, "/api/v1/runs", tc.body)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestStartRunRejectsInvalidPublishSettings(t *testing.T) {
	cases := map[string]map[string]any{
		"negative interval": {"enabled": true, "intervalMinutes": -5, "startTime": "09:00", "endTime": "18:00"},
		"bad start":         {"enabled": true, "intervalMinutes": 30, "startTime": "25:99", "endTime": "18:00"},
		"bad end":           {"enabled": true, "intervalMinutes": 30, "startTime": "09:00", "endTime": "nonsense"},
	}
	for name, publish := range cases {
		t.Run(name, func(t *testing.T) {
			runs := &fakeRuns{}
			w := do(t, setupRouter(t, runs, nil), http.MethodPost, "/api/v1/runs", map[string]any{
				"keywords": []string{"a"},
				"publish":  publish,
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "publish")
			assert.Empty(t, runs.started)
		})
	}
}

func TestRunControls(t *testing.T) {
	runs := &fakeRuns{resetErr: usecase.ErrRunInProgress}
	router := setupRouter(t, runs, nil)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/v1/runs/current", nil).Code)
	assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/api/v1/runs/stop", nil).Code)
	assert.True(t, runs.stopped)
	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/api/v1/runs/reset", nil).Code)

	runs.resetErr = nil
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/runs/reset", nil).Code)
}

func TestHistoryRoutes(t *testing.T) {
	history := &fakeHistory{entries: []domain.HistoryEntry{
		{ID: "h1", Keyword: "gaming mouse", Status: domain.HistorySuccess, PostURL: "https://blog.example.com/?p=1", ExecutedAt: fixedNow},
		{ID: "h2", Keyword: "keyboard", Status: domain.HistoryError, ExecutedAt: fixedNow},
	}}
	router := setupRouter(t, &fakeRuns{}, history)

	w := do(t, router, http.MethodGet, "/api/v1/history?q=mouse&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mouse", history.query)
	assert.Equal(t, 5, history.limit)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/history?limit=abc", nil).Code)

	w = do(t, router, http.MethodPost, "/api/v1/history/duplicates", map[string]any{"keywords": []string{"gaming mouse", "keyboard"}})
	require.Equal(t, http.StatusOK, w.Code)
	var dups struct {
		Duplicates []domain.DuplicateKeyword `json:"duplicates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dups))
	require.Len(t, dups.Duplicates, 1)
	assert.Equal(t, "gaming mouse", dups.Duplicates[0].Keyword)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/api/v1/history/h2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/v1/history/h2", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/api/v1/history", nil).Code)
	assert.True(t, history.cleared)
}

func TestHistoryUnavailableWithoutDatabase(t *testing.T) {
	router := setupRouter(t, &fakeRuns{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/api/v1/history", nil).Code)
}

func TestPreviewSchedule(t *testing.T) {
	router := setupRouter(t, &fakeRuns{}, nil)

	w := do(t, router, http.MethodGet, "/api/v1/schedule/preview?count=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Slots   []domain.ScheduleSlot `json:"slots"`
		Summary struct {
			TotalPosts    int `json:"totalPosts"`
			DailyCapacity int `json:"dailyCapacity"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Slots, 3)
	assert.True(t, body.Slots[0].Date.Equal(fixedNow))
	assert.True(t, body.Slots[2].Date.Equal(fixedNow.Add(2*time.Hour)))
	assert.Equal(t, 3, body.Summary.TotalPosts)
	assert.Equal(t, 9, body.Summary.DailyCapacity)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/schedule/preview?count=0", nil).Code)
}

func TestHealth(t *testing.T) {
	w := do(t, setupRouter(t, &fakeRuns{}, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
