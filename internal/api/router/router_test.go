package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/screening-queue/internal/api/dto"
	"github.com/cuongbtq/screening-queue/internal/api/handler"
	"github.com/cuongbtq/screening-queue/internal/queue"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/queue/store"
	"github.com/cuongbtq/screening-queue/internal/queuelog"
	"github.com/cuongbtq/screening-queue/internal/screener"
	"github.com/cuongbtq/screening-queue/internal/screening"
)

const screenerEmail = "s@screener.de"

type fakeLister struct {
	entries []queuelog.Entry
	filter  queuelog.Filter
	err     error
}

func (f *fakeLister) List(ctx context.Context, filter queuelog.Filter) ([]queuelog.Entry, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	if len(f.entries) > filter.PageSize+1 {
		return f.entries[:filter.PageSize+1], nil
	}
	return f.entries, nil
}

type testAPI struct {
	router  *gin.Engine
	engine  *queue.Engine
	archive *screening.Memory
	logs    *fakeLister
}

func newTestAPI(t *testing.T, mutate func(deps *handler.Dependencies)) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := queue.NewEngine(&queue.Config{Store: store.NewMemory(), Logger: logger})
	archive := screening.NewMemory()
	logs := &fakeLister{}

	deps := &handler.Dependencies{
		Logger:    logger,
		Queue:     engine,
		Screeners: screener.NewStatic(screener.Screener{ID: 7, FirstName: "Sam", LastName: "Screener", Email: screenerEmail}),
		Archive:   archive,
		QueueLog:  logs,
		Now:       func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	}
	if mutate != nil {
		mutate(deps)
	}

	return &testAPI{
		router:  SetupRouter(deps),
		engine:  engine,
		archive: archive,
		logs:    logs,
	}
}

func (api *testAPI) do(t *testing.T, method, path string, body any, asScreener bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if asScreener {
		req.Header.Set(handler.ScreenerHeader, screenerEmail)
	}

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

func studentBody(email string) map[string]any {
	return map[string]any{
		"firstname": "Test",
		"lastname":  "Student",
		"email":     email,
		"subjects":  []map[string]any{{"subject": "Mathe", "min": 1, "max": 13}},
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestStudentLogin(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[domain.JobInfo](t, w)
	assert.Equal(t, 1, info.Position)
	assert.Equal(t, domain.StatusWaiting, info.Status)

	w = api.do(t, http.MethodPost, "/student/login", studentBody("b@x.com"), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[domain.JobInfo](t, w).Position)

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "duplicate", body: studentBody("a@x.com"), want: http.StatusConflict},
		{name: "missing email", body: map[string]any{"firstname": "x"}, want: http.StatusBadRequest},
		{
			name: "grade out of range",
			body: map[string]any{
				"email":    "c@x.com",
				"subjects": []map[string]any{{"subject": "Mathe", "min": 0, "max": 14}},
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/student/login", tt.body, false)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestJobInfo(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/student/jobInfo?email=a@x.com", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)

	w = api.do(t, http.MethodGet, "/student/jobInfo?email=a@x.com", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", decode[domain.JobInfo](t, w).Email)

	w = api.do(t, http.MethodGet, "/student/jobInfo", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentLogout(t *testing.T) {
	api := newTestAPI(t, nil)
	api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)

	w := api.do(t, http.MethodPost, "/student/logout", dto.EmailRequest{Email: "a@x.com"}, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/student/logout", dto.EmailRequest{Email: "a@x.com"}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScreenerRoutesRequireIdentity(t *testing.T) {
	api := newTestAPI(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/queue/jobs"},
		{http.MethodGet, "/queue/statistics"},
		{http.MethodPost, "/queue/reset"},
		{http.MethodPost, "/student/changeJob"},
		{http.MethodPost, "/student/remove"},
		{http.MethodPost, "/student/verify"},
		{http.MethodGet, "/student/result?email=a@x.com"},
		{http.MethodGet, "/screener/info?email=" + screenerEmail},
		{http.MethodGet, "/statistics/logs"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := api.do(t, rt.method, rt.path, nil, false)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			req := httptest.NewRequest(rt.method, rt.path, nil)
			req.Header.Set(handler.ScreenerHeader, "intruder@x.com")
			w = httptest.NewRecorder()
			api.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestChangeJob(t *testing.T) {
	api := newTestAPI(t, nil)
	api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)
	api.do(t, http.MethodPost, "/student/login", studentBody("b@x.com"), false)

	w := api.do(t, http.MethodPost, "/student/changeJob", map[string]any{"email": "a@x.com", "status": "active"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[domain.JobInfo](t, w)
	assert.Equal(t, domain.StatusActive, info.Status)
	assert.Zero(t, info.Position)
	require.NotNil(t, info.Screener)
	assert.Equal(t, 7, info.Screener.ID)
	assert.Equal(t, int64(1_700_000_000_000), info.Screener.Time)
	_, err := api.archive.Get(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, screening.ErrResultNotFound)

	w = api.do(t, http.MethodGet, "/student/jobInfo?email=b@x.com", nil, false)
	assert.Equal(t, 1, decode[domain.JobInfo](t, w).Position)

	w = api.do(t, http.MethodPost, "/student/changeJob", map[string]any{
		"email":           "a@x.com",
		"status":          "completed",
		"commentScreener": "solid",
	}, true)
	require.Equal(t, http.StatusOK, w.Code)

	result, err := api.archive.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "solid", result.CommentScreener)
	assert.Equal(t, screenerEmail, result.ScreenerEmail)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{name: "unknown student", body: map[string]any{"email": "z@x.com", "status": "active"}, want: http.StatusNotFound},
		{name: "back to waiting", body: map[string]any{"email": "a@x.com", "status": "waiting"}, want: http.StatusBadRequest},
		{name: "unknown status", body: map[string]any{"email": "b@x.com", "status": "paused"}, want: http.StatusBadRequest},
		{name: "missing email", body: map[string]any{"status": "active"}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/student/changeJob", tt.body, true)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

type failingArchive struct{}

func (failingArchive) Save(ctx context.Context, result *screening.Result) error {
	return errors.New("archive down")
}

func (failingArchive) Get(ctx context.Context, email string) (*screening.Result, error) {
	return nil, errors.New("archive down")
}

func TestChangeJob_ArchiveFailureIsSwallowed(t *testing.T) {
	api := newTestAPI(t, func(deps *handler.Dependencies) {
		deps.Archive = failingArchive{}
	})
	api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)

	w := api.do(t, http.MethodPost, "/student/changeJob", map[string]any{"email": "a@x.com", "status": "rejected"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusRejected, decode[domain.JobInfo](t, w).Status)
}

func TestVerifyStudent(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/student/result?email=a@x.com", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/student/verify", map[string]any{
		"studentEmail": "a@x.com",
		"screeningResult": map[string]any{
			"verified":        true,
			"commentScreener": "checked by phone",
			"subjects":        `["Mathe5:10"]`,
		},
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/student/result?email=a@x.com", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[screening.Result](t, w)
	assert.Equal(t, "a@x.com", result.Email)
	assert.True(t, result.Verified)
	assert.Equal(t, "checked by phone", result.CommentScreener)
	assert.Equal(t, screenerEmail, result.ScreenerEmail)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing student email", body: map[string]any{"screeningResult": map[string]any{"verified": true}}},
		{name: "missing result", body: map[string]any{"studentEmail": "a@x.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/student/verify", tt.body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestVerifyStudent_ArchiveFailure(t *testing.T) {
	api := newTestAPI(t, func(deps *handler.Dependencies) {
		deps.Archive = failingArchive{}
	})

	w := api.do(t, http.MethodPost, "/student/verify", map[string]any{
		"studentEmail":    "a@x.com",
		"screeningResult": map[string]any{"verified": false},
	}, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = api.do(t, http.MethodGet, "/student/result?email=a@x.com", nil, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRemoveStudent(t *testing.T) {
	api := newTestAPI(t, nil)
	api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)

	w := api.do(t, http.MethodPost, "/student/remove", dto.EmailRequest{Email: "a@x.com"}, true)
	require.Equal(t, http.StatusOK, w.Code)

	info, err := api.engine.GetWithPosition(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, info)

	w = api.do(t, http.MethodPost, "/student/remove", dto.EmailRequest{Email: "a@x.com"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/queue/jobs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	api.do(t, http.MethodPost, "/student/login", studentBody("a@x.com"), false)
	api.do(t, http.MethodPost, "/student/login", studentBody("b@x.com"), false)
	api.do(t, http.MethodPost, "/student/changeJob", map[string]any{"email": "a@x.com", "status": "active"}, true)

	w = api.do(t, http.MethodGet, "/queue/jobs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	jobs := decode[[]domain.JobInfo](t, w)
	require.Len(t, jobs, 2)
	assert.Zero(t, jobs[0].Position)
	assert.Equal(t, 1, jobs[1].Position)

	w = api.do(t, http.MethodGet, "/queue/statistics", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Statistics{CountWaiting: 1, CountActive: 1}, decode[domain.Statistics](t, w))

	w = api.do(t, http.MethodPost, "/queue/reset", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = api.do(t, http.MethodGet, "/queue/statistics", nil, true)
	assert.Equal(t, domain.Statistics{}, decode[domain.Statistics](t, w))
}

func TestScreenerInfo(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/screener/info?email=S@Screener.de", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	sc := decode[screener.Screener](t, w)
	assert.Equal(t, "Sam", sc.FirstName)

	w = api.do(t, http.MethodGet, "/screener/info?email=nobody@x.com", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueLogs(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := newTestAPI(t, nil)
	for i := 3; i >= 1; i-- {
		api.logs.entries = append(api.logs.entries, queuelog.Entry{
			ID:        int64(i),
			Email:     "a@x.com",
			Status:    "completed",
			Job:       json.RawMessage(`{}`),
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		})
	}

	w := api.do(t, http.MethodGet, "/statistics/logs?page_size=2&status=completed", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[dto.ListQueueLogResponse](t, w)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, int64(3), page.Entries[0].ID)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "completed", api.logs.filter.Status)
	assert.Nil(t, api.logs.filter.Cursor)

	w = api.do(t, http.MethodGet, "/statistics/logs?cursor="+page.NextCursor, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, api.logs.filter.Cursor)
	assert.Equal(t, int64(2), api.logs.filter.Cursor.ID)
	assert.Equal(t, 20, api.logs.filter.PageSize)

	api.do(t, http.MethodGet, "/statistics/logs?page_size=1000", nil, true)
	assert.Equal(t, 100, api.logs.filter.PageSize)

	w = api.do(t, http.MethodGet, "/statistics/logs?cursor=!!!", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	api.logs.err = errors.New("db down")
	w = api.do(t, http.MethodGet, "/statistics/logs", nil, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQueueLogsDisabled(t *testing.T) {
	api := newTestAPI(t, func(deps *handler.Dependencies) {
		deps.QueueLog = nil
	})

	w := api.do(t, http.MethodGet, "/statistics/logs", nil, true)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, func(deps *handler.Dependencies) {
		deps.HealthChecks = map[string]handler.HealthCheck{
			"store": func(ctx context.Context) error { return nil },
		}
	})

	w := api.do(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	api = newTestAPI(t, func(deps *handler.Dependencies) {
		deps.HealthChecks = map[string]handler.HealthCheck{
			"store": func(ctx context.Context) error { return errors.New("down") },
		}
	})

	w = api.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "down")
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodOptions, "/student/changeJob", nil, false)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), handler.ScreenerHeader)
}
