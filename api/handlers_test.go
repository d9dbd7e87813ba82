package main

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthOK(t *testing.T) {
	app, _, mock := newTestApplication(t)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthQueryFails(t *testing.T) {
	app, _, mock := newTestApplication(t)
	mock.ExpectQuery("SELECT 1").WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"db_unavailable"}`, rr.Body.String())
}

func TestHealthStoreDown(t *testing.T) {
	app, db, _ := newTestApplication(t)
	db.Close()

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"db_unavailable"}`, rr.Body.String())
}

func TestStoreDownRendersDegradedPage(t *testing.T) {
	app, db, _ := newTestApplication(t)
	db.Close()

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/tasks/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "Service temporarily unavailable")
}

func TestRequestIDHeader(t *testing.T) {
	app, _, _ := newTestApplication(t)

	rr := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "abc")
	rr = serve(app, r)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
}

func TestRecoverPanic(t *testing.T) {
	app, _, _ := newTestApplication(t)
	h := app.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
}

func TestRateLimit(t *testing.T) {
	app, _, _ := newTestApplication(t)
	app.config.limiter.enabled = true
	app.config.limiter.rps = 1
	app.config.limiter.burst = 2

	h := composeRoutes(app)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusSeeOther, http.StatusSeeOther, http.StatusTooManyRequests}, codes)
}

func TestRateLimitResponseFitsClient(t *testing.T) {
	app, _, _ := newTestApplication(t)
	app.config.limiter.enabled = true
	app.config.limiter.rps = 0.001
	app.config.limiter.burst = 1
	h := composeRoutes(app)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Too many requests")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, postJSON("/tasks/ai-suggest", `{"title":"Pay rent"}`))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rr.Body.String())

	r := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	r.Header.Set("Accept", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestSameOriginReferer(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		want    string
		ok      bool
	}{
		{"empty", "", "", false},
		{"same host", "http://example.com/tasks/archived?x=1", "/tasks/archived?x=1", true},
		{"relative", "/reminders/", "/reminders/", true},
		{"other host", "http://other.test/tasks/", "", false},
		{"protocol relative", "//other.test/tasks/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/tasks/1/toggle", nil)
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			got, ok := sameOriginReferer(r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
