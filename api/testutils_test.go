package main

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	msgs  []*mail.Message
	calls int
	err   error
}

func (f *fakeSender) send(msgs ...*mail.Message) error {
	f.calls++
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApplication(t *testing.T) (*application, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var cfg config
	cfg.secretKey = "test-secret"
	cfg.smtp.sender = "taskflow@example.com"
	app, err := newApplication(cfg, discardLogger(), db)
	require.NoError(t, err)
	return app, db, mock
}

func serve(app *application, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	composeRoutes(app).ServeHTTP(rr, r)
	return rr
}

func postForm(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// responseFlashes decodes the flash cookie a response set.
func responseFlashes(t *testing.T, app *application, rr *httptest.ResponseRecorder) []flash {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == flashCookieName && c.Value != "" {
			flashes, err := app.parseFlashes(c.Value)
			require.NoError(t, err)
			return flashes
		}
	}
	return nil
}

var (
	taskCols       = []string{"id", "title", "body", "reminder_at", "reminder_note", "ai_recommendation", "completed", "archived", "created_at", "updated_at"}
	subscriberCols = []string{"id", "name", "email", "active", "created_at"}
	testCreatedAt  = time.Date(2024, 2, 20, 8, 30, 0, 0, time.UTC)
)

func taskRow(rows *sqlmock.Rows, t task) *sqlmock.Rows {
	var body, note, ai, reminder any
	if t.Body != "" {
		body = t.Body
	}
	if t.ReminderNote != "" {
		note = t.ReminderNote
	}
	if t.AIRecommendation != "" {
		ai = t.AIRecommendation
	}
	if t.ReminderAt != nil {
		reminder = *t.ReminderAt
	}
	return rows.AddRow(t.ID, t.Title, body, reminder, note, ai, t.Completed, t.Archived, testCreatedAt, testCreatedAt)
}
