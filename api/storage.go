package main

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"time"

	"github.com/lib/pq"
)

const queryTimeout = 5 * time.Second

//go:embed sql/schema.sql
var schemaSQL string

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConnections)
	db.SetMaxIdleConns(cfg.db.maxIdleConnections)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// applySchema runs the embedded schema. Every statement in it is idempotent.
func applySchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}

// querier is satisfied by *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type storage struct {
	q querier
}

func newStorage(q querier) *storage {
	return &storage{q: q}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func (s *storage) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var one int
	return s.q.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

const taskColumns = `id, title, body, reminder_at, reminder_note, ai_recommendation,
			  completed, archived, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task, error) {
	var (
		t                            task
		body, note, aiRecommendation sql.NullString
		reminderAt                   sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &body, &reminderAt, &note, &aiRecommendation,
		&t.Completed, &t.Archived, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Body = body.String
	t.ReminderNote = note.String
	t.AIRecommendation = aiRecommendation.String
	if reminderAt.Valid {
		at := reminderAt.Time
		t.ReminderAt = &at
	}
	return &t, nil
}

func (s *storage) queryTasks(ctx context.Context, query string, args ...any) ([]task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *storage) listTasks(ctx context.Context, archived bool) ([]task, error) {
	order := "created_at DESC"
	if archived {
		order = "updated_at DESC"
	}
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE archived = $1
			  ORDER BY ` + order
	return s.queryTasks(ctx, query, archived)
}

func (s *storage) listReminders(ctx context.Context) ([]task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE reminder_at IS NOT NULL AND archived = FALSE
			  ORDER BY reminder_at ASC`
	return s.queryTasks(ctx, query)
}

// getTaskByID returns nil, nil when no such task exists.
func (s *storage) getTaskByID(ctx context.Context, id int) (*task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	t, err := scanTask(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return t, nil
}

func (s *storage) insertTask(ctx context.Context, t *task) error {
	query := `INSERT INTO tasks (title, body, reminder_at, reminder_note, ai_recommendation)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.q.QueryRowContext(ctx, query, t.Title, nullable(t.Body), nullableTime(t.ReminderAt),
		nullable(t.ReminderNote), nullable(t.AIRecommendation))
	return row.Scan(&t.ID)
}

// updateTask writes the editable fields only; the AI recommendation is fixed at creation.
func (s *storage) updateTask(ctx context.Context, t *task) error {
	query := `UPDATE tasks
			  SET title = $1, body = $2, reminder_at = $3, reminder_note = $4, updated_at = NOW()
			  WHERE id = $5`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.q.ExecContext(ctx, query, t.Title, nullable(t.Body), nullableTime(t.ReminderAt),
		nullable(t.ReminderNote), t.ID)
	return err
}

// toggleTaskCompleted flips the flag and reports the new value. found is false
// when the task does not exist.
func (s *storage) toggleTaskCompleted(ctx context.Context, id int) (completed bool, found bool, err error) {
	query := `UPDATE tasks
			  SET completed = NOT completed, updated_at = NOW()
			  WHERE id = $1
			  RETURNING completed`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err = s.q.QueryRowContext(ctx, query, id).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return completed, true, nil
}

func (s *storage) setTaskArchived(ctx context.Context, id int, archived bool) (bool, error) {
	query := `UPDATE tasks
			  SET archived = $1, updated_at = NOW()
			  WHERE id = $2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := s.q.ExecContext(ctx, query, archived, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const subscriberColumns = `id, name, email, active, created_at`

func scanSubscriber(row rowScanner) (*subscriber, error) {
	var sub subscriber
	err := row.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Active, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *storage) listSubscribers(ctx context.Context) ([]subscriber, error) {
	query := `SELECT ` + subscriberColumns + `
			  FROM subscribers
			  ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []subscriber{}
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// getSubscriberByID returns nil, nil when no such subscriber exists.
func (s *storage) getSubscriberByID(ctx context.Context, id int) (*subscriber, error) {
	query := `SELECT ` + subscriberColumns + `
			  FROM subscribers
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	sub, err := scanSubscriber(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return sub, nil
}

func (s *storage) insertSubscriber(ctx context.Context, sub *subscriber) error {
	query := `INSERT INTO subscribers (name, email)
			  VALUES ($1, $2)
			  RETURNING id, active, created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.q.QueryRowContext(ctx, query, sub.Name, sub.Email)
	return row.Scan(&sub.ID, &sub.Active, &sub.CreatedAt)
}

func (s *storage) updateSubscriber(ctx context.Context, sub *subscriber) error {
	query := `UPDATE subscribers
			  SET name = $1, email = $2
			  WHERE id = $3`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.q.ExecContext(ctx, query, sub.Name, sub.Email, sub.ID)
	return err
}

func (s *storage) toggleSubscriberActive(ctx context.Context, id int) (active bool, found bool, err error) {
	query := `UPDATE subscribers
			  SET active = NOT active
			  WHERE id = $1
			  RETURNING active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	err = s.q.QueryRowContext(ctx, query, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return active, true, nil
}

func (s *storage) activeSubscriberEmails(ctx context.Context) ([]string, error) {
	query := `SELECT email
			  FROM subscribers
			  WHERE active = TRUE
			  ORDER BY created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
