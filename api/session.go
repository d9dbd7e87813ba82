package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

var errStoreUnavailable = errors.New("store unavailable")

// connAcquireTimeout bounds the wait for a pooled or freshly dialed connection.
const connAcquireTimeout = queryTimeout

// dbSession holds the one connection a request may use. The connection is
// taken from the pool on first use and handed back by release.
type dbSession struct {
	db      *sql.DB
	conn    *sql.Conn
	timeout time.Duration
}

func newDBSession(db *sql.DB) *dbSession {
	return &dbSession{db: db, timeout: connAcquireTimeout}
}

func (s *dbSession) get(ctx context.Context) (*sql.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	acquireCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	conn, err := s.db.Conn(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStoreUnavailable, err)
	}
	s.conn = conn
	return conn, nil
}

func (s *dbSession) release() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

type sessionContext string

const sessionContextKey sessionContext = "sessionContextKey"

func withSession(ctx context.Context, s *dbSession) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func getSessionFromContext(ctx context.Context) *dbSession {
	s, _ := ctx.Value(sessionContextKey).(*dbSession)
	return s
}

// store returns the request's storage bound to its connection.
func (app *application) store(ctx context.Context) (*storage, error) {
	s := getSessionFromContext(ctx)
	if s == nil {
		return nil, errors.New("no database session in request context")
	}
	conn, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return newStorage(conn), nil
}

// inTx runs fn inside a transaction on the request's connection. It commits
// when fn returns nil and rolls back otherwise.
func (app *application) inTx(ctx context.Context, fn func(st *storage) error) error {
	s := getSessionFromContext(ctx)
	if s == nil {
		return errors.New("no database session in request context")
	}
	conn, err := s.get(ctx)
	if err != nil {
		return err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	err = fn(newStorage(tx))
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			app.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// isStoreUnavailable reports whether err means the database could not be reached.
func isStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errStoreUnavailable) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
