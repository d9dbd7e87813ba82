package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, fmt.Errorf("%v", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		app.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// withDBSession gives every request its own lazily opened connection and
// returns it to the pool when the request is done.
func (app *application) withDBSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := newDBSession(app.db)
		defer func() {
			if err := s.release(); err != nil {
				app.logger.Warn("release connection", "error", err)
			}
		}()
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), s)))
	})
}

// wantsJSON reports whether the caller is a JSON client rather than a browser page.
func wantsJSON(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/tasks/ai-suggest":
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (app *application) rateLimit(next http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)
	go func() {
		for {
			time.Sleep(time.Minute)
			func() {
				mu.Lock()
				defer mu.Unlock()
				for ip, c := range clients {
					if time.Since(c.lastSeen) >= time.Minute*3 {
						delete(clients, ip)
					}
				}
			}()
		}
	}()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		mu.Lock()
		c, ok := clients[ip]
		if !ok {
			c = &client{
				limiter: rate.NewLimiter(rate.Limit(app.config.limiter.rps), app.config.limiter.burst),
			}
			clients[ip] = c
		}
		c.lastSeen = time.Now()
		if !c.limiter.Allow() {
			mu.Unlock()
			if wantsJSON(r) {
				writeError(w, errors.New("rate limit exceeded"), http.StatusTooManyRequests)
				return
			}
			app.renderPlain(w, r, http.StatusTooManyRequests, "rate_limited.tmpl")
			return
		}
		mu.Unlock()
		next.ServeHTTP(w, r)
	})
}
