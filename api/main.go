package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

type config struct {
	port int
	env  string
	db   struct {
		dsn                string
		maxOpenConnections int
		maxIdleConnections int
		maxIdleTime        time.Duration
	}
	smtp struct {
		host     string
		port     int
		useTLS   bool
		username string
		password string
		sender   string
		timeout  time.Duration
	}
	notifyEmail string
	logoPath    string
	ai          struct {
		apiKey  string
		model   string
		baseURL string
		timeout time.Duration
	}
	limiter struct {
		enabled bool
		rps     float64
		burst   int
	}
	secretKey string
}

type application struct {
	config    config
	logger    *slog.Logger
	db        *sql.DB
	templates map[string]*template.Template
	notifier  *notifier
	ai        *geminiClient
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func parseConfig(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("taskflow", flag.ContinueOnError)

	fs.IntVar(&cfg.port, "port", envInt("PORT", 3000), "Server Port")
	fs.StringVar(&cfg.env, "env", envOr("APP_ENV", "development"), "Environment [development|production]")

	fs.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	fs.IntVar(&cfg.db.maxOpenConnections, "db-max-open-conns", 25, "PostgreSQL max open connections")
	fs.IntVar(&cfg.db.maxIdleConnections, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	fs.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max connection idle time")

	fs.StringVar(&cfg.smtp.host, "smtp-host", envOr("MAIL_SERVER", "smtp.gmail.com"), "SMTP host")
	fs.IntVar(&cfg.smtp.port, "smtp-port", envInt("MAIL_PORT", 587), "SMTP port")
	fs.BoolVar(&cfg.smtp.useTLS, "smtp-tls", envBool("MAIL_USE_TLS", true), "Require STARTTLS")
	fs.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("MAIL_USERNAME"), "SMTP username")
	fs.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("MAIL_PASSWORD"), "SMTP password")
	fs.StringVar(&cfg.smtp.sender, "smtp-sender", os.Getenv("MAIL_DEFAULT_SENDER"), "SMTP sender")
	fs.DurationVar(&cfg.smtp.timeout, "smtp-timeout", 10*time.Second, "SMTP dial and send timeout")

	fs.StringVar(&cfg.notifyEmail, "notify-email", os.Getenv("NOTIFY_EMAIL"), "Send notifications to this address instead of subscribers")
	fs.StringVar(&cfg.logoPath, "logo-path", envOr("LOGO_PATH", "static/logo.png"), "Logo embedded in notification emails")

	fs.StringVar(&cfg.ai.apiKey, "ai-key", os.Getenv("GEMINI_API_KEY"), "Gemini API key")
	fs.StringVar(&cfg.ai.model, "ai-model", envOr("GEMINI_MODEL", geminiDefaultModel), "Gemini model")
	fs.StringVar(&cfg.ai.baseURL, "ai-url", geminiBaseURL, "Gemini API base URL")
	fs.DurationVar(&cfg.ai.timeout, "ai-timeout", 20*time.Second, "AI suggestion timeout")

	fs.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable per-IP rate limiting")
	fs.Float64Var(&cfg.limiter.rps, "limiter-rps", 4, "Rate limiter maximum requests per second")
	fs.IntVar(&cfg.limiter.burst, "limiter-burst", 8, "Rate limiter maximum burst")

	fs.StringVar(&cfg.secretKey, "secret-key", os.Getenv("SECRET_KEY"), "Key signing flash cookies")

	err := fs.Parse(args)
	if err != nil {
		return cfg, err
	}
	if cfg.db.dsn == "" {
		return cfg, errors.New("a database DSN is required (-db-dsn or DATABASE_URL)")
	}
	if cfg.smtp.sender == "" {
		cfg.smtp.sender = cfg.smtp.username
	}
	if cfg.secretKey == "" {
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		if err != nil {
			return cfg, err
		}
		cfg.secretKey = hex.EncodeToString(secret)
	}
	return cfg, nil
}

func newApplication(cfg config, logger *slog.Logger, db *sql.DB) (*application, error) {
	templates, err := newTemplateCache()
	if err != nil {
		return nil, err
	}
	comp, err := newComposer(cfg.logoPath)
	if err != nil {
		return nil, err
	}

	n := &notifier{
		from:     cfg.smtp.sender,
		override: cfg.notifyEmail,
		composer: comp,
		logger:   logger,
	}
	// Mail counts as configured once credentials are present.
	if cfg.smtp.username != "" {
		n.sender = newMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.useTLS, cfg.smtp.timeout)
	}

	return &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		templates: templates,
		notifier:  n,
		ai:        newGeminiClient(cfg.ai.apiKey, cfg.ai.baseURL, cfg.ai.model, cfg.ai.timeout),
	}, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	logger.Info("established a connection with database")

	err = applySchema(context.Background(), db)
	if err != nil {
		logger.Error("apply schema", "error", err)
		os.Exit(1)
	}

	app, err := newApplication(cfg, logger, db)
	if err != nil {
		logger.Error("build application", "error", err)
		os.Exit(1)
	}
	if app.notifier.sender == nil {
		logger.Warn("SMTP is not configured; notifications are disabled")
	}
	if app.ai == nil {
		logger.Warn("no AI key configured; suggestions are disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      composeRoutes(app),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "env", cfg.env, "port", cfg.port, "version", version)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down server")
				err := srv.Shutdown(ctx)
				if cerr := db.Close(); cerr != nil && err == nil {
					err = cerr
				}
				return err
			},
		},
	)
	exitCode := <-wait
	logger.Info("exited", "code", exitCode)
	os.Exit(exitCode)
}
