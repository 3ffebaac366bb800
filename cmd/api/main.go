package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/hafizmfadli/go-catalog/internal/idhash"
	"github.com/hafizmfadli/go-catalog/internal/jsonlog"
	"github.com/hafizmfadli/go-catalog/internal/mailer"
	"github.com/hafizmfadli/go-catalog/internal/uploader"
	"github.com/joho/godotenv"
)

// Application version number
const version = "1.0.0"

// config holds every setting of the server. It is built once in main and
// handed to the components that need it.
type config struct {
	port     int
	env      string
	logLevel string

	db struct {
		driver       string
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
		automigrate  bool
	}

	// limiter settings apply per client IP.
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}

	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}

	// notify.recipient receives an email for every created entry. Empty
	// disables notifications.
	notify struct {
		recipient string
	}

	cors struct {
		trustedOrigins []string
	}

	cloudinary struct {
		cloudName string
		apiKey    string
		apiSecret string
	}

	idhash struct {
		secret string
	}
}

// mailSender is satisfied by mailer.Mailer.
type mailSender interface {
	Send(recipient, templateFile string, data any) error
}

// application holds the dependencies for our HTTP handlers, helpers, and middleware.
type application struct {
	config   config
	logger   *jsonlog.Logger
	models   data.Models
	uploader uploader.Uploader
	mailer   mailSender
	// wg tracks background goroutines so shutdown can wait for them.
	wg sync.WaitGroup
}

func main() {
	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(2)
	}

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := jsonlog.ParseLevel(cfg.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := jsonlog.NewLogger(os.Stdout, level)

	if cfg.idhash.secret == "" {
		logger.PrintFatal(idhash.ErrMissingSecret, nil)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()

	logger.PrintInfo("database connection pool established", map[string]string{
		"driver": cfg.db.driver,
	})

	if cfg.db.automigrate {
		migrator, err := data.NewMigrator(db, cfg.db.driver, nil)
		if err != nil {
			logger.PrintFatal(err, nil)
		}
		if err := migrator.Up(); err != nil {
			logger.PrintFatal(err, nil)
		}
		logger.PrintInfo("database migrations applied", nil)
	}

	var up uploader.Uploader = uploader.Disabled{}
	if cfg.cloudinary.cloudName != "" {
		up, err = uploader.NewCloudinary(cfg.cloudinary.cloudName, cfg.cloudinary.apiKey, cfg.cloudinary.apiSecret)
		if err != nil {
			logger.PrintFatal(err, nil)
		}
	} else {
		logger.PrintInfo("image hosting not configured, poster uploads will fail", nil)
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		models:   data.NewModels(db, idhash.New(cfg.idhash.secret)),
		uploader: up,
		mailer:   mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
	}

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

// openDB returns a sql.DB connection pool
func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open(cfg.db.driver, cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	// Values <= 0 mean no limit.
	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)

	duration, err := time.ParseDuration(cfg.db.maxIdleTime)
	if err != nil {
		db.Close()
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
