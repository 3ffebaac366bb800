package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hafizmfadli/go-catalog/internal/data"
	"github.com/hafizmfadli/go-catalog/internal/idhash"
	"github.com/hafizmfadli/go-catalog/internal/validator"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

// ErrMissingDSN is returned by database commands run without a DSN.
var ErrMissingDSN = errors.New("no database DSN, set --db-dsn or CATALOG_DB_DSN")

// Runner holds the dependencies of every command action.
type Runner struct {
	logger  *log.Logger
	output  io.Writer
	keyCost int
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	// Output receives tokens and hashes. Logs go to Logger.
	Output io.Writer
	// KeyCost is the bcrypt cost of new API keys.
	KeyCost int
}

// NewRunner creates a Runner, filling unset options with defaults.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = newLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.KeyCost == 0 {
		opts.KeyCost = bcrypt.DefaultCost
	}

	return &Runner{logger: opts.Logger, output: opts.Output, keyCost: opts.KeyCost}
}

// connect opens the database named by the root flags.
func (r *Runner) connect(ctx context.Context, cmd *cli.Command) (*sql.DB, string, error) {
	driver := cmd.String("db-driver")
	dsn := cmd.String("db-dsn")
	if dsn == "" {
		return nil, "", ErrMissingDSN
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	return db, driver, nil
}

func (r *Runner) migrator(ctx context.Context, cmd *cli.Command) (*data.Migrator, *sql.DB, error) {
	db, driver, err := r.connect(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	m, err := data.NewMigrator(db, driver, r.logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, db, nil
}

// MigrateUp applies all pending migrations.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	m, db, err := r.migrator(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := m.Up(); err != nil {
		return err
	}

	v, err := m.Version()
	if err != nil {
		return err
	}
	r.logger.Info("migrations applied", "version", v)
	return nil
}

// MigrateDown rolls back the most recent migration.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	m, db, err := r.migrator(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := m.Down(); err != nil {
		return err
	}

	v, err := m.Version()
	if err != nil {
		return err
	}
	r.logger.Info("migration rolled back", "version", v)
	return nil
}

// MigrateStatus logs the state of every migration.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	m, db, err := r.migrator(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	return m.Status()
}

// KeyCreate stores a new API key and prints its bearer token.
func (r *Runner) KeyCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.String("name"))
	role := data.Role(cmd.String("role"))

	v := validator.New()
	if data.ValidateAPIKey(v, name, role); !v.Valid() {
		return validationError(v)
	}

	db, _, err := r.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	keys := data.APIKeyModel{DB: db, Cost: r.keyCost}
	key, token, err := keys.Insert(name, role)
	if err != nil {
		return err
	}

	r.logger.Info("api key created", "id", key.ID, "name", key.Name, "role", key.Role)
	fmt.Fprintln(r.output, token)
	return nil
}

// KeyRevoke deletes an API key by id.
func (r *Runner) KeyRevoke(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	db, _, err := r.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	keys := data.APIKeyModel{DB: db, Cost: r.keyCost}
	err = keys.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			return fmt.Errorf("no api key with id %s", id)
		default:
			return err
		}
	}

	r.logger.Info("api key revoked", "id", id)
	return nil
}

// Hash prints the id hash of the id argument.
func (r *Runner) Hash(_ context.Context, cmd *cli.Command) error {
	rawID := cmd.StringArg("id")
	if rawID == "" {
		return errors.New("an id argument is required")
	}

	tag, err := idhash.New(cmd.String("secret")).Hash(rawID)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.output, tag)
	return nil
}

func validationError(v *validator.Validator) error {
	keys := make([]string, 0, len(v.Errors))
	for k := range v.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + v.Errors[k]
	}
	return errors.New(strings.Join(parts, "; "))
}
