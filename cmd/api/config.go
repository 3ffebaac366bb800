package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hafizmfadli/go-catalog/internal/data"
)

// parseConfig builds the config from, in increasing precedence: built-in
// defaults, environment variables, the TOML file named by -config, and
// command-line flags.
func parseConfig(args []string) (config, error) {
	var cfg config
	var configFile string

	fs := flag.NewFlagSet("api", flag.ContinueOnError)

	fs.StringVar(&configFile, "config", "", "Path to a TOML configuration file")

	fs.IntVar(&cfg.port, "port", envInt("PORT", 4000), "API server port")
	fs.StringVar(&cfg.env, "env", "development", "Environment (development|staging|production)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Minimum log level (debug|info|error|fatal|off)")

	fs.StringVar(&cfg.db.driver, "db-driver", envString("CATALOG_DB_DRIVER", data.DriverPostgres), "Database driver (postgres|sqlite3)")
	fs.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("CATALOG_DB_DSN"), "Database DSN")
	fs.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "Database max open connections")
	fs.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 25, "Database max idle connections")
	fs.StringVar(&cfg.db.maxIdleTime, "db-max-idle-time", "15m", "Database max connection idle time")
	fs.BoolVar(&cfg.db.automigrate, "db-automigrate", false, "Apply pending migrations at startup")

	fs.Float64Var(&cfg.limiter.rps, "limiter-rps", 2, "Rate limiter maximum requests per second")
	fs.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")
	fs.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")

	fs.StringVar(&cfg.smtp.host, "smtp-host", envString("SMTP_HOST", "127.0.0.1"), "SMTP host")
	fs.IntVar(&cfg.smtp.port, "smtp-port", envInt("SMTP_PORT", 1025), "SMTP port")
	fs.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	fs.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	fs.StringVar(&cfg.smtp.sender, "smtp-sender", envString("SMTP_SENDER", "Catalog <no-reply@catalog.local>"), "SMTP sender")
	fs.StringVar(&cfg.notify.recipient, "notify-recipient", os.Getenv("NOTIFY_RECIPIENT"), "Email address notified of new entries")

	cfg.cors.trustedOrigins = strings.Fields(os.Getenv("CORS_TRUSTED_ORIGINS"))
	fs.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		cfg.cors.trustedOrigins = strings.Fields(val)
		return nil
	})

	fs.StringVar(&cfg.cloudinary.cloudName, "cloudinary-cloud-name", os.Getenv("CLOUDINARY_CLOUD_NAME"), "Cloudinary cloud name")
	fs.StringVar(&cfg.cloudinary.apiKey, "cloudinary-api-key", os.Getenv("CLOUDINARY_API_KEY"), "Cloudinary API key")
	fs.StringVar(&cfg.cloudinary.apiSecret, "cloudinary-api-secret", os.Getenv("CLOUDINARY_API_SECRET"), "Cloudinary API secret")

	fs.StringVar(&cfg.idhash.secret, "idhash-secret", os.Getenv("ID_HASH_SECRET"), "Secret keying the record id hash")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if configFile != "" {
		if err := applyConfigFile(fs, configFile); err != nil {
			return config{}, err
		}
	}

	return cfg, nil
}

// applyConfigFile sets every flag named in the TOML file that was not given
// on the command line. Tables flatten into dash-joined flag names, so
// [db] dsn = "..." sets -db-dsn.
func applyConfigFile(fs *flag.FlagSet, path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	values := make(map[string]string)
	flatten("", raw, values)

	// Sorted so errors are reported deterministically.
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "config" {
			return fmt.Errorf("config file %s: nested config is not supported", path)
		}
		if fs.Lookup(name) == nil {
			return fmt.Errorf("config file %s: unknown setting %q", path, name)
		}
		if explicit[name] {
			continue
		}
		if err := fs.Set(name, values[name]); err != nil {
			return fmt.Errorf("config file %s: invalid value for %q: %w", path, name, err)
		}
	}

	return nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ReplaceAll(k, "_", "-")
		if prefix != "" {
			key = prefix + "-" + key
		}

		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, len(val))
			for i, p := range val {
				parts[i] = fmt.Sprint(p)
			}
			out[key] = strings.Join(parts, " ")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
