// catalogctl is the operator tool for the catalog service: schema migrations,
// API key management and id hashing.
package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	logger := newLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatalf("loading .env: %v", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.app().Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("catalogctl: %v", err)
	}
}

// newLogger creates a [log.Logger] writing to w, with timestamps enabled.
//
// The writer defaults to [os.Stderr]
func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true, Prefix: "catalogctl"})
}
