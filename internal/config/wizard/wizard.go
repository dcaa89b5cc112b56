package wizard

import (
	"context"
	"fmt"

	"github.com/imamik/xtserver/internal/platform/s3"
	"github.com/imamik/xtserver/internal/tasks/database"
)

// Result holds the answers collected by the wizard.
type Result struct {
	Version string
	Edition string
	Mode    string

	Demo       bool
	Quickstart bool

	PgHost string
	PgPort string
	PgUser string

	Bucket string
}

// defaults returns a Result pre-filled with the values used when a question
// is left unchanged.
func defaults() *Result {
	return &Result{
		Edition: database.DefaultEdition,
		Mode:    database.DefaultMode,
		PgPort:  "5432",
		PgUser:  "admin",
		Bucket:  s3.DefaultBucket,
	}
}

// Run runs the interactive wizard. The context is used for cancellation
// support (e.g., Ctrl+C).
func Run(ctx context.Context) (*Result, error) {
	result := defaults()

	if err := runInstallationGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("installation: %w", err)
	}

	if err := runDatabasesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("databases: %w", err)
	}

	if err := runPostgresGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := runAssetsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}

	return result, nil
}
