package handlers

import (
	"context"
	"fmt"
)

// History prints the most recent plan runs.
func History(ctx context.Context, g Globals, limit int) error {
	store, err := openHistory(g.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	printRuns(stdout, runs, isInteractive())
	return nil
}
