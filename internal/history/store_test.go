package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/xtserver/internal/provisioning"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history", "xtserver.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestStore_SuccessfulRun(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	run, err := s.Start(ctx, "install", "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "running", run.Status())

	require.NoError(t, s.Finish(ctx, run, nil))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "install", runs[0].Plan)
	assert.Equal(t, "acme", runs[0].Name)
	assert.Equal(t, "ok", runs[0].Status())
	assert.True(t, runs[0].Finished.After(runs[0].Started))
	assert.Empty(t, runs[0].Error)
}

func TestStore_FailedRunRecordsPhaseAndTask(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	run, err := s.Start(ctx, "install", "acme")
	require.NoError(t, err)

	runErr := fmt.Errorf("plan install failed: %w", &provisioning.PhaseError{
		Phase: provisioning.PhaseExecuteTask,
		Task:  "xt.database",
		Err:   errors.New("core build of acme_live failed with exit code 1"),
	})
	require.NoError(t, s.Finish(ctx, run, runErr))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status())
	assert.Equal(t, "executeTask", runs[0].Phase)
	assert.Equal(t, "xt.database", runs[0].Task)
	assert.Contains(t, runs[0].Error, "exit code 1")
}

func TestStore_ListNewestFirstWithLimit(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	for _, plan := range []string{"setup", "install", "uninstall"} {
		run, err := s.Start(ctx, plan, "")
		require.NoError(t, err)
		require.NoError(t, s.Finish(ctx, run, nil))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "uninstall", runs[0].Plan)
	assert.Equal(t, "install", runs[1].Plan)
}

func TestStore_UnfinishedRun(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	_, err := s.Start(ctx, "setup", "")
	require.NoError(t, err)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Success)
	assert.True(t, runs[0].Finished.IsZero())
}

func TestStore_FinishUnknownRun(t *testing.T) {
	t.Parallel()
	s := openStore(t)

	err := s.Finish(context.Background(), &Run{ID: "missing"}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_ReopenKeepsRuns(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "xtserver.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.Start(ctx, "install", "acme")
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, run, nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
