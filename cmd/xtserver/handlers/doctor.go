package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/xtserver/internal/util/prerequisites"
)

// Doctor checks that the target has the tools the named plan runs.
func Doctor(ctx context.Context, g Globals, plan string) error {
	log := newLogger(g.Verbosity)

	env, err := openEnvironment(ctx, g, log)
	if err != nil {
		return fmt.Errorf("failed to connect to target: %w", err)
	}
	defer func() { _ = env.Close() }()

	results, err := prerequisites.Check(ctx, env.Executor, prerequisites.ForPlan(plan))
	if err != nil {
		return err
	}

	printChecks(stdout, env.Target, plan, results, isInteractive())
	return results.Error()
}
