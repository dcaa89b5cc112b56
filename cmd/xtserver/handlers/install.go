package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/history"
	"github.com/imamik/xtserver/internal/metrics"
	"github.com/imamik/xtserver/internal/plans"
	"github.com/imamik/xtserver/internal/provisioning"
)

const (
	argumentsFile = "install-arguments.yaml"
	resultsFile   = "install-results.yaml"
)

// Install runs the named plan. flags holds the options given on the
// command line; they override the defaults file.
func Install(ctx context.Context, g Globals, plan string, flags *config.Options) error {
	return execute(ctx, g, plan, flags, func(pctx *provisioning.Context, tasks []provisioning.Task) error {
		return provisioning.NewSequencer(tasks...).Run(pctx)
	})
}

// Uninstall runs the uninstall hook of every module in reverse order.
func Uninstall(ctx context.Context, g Globals, flags *config.Options) error {
	return execute(ctx, g, plans.Uninstall, flags, func(pctx *provisioning.Context, tasks []provisioning.Task) error {
		return provisioning.NewSequencer(tasks...).Uninstall(pctx)
	})
}

type runFunc func(pctx *provisioning.Context, tasks []provisioning.Task) error

func execute(ctx context.Context, g Globals, plan string, flags *config.Options, run runFunc) error {
	log := newLogger(g.Verbosity).WithValues("plan", plan)

	opts, err := buildOptions(g.ConfigPath, plan, flags)
	if err != nil {
		return err
	}
	arguments := config.FromMap(opts.Map())

	env, err := openEnvironment(ctx, g, log)
	if err != nil {
		return fmt.Errorf("failed to connect to target: %w", err)
	}
	defer func() { _ = env.Close() }()

	fetcher, err := newFetcher(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to create asset store client: %w", err)
	}

	deps := plans.Deps{Fs: env.Fs, Fetcher: fetcher, Version: g.Version}
	tasks := plans.Lookup(plan, deps)
	if plan == plans.Uninstall {
		tasks = plans.Uninstallable(deps)
	}

	store, rec := startRun(ctx, g, log, plan, opts.String("xt.name"))
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	pctx := provisioning.NewContext(ctx, opts, env.Executor, env.Fs, log)
	runErr := run(pctx, tasks)

	if store != nil && rec != nil {
		if err := store.Finish(ctx, rec, runErr); err != nil {
			log.Info("failed to record run outcome", "level", "warn", "error", err.Error())
		}
	}

	finished := time.Now()
	metrics.RecordRun(plan, runErr == nil, finished)
	if g.MetricsFile != "" {
		if err := writeMetrics(g.MetricsFile); err != nil {
			log.Info("failed to write metrics", "level", "warn", "error", err.Error())
		}
	}

	if runErr == nil && plan != plans.Uninstall {
		persist(pctx, arguments, opts)
	}

	printSummary(stdout, summary{
		Plan:   plan,
		Target: env.Target,
		Tasks:  taskNames(tasks),
		Opts:   opts,
		Err:    runErr,
	}, isInteractive())

	if runErr != nil {
		return fmt.Errorf("plan %s failed: %w", plan, runErr)
	}
	return nil
}

// buildOptions layers command-line flags over the defaults file and
// records the plan name.
func buildOptions(configPath, plan string, flags *config.Options) (*config.Options, error) {
	opts, err := loadDefaults(configPath)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		if err := config.Overlay(opts, flags); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if err := opts.Set(config.PlanNameKey, plan); err != nil {
		return nil, err
	}
	return opts, nil
}

// startRun opens the history store and records the run. History is
// informational; failures are logged and the plan runs regardless.
func startRun(ctx context.Context, g Globals, log logr.Logger, plan, name string) (runStore, *history.Run) {
	if g.HistoryPath == "" {
		return nil, nil
	}
	store, err := openHistory(g.HistoryPath)
	if err != nil {
		log.Info("run history unavailable", "level", "warn", "error", err.Error())
		return nil, nil
	}
	run, err := store.Start(ctx, plan, name)
	if err != nil {
		log.Info("failed to record run start", "level", "warn", "error", err.Error())
		return store, nil
	}
	return store, run
}

// persist stores the arguments and the resulting option tree next to the
// installation's configuration. Secrets are redacted.
func persist(ctx *provisioning.Context, arguments, results *config.Options) {
	dir := results.String("xt.configdir")
	if dir == "" {
		return
	}
	for name, opts := range map[string]*config.Options{argumentsFile: arguments, resultsFile: results} {
		path := filepath.Join(dir, name)
		if err := config.SaveFile(ctx.Fs, path, opts); err != nil {
			ctx.Logger.Info("failed to persist options", "level", "warn", "file", path, "error", err.Error())
			continue
		}
		ctx.Logger.V(1).Info("persisted options", "file", path)
	}
}

func taskNames(tasks []provisioning.Task) []string {
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, t.Name())
	}
	return names
}
