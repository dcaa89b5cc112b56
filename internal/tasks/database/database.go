// Package database implements the xt.database module, which schedules and
// builds the application databases of an installation.
//
// Every build step is fail-fast: a non-zero exit stops the pipeline and the
// step's captured output is returned verbatim in a *runner.BuildFailure.
package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/platform/postgres"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/runner"
)

// Name is the module identifier.
const Name = "xt.database"

// ListKey is where the scheduled records are stored in the option tree.
const ListKey = "xt.database.list"

const workspaceDir = "scripts/lib/build"

const (
	buildApp = "cd {{.xt.coredir}} && ./scripts/build_app.js -c {{.xt.configdir}}/config.js -d {{.db.dbname}}"

	sourceBuildCommand    = buildApp + " -i -s {{.db.filename}}"
	coreBuildCommand      = buildApp + " -i {{.db.flag}} {{.db.filename}}"
	extensionBuildCommand = buildApp + " -e {{.xt.extensionsdir}}/{{.ext}}"
)

// Catalog lists the databases present on a Postgres cluster.
type Catalog interface {
	Missing(ctx context.Context, want []string) ([]string, error)
	Close(ctx context.Context) error
}

// CatalogOpener connects to the cluster of an installation.
type CatalogOpener func(ctx context.Context, cfg postgres.Config) (Catalog, error)

// OpenCatalog is the CatalogOpener backed by pgx.
func OpenCatalog(ctx context.Context, cfg postgres.Config) (Catalog, error) {
	c, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Task is the xt.database module.
type Task struct {
	fs          afero.Fs
	openCatalog CatalogOpener
}

// New returns the module. fs is used to validate the main database path
// before any hook runs.
func New(fs afero.Fs, open CatalogOpener) *Task {
	if open == nil {
		open = OpenCatalog
	}
	return &Task{fs: fs, openCatalog: open}
}

// Name implements provisioning.Task.
func (t *Task) Name() string { return Name }

// Options implements provisioning.OptionDeclarer.
func (t *Task) Options() config.Schema {
	return config.Schema{
		{Name: "version", Namespace: "xt", Required: true, Kind: config.KindString, Description: "xTuple version"},
		{Name: "name", Namespace: "xt", Required: true, Kind: config.KindString, Description: "Name of the installation", Validate: validateName},
		{Name: "maindb", Namespace: "xt", Kind: config.KindString, Description: "Path to primary database .backup/.sql file to use in production", Validate: t.validateMainDB},
		{Name: "edition", Namespace: "xt", Kind: config.KindString, Description: "The xTuple edition to install", Default: DefaultEdition, Validate: validateEdition},
		{Name: "demo", Namespace: "xt", Kind: config.KindBool, Description: "Additionally install the demo database", Default: false},
		{Name: "quickstart", Namespace: "xt", Kind: config.KindBool, Description: "Additionally install the quickstart database", Default: false},
		{Name: "adminpw", Namespace: "xt", Kind: config.KindString, Description: "Admin password for new databases, recorded for later tooling and never passed to the build"},
		{Name: "mode", Namespace: "xt", Kind: config.KindString, Description: "Installation mode, used as the main database suffix", Default: DefaultMode, Validate: validateMode},
	}
}

func (t *Task) validateMainDB(v string) error {
	resolved, err := filepath.Abs(v)
	if err != nil {
		return err
	}
	ok, err := afero.Exists(t.fs, resolved)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid path %s", v)
	}
	return nil
}

// BeforeInstall schedules the databases to build. The main database path
// is checked again here against the resolved path.
func (t *Task) BeforeInstall(ctx *provisioning.Context) error {
	records, err := Schedule(ctx.Options, func(name string) (bool, error) {
		return afero.Exists(ctx.Fs, name)
	})
	if err != nil {
		return err
	}

	if _, err := ctx.Options.SetDefault("xt.extensionsdir",
		filepath.Join(ctx.Options.String("xt.userhome"), "private-extensions", "source")); err != nil {
		return err
	}

	for _, r := range records {
		ctx.Logger.Info("database scheduled", "dbname", r.DBName, "file", r.Filename, "foundation", r.Foundation)
	}
	return ctx.Options.Set(ListKey, records)
}

// Scheduled returns the records stored by BeforeInstall.
func Scheduled(opts *config.Options) []Record {
	v, ok := opts.Get(ListKey)
	if !ok {
		return nil
	}
	records, _ := v.([]Record)
	return records
}

// ExecuteTask builds the foundation databases, then the main databases.
func (t *Task) ExecuteTask(ctx *provisioning.Context) error {
	records := Scheduled(ctx.Options)
	if len(records) == 0 {
		return fmt.Errorf("no databases are scheduled to be installed")
	}

	if err := t.buildFoundationDatabases(ctx, records); err != nil {
		return err
	}
	return t.buildMainDatabases(ctx, records)
}

// buildFoundationDatabases builds quickstart, then demo, each only when
// scheduled.
func (t *Task) buildFoundationDatabases(ctx *provisioning.Context, records []Record) error {
	for _, dbname := range []string{QuickstartDB, DemoDB} {
		r, ok := find(records, dbname)
		if !ok {
			continue
		}
		if err := t.clearWorkspace(ctx); err != nil {
			return err
		}

		cmd, err := render(sourceBuildCommand, ctx.Options, r, "")
		if err != nil {
			return err
		}
		if err := runner.FailFast(ctx, ctx.Executor, ctx.Logger, []runner.Step{
			{Name: "foundation build of " + r.DBName, Command: cmd},
		}); err != nil {
			return err
		}
	}
	return nil
}

// buildMainDatabases runs the core build of each main database followed by
// the extensions of the configured edition in order.
func (t *Task) buildMainDatabases(ctx *provisioning.Context, records []Record) error {
	edition := ctx.Options.String("xt.edition")
	if edition == "" {
		edition = DefaultEdition
	}
	extensions, ok := Extensions(edition)
	if !ok {
		return &config.ValidationError{Field: "xt.edition", Message: fmt.Sprintf("unknown edition %q", edition)}
	}

	for _, r := range records {
		if r.Foundation {
			continue
		}
		if err := t.clearWorkspace(ctx); err != nil {
			return err
		}

		core, err := render(coreBuildCommand, ctx.Options, r, "")
		if err != nil {
			return err
		}
		steps := []runner.Step{{Name: "core build of " + r.DBName, Command: core}}

		for _, ext := range extensions {
			cmd, err := render(extensionBuildCommand, ctx.Options, r, ext)
			if err != nil {
				return err
			}
			steps = append(steps, runner.Step{Name: fmt.Sprintf("%s extension build of %s", ext, r.DBName), Command: cmd})
		}

		if err := runner.FailFast(ctx, ctx.Executor, ctx.Logger, steps); err != nil {
			return err
		}
	}
	return nil
}

// clearWorkspace removes intermediate files left by an earlier build.
func (t *Task) clearWorkspace(ctx *provisioning.Context) error {
	dir := filepath.Join(ctx.Options.String("xt.usersrc"), workspaceDir)
	if err := ctx.Fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear build workspace %s: %w", dir, err)
	}
	return nil
}

// AfterTask confirms that every scheduled database exists when a Postgres
// host is configured.
func (t *Task) AfterTask(ctx *provisioning.Context) error {
	host := ctx.Options.String("pg.host")
	if host == "" {
		ctx.Logger.V(1).Info("pg.host not set, skipping catalog check")
		return nil
	}

	cfg := postgres.Config{
		Host:     host,
		User:     ctx.Options.String("pg.user"),
		Password: ctx.Options.String("pg.password"),
	}
	if p := ctx.Options.String("pg.port"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return &config.ValidationError{Field: "pg.port", Message: "must be a number"}
		}
		cfg.Port = port
	}

	catalog, err := t.openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close(ctx) }()

	var want []string
	for _, r := range Scheduled(ctx.Options) {
		want = append(want, r.DBName)
	}

	missing, err := catalog.Missing(ctx, want)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("databases missing after build: %s", strings.Join(missing, ", "))
	}
	ctx.Logger.Info("databases verified", "count", len(want), "host", host)
	return nil
}

// Uninstall keeps every database.
func (t *Task) Uninstall(ctx *provisioning.Context) error {
	ctx.Logger.Info("databases are retained", "name", ctx.Options.String("xt.name"))
	return nil
}

func find(records []Record, dbname string) (Record, bool) {
	for _, r := range records {
		if r.DBName == dbname {
			return r, true
		}
	}
	return Record{}, false
}

func render(tmpl string, opts *config.Options, r Record, ext string) (string, error) {
	flag := "-s"
	if strings.HasSuffix(r.Filename, ".backup") {
		flag = "-b"
	}
	return config.RenderWith(tmpl, opts, map[string]any{
		"db": map[string]any{
			"dbname":   r.DBName,
			"filename": r.Filename,
			"flag":     flag,
		},
		"ext": ext,
	})
}

var (
	_ provisioning.BeforeInstaller = (*Task)(nil)
	_ provisioning.TaskExecutor    = (*Task)(nil)
	_ provisioning.AfterTasker     = (*Task)(nil)
	_ provisioning.Uninstaller     = (*Task)(nil)
)
