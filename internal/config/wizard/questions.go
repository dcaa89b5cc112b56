package wizard

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/imamik/xtserver/internal/tasks/database"
)

var (
	versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	modeRegex    = regexp.MustCompile(`^[a-z]+$`)
)

// runInstallationGroup prompts for version, edition and mode.
func runInstallationGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("xTuple Version").
				Description("Version installed by default, e.g. 4.11.0").
				Placeholder("4.11.0").
				Value(&result.Version).
				Validate(validateVersion),
			huh.NewSelect[string]().
				Title("Edition").
				Description("Extensions built into the main database").
				Options(EditionOptions()...).
				Value(&result.Edition),
			huh.NewInput().
				Title("Mode").
				Description("Suffix of the main database name, lower-case letters only").
				Value(&result.Mode).
				Validate(validateMode),
		).Title("Installation"),
	).RunWithContext(ctx)
}

// runDatabasesGroup prompts for the foundation databases.
func runDatabasesGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Build Demo Database?").
				Description("Builds " + database.DemoDB + " alongside every installation").
				Value(&result.Demo),
			huh.NewConfirm().
				Title("Build Quickstart Database?").
				Description("Builds " + database.QuickstartDB + " alongside every installation").
				Value(&result.Quickstart),
		).Title("Foundation Databases"),
	).RunWithContext(ctx)
}

// runPostgresGroup prompts for the cluster used to verify builds.
func runPostgresGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Postgres Host (Optional)").
				Description("Databases are verified on this host after a build. Leave empty to skip.").
				Placeholder("localhost").
				Value(&result.PgHost),
			huh.NewInput().
				Title("Postgres Port").
				Value(&result.PgPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Postgres User").
				Value(&result.PgUser),
		).Title("Postgres"),
	).RunWithContext(ctx)
}

// runAssetsGroup prompts for the bucket holding installer packages.
func runAssetsGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Asset Bucket").
				Description("S3 bucket holding the webmin package").
				Value(&result.Bucket),
		).Title("Assets"),
	).RunWithContext(ctx)
}

// EditionOptions returns the known editions as select options.
func EditionOptions() []huh.Option[string] {
	editions := database.Editions()
	options := make([]huh.Option[string], len(editions))
	for i, e := range editions {
		options[i] = huh.NewOption(e, e)
	}
	return options
}

func validateVersion(s string) error {
	if !versionRegex.MatchString(s) {
		return fmt.Errorf("version must look like 4.11.0")
	}
	return nil
}

func validateMode(s string) error {
	if !modeRegex.MatchString(s) {
		return fmt.Errorf("mode must be lower-case letters only")
	}
	return nil
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
