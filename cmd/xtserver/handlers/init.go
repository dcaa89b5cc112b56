package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	// initFs is the filesystem the defaults file is written to.
	initFs = afero.NewOsFs()

	// runWizard runs the interactive wizard.
	runWizard = wizard.Run

	// writeDefaults writes the defaults file.
	writeDefaults = wizard.Write
)

// Init runs the configuration wizard and writes the machine defaults file.
func Init(ctx context.Context, outputPath string) error {
	if outputPath == "" {
		outputPath = config.DefaultsFile
	}

	if exists, _ := afero.Exists(initFs, outputPath); exists {
		fmt.Fprintf(stdout, "Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	opts := wizard.BuildOptions(result)
	if err := writeDefaults(initFs, outputPath, opts); err != nil {
		return fmt.Errorf("failed to write defaults: %w", err)
	}

	printInitSuccess(outputPath, result)
	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "xtserver - xTuple server provisioning")
	fmt.Fprintln(stdout, "=====================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard writes the defaults shared by every plan on this machine.")
	fmt.Fprintln(stdout)
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, result *wizard.Result) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Defaults saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File: %s\n", outputPath)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Summary")
	fmt.Fprintln(stdout, "-------")
	fmt.Fprintf(stdout, "  Version:    %s\n", result.Version)
	fmt.Fprintf(stdout, "  Edition:    %s\n", result.Edition)
	fmt.Fprintf(stdout, "  Mode:       %s\n", result.Mode)
	fmt.Fprintf(stdout, "  Demo:       %t\n", result.Demo)
	fmt.Fprintf(stdout, "  Quickstart: %t\n", result.Quickstart)
	if result.PgHost != "" {
		fmt.Fprintf(stdout, "  Postgres:   %s@%s:%s\n", result.PgUser, result.PgHost, result.PgPort)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintln(stdout, "  1. Prepare the machine:")
	fmt.Fprintln(stdout, "     xtserver install --plan setup")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  2. Install an instance:")
	fmt.Fprintln(stdout, "     xtserver install --name acme --maindb ./acme.backup")
	fmt.Fprintln(stdout)
}
