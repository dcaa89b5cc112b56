// Package main is the entry point for the xtserver CLI.
//
// xtserver provisions xTuple ERP servers: it prepares the machine with
// accounts, sudoers policies and the webmin console, and builds the
// databases of each installation.
//
// Commands: install, uninstall, doctor, history, init.
//
// For detailed usage information, run:
//
//	xtserver --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/xtserver/cmd/xtserver/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
