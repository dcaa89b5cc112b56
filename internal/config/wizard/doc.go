// Package wizard provides the interactive `xtserver init` wizard.
//
// It asks for the machine-wide defaults that every plan on the host shares
// (version, edition, Postgres connection, asset bucket) using
// charmbracelet/huh forms. BuildOptions converts the answers to an options
// tree and Write stores it as the CLI defaults file.
package wizard
