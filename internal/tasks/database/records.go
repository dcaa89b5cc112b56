package database

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/imamik/xtserver/internal/config"
)

// Foundation database names.
const (
	DemoDB       = "xtuple_demo"
	QuickstartDB = "xtuple_quickstart"
)

const (
	foundationDir  = "foundation-database"
	demoSource     = "postbooks_demo_data.sql"
	quickstartFile = "quickstart_data.sql"

	// DefaultEdition is installed when no edition is given.
	DefaultEdition = "core"
	// DefaultMode names the main database suffix when no mode is given.
	DefaultMode = "live"
)

// Record is one database scheduled for building.
type Record struct {
	DBName     string `yaml:"dbname"`
	Filename   string `yaml:"filename"`
	Foundation bool   `yaml:"foundation"`
}

// editions maps an edition to the extensions built into the main database
// after its core build, in build order.
var editions = map[string][]string{
	"core":          {},
	"manufacturing": {"inventory", "manufacturing"},
	"distribution":  {"inventory", "distribution"},
	"enterprise":    {"inventory", "manufacturing", "distribution"},
}

// Extensions returns the ordered extensions of edition.
func Extensions(edition string) ([]string, bool) {
	exts, ok := editions[edition]
	if !ok {
		return nil, false
	}
	return append([]string(nil), exts...), true
}

// Editions returns the known edition names, sorted.
func Editions() []string {
	names := make([]string, 0, len(editions))
	for name := range editions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameSuffix returns the suffix appended to the installation name to form
// the main database name, e.g. "_live".
func NameSuffix(opts *config.Options) string {
	mode := opts.String("xt.mode")
	if mode == "" {
		mode = DefaultMode
	}
	return "_" + mode
}

// Schedule builds the list of databases requested by opts. Foundation
// records come first in demo, quickstart order; the main database, if any,
// is last. exists reports whether a file is present.
func Schedule(opts *config.Options, exists func(string) (bool, error)) ([]Record, error) {
	foundation := filepath.Join(opts.String("xt.usersrc"), foundationDir)
	var records []Record

	if opts.Bool("xt.demo") {
		records = append(records, Record{
			DBName:     DemoDB,
			Filename:   filepath.Join(foundation, demoSource),
			Foundation: true,
		})
	}
	if opts.Bool("xt.quickstart") {
		records = append(records, Record{
			DBName:     QuickstartDB,
			Filename:   filepath.Join(foundation, quickstartFile),
			Foundation: true,
		})
	}

	if maindb := opts.String("xt.maindb"); maindb != "" {
		resolved, err := filepath.Abs(maindb)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", maindb, err)
		}
		ok, err := exists(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", resolved, err)
		}
		if !ok {
			return nil, &config.ValidationError{
				Field:   "xt.maindb",
				Message: "database file not found; expected to find " + resolved,
			}
		}
		records = append(records, Record{
			DBName:     opts.String("xt.name") + NameSuffix(opts),
			Filename:   resolved,
			Foundation: false,
		})
	}

	if len(records) == 0 {
		return nil, &config.ValidationError{
			Message: "no databases scheduled: set --demo, --quickstart or --maindb",
		}
	}
	return records, nil
}

var (
	digits      = regexp.MustCompile(`\d`)
	accountName = regexp.MustCompile(`^[a-z][a-z_-]*$`)
	modeName    = regexp.MustCompile(`^[a-z]+$`)
)

// validateName accepts names that are safe as an account name and inside
// shell commands.
func validateName(v string) error {
	if digits.MatchString(v) {
		return fmt.Errorf("cannot contain numbers")
	}
	if !accountName.MatchString(v) {
		return fmt.Errorf("must start with a lower-case letter and contain only lower-case letters, '_' or '-', got %q", v)
	}
	return nil
}

func validateEdition(v string) error {
	if _, ok := editions[v]; !ok {
		return fmt.Errorf("unknown edition %q, expected one of %s", v, strings.Join(Editions(), ", "))
	}
	return nil
}

func validateMode(v string) error {
	if !modeName.MatchString(v) {
		return fmt.Errorf("must be lower-case letters only, got %q", v)
	}
	return nil
}
