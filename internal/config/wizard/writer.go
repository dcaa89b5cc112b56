package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/imamik/xtserver/internal/config"
)

// BuildOptions converts wizard answers to the defaults tree read by the CLI.
// Empty answers are left out so that module defaults apply.
func BuildOptions(result *Result) *config.Options {
	opts := config.NewOptions()

	set := func(path, value string) {
		if value != "" {
			opts.MustSet(path, value)
		}
	}
	set("xt.version", result.Version)
	set("xt.edition", result.Edition)
	set("xt.mode", result.Mode)
	opts.MustSet("xt.demo", result.Demo)
	opts.MustSet("xt.quickstart", result.Quickstart)

	if result.PgHost != "" {
		set("pg.host", result.PgHost)
		set("pg.port", result.PgPort)
		set("pg.user", result.PgUser)
	}
	set("sys.webmin.bucket", result.Bucket)

	return opts
}

// Write stores opts as YAML with a descriptive header.
func Write(fsys afero.Fs, path string, opts *config.Options) error {
	data, err := yaml.Marshal(opts.Map())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(path))
	sb.WriteString("\n")
	sb.Write(data)

	if err := afero.WriteFile(fsys, path, []byte(sb.String()), 0o640); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// generateHeader creates the YAML file header comment.
func generateHeader(path string) string {
	return fmt.Sprintf(`# xtserver defaults
# Generated by: xtserver init
# Generated at: %s
#
# Values here apply to every plan run on this machine. Flags override them,
# and XTSERVER_<NAMESPACE>_<NAME> environment variables override this file.
#
# Usage:
#   xtserver install --config %s --name acme --maindb ./acme.backup
`, time.Now().Format(time.RFC3339), path)
}
