// Package prerequisites checks that the machine being provisioned has the
// system tools the task modules run.
package prerequisites

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/xtserver/internal/platform/shell"
)

// Tool represents a system tool that a plan may run.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// Package is the Debian package that provides the tool.
	Package string
}

// PolicyTools returns the tools the sys.policy module runs.
func PolicyTools() []Tool {
	return []Tool{
		{Name: "addgroup", Required: true, Description: "Creates the xtuser and xtadmin groups", Package: "adduser"},
		{Name: "useradd", Required: true, Description: "Creates installation accounts", Package: "passwd"},
		{Name: "usermod", Required: true, Description: "Adds accounts to groups", Package: "passwd"},
		{Name: "chpasswd", Required: true, Description: "Sets generated passwords", Package: "passwd"},
		{Name: "chsh", Required: true, Description: "Sets login shells", Package: "passwd"},
		{Name: "visudo", Required: true, Description: "Validates sudoers policies", Package: "sudo"},
	}
}

// WebminTools returns the additional tools the setup plan runs.
func WebminTools() []Tool {
	return []Tool{
		{Name: "dpkg", Required: true, Description: "Installs the webmin package", Package: "dpkg"},
		{Name: "openssl", Required: true, Description: "Generates the console certificate", Package: "openssl"},
		{Name: "service", Required: true, Description: "Reloads nginx and restarts webmin", Package: "init-system-helpers"},
	}
}

// DatabaseTools returns the tools used by database builds.
func DatabaseTools() []Tool {
	return []Tool{
		{Name: "node", Required: true, Description: "Runs the database build scripts", Package: "nodejs"},
		{Name: "psql", Required: false, Description: "Useful for inspecting built databases", Package: "postgresql-client"},
	}
}

// ForPlan returns the tools needed by the named plan.
func ForPlan(plan string) []Tool {
	tools := PolicyTools()
	if plan == "setup" {
		return append(tools, WebminTools()...)
	}
	return append(tools, DatabaseTools()...)
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (apt install %s)", tool.Name, tool.Package))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check looks each tool up with `command -v` through ex, so the check
// runs wherever the plan's commands run.
func Check(ctx context.Context, ex shell.Executor, tools []Tool) (*CheckResults, error) {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		res, err := ex.Run(ctx, "command -v "+tool.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", tool.Name, err)
		}
		if res.Success() && strings.TrimSpace(res.Stdout) != "" {
			result.Found = true
			result.Path = strings.TrimSpace(res.Stdout)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results, nil
}
