package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/history"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/runner"
	"github.com/imamik/xtserver/internal/tasks/database"
	"github.com/imamik/xtserver/internal/tasks/syspolicy"
	"github.com/imamik/xtserver/internal/util/prerequisites"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// plain returns s unchanged; it stands in for a style when output is not
// a terminal.
func plain(s ...string) string { return strings.Join(s, " ") }

type render func(...string) string

type palette struct {
	title, section, dim, ok, fail render
}

func newPalette(styled bool) palette {
	if !styled {
		return palette{plain, plain, plain, plain, plain}
	}
	return palette{titleStyle.Render, sectionStyle.Render, dimStyle.Render, okStyle.Render, failStyle.Render}
}

type summary struct {
	Plan   string
	Target string
	Tasks  []string
	Opts   *config.Options
	Err    error
}

// printSummary writes the outcome of a plan.
func printSummary(w io.Writer, s summary, styled bool) {
	p := newPalette(styled)
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(p.title(fmt.Sprintf("  xtserver %s on %s", s.Plan, s.Target)))
	b.WriteString("\n")
	b.WriteString(p.dim("  " + strings.Repeat("─", 35)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("    Modules:   %s\n", strings.Join(s.Tasks, ", ")))

	if name := s.Opts.String("xt.name"); name != "" {
		b.WriteString(fmt.Sprintf("    Name:      %s\n", name))
	}
	if records := database.Scheduled(s.Opts); len(records) > 0 {
		var names []string
		for _, r := range records {
			names = append(names, r.DBName)
		}
		b.WriteString(fmt.Sprintf("    Databases: %s\n", strings.Join(names, ", ")))
	}
	if st := s.Opts.String(syspolicy.StateKey); st != "" {
		b.WriteString(fmt.Sprintf("    Policy:    %s\n", st))
	}

	b.WriteString("\n")
	if s.Err == nil {
		b.WriteString(p.ok("  ✓ completed"))
		b.WriteString("\n")
		writeCredentials(&b, p, s.Opts)
	} else {
		b.WriteString(p.fail("  ✗ failed"))
		b.WriteString("\n")
		var pe *provisioning.PhaseError
		if errors.As(s.Err, &pe) {
			b.WriteString(fmt.Sprintf("    Phase:     %s\n", pe.Phase))
			b.WriteString(fmt.Sprintf("    Module:    %s\n", pe.Task))
		}
		var bf *runner.BuildFailure
		if errors.As(s.Err, &bf) && bf.Output() != "" {
			b.WriteString("\n")
			b.WriteString(p.section("  Output"))
			b.WriteString("\n")
			b.WriteString(bf.Output())
			if !strings.HasSuffix(bf.Output(), "\n") {
				b.WriteString("\n")
			}
		}
	}

	_, _ = io.WriteString(w, b.String())
}

// writeCredentials prints passwords generated during the run. They are
// shown once and never persisted.
func writeCredentials(b *strings.Builder, p palette, opts *config.Options) {
	creds := []struct{ label, user, key string }{
		{"remote user", "xtremote", syspolicy.RemotePasswordKey},
		{"installation user", opts.String("xt.name"), syspolicy.UserPasswordKey},
	}

	var lines []string
	for _, c := range creds {
		if pw := opts.String(c.key); pw != "" {
			lines = append(lines, fmt.Sprintf("    %-18s %s / %s\n", c.label+":", c.user, pw))
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(p.section("  Generated Credentials"))
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString(l)
	}
	b.WriteString(p.dim("  Store these now; they are not saved."))
	b.WriteString("\n")
}

// printChecks writes the result of a prerequisites check.
func printChecks(w io.Writer, target, plan string, results *prerequisites.CheckResults, styled bool) {
	p := newPalette(styled)
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(p.title(fmt.Sprintf("  xtserver doctor: %s plan on %s", plan, target)))
	b.WriteString("\n\n")

	for _, r := range results.Results {
		switch {
		case r.Found:
			b.WriteString(fmt.Sprintf("  %s %-10s %s\n", p.ok("✓"), r.Tool.Name, p.dim(r.Path)))
		case r.Tool.Required:
			b.WriteString(fmt.Sprintf("  %s %-10s %s\n", p.fail("✗"), r.Tool.Name, "apt install "+r.Tool.Package))
		default:
			b.WriteString(fmt.Sprintf("  %s %-10s %s\n", p.dim("-"), r.Tool.Name, p.dim("optional: "+r.Tool.Description)))
		}
	}

	_, _ = io.WriteString(w, b.String())
}

// printRuns writes the run history as a table.
func printRuns(w io.Writer, runs []history.Run, styled bool) {
	if len(runs) == 0 {
		_, _ = io.WriteString(w, "No runs recorded.\n")
		return
	}

	p := newPalette(styled)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "PLAN", "NAME", "STATUS", "FAILED AT")

	for _, r := range runs {
		status := r.Status()
		switch status {
		case "ok":
			status = p.ok(status)
		case "failed":
			status = p.fail(status)
		}
		failedAt := ""
		if r.Phase != "" {
			failedAt = r.Phase + " " + r.Task
		}
		t.Row(r.Started.Local().Format("2006-01-02 15:04:05"), r.Plan, r.Name, status, failedAt)
	}

	_, _ = io.WriteString(w, t.String()+"\n")
}
