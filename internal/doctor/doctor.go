// Package doctor checks stored protocol registrations for problems.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/hermes/internal/registration"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid     bool    `json:"valid"`
	Protocols int     `json:"protocols"`
	Errors    []Issue `json:"errors,omitempty"`
	Warnings  []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Protocol string `json:"protocol,omitempty"`
	Host     string `json:"host,omitempty"`
}

// Doctor validates registrations read through a Manager.
type Doctor struct {
	manager       *registration.Manager
	exePath       string
	debugArgument string
	lookPath      func(string) (string, error)
}

// New creates a Doctor. exePath is this executable; open commands pointing
// anywhere else are flagged.
func New(m *registration.Manager, exePath, debugArgument string) *Doctor {
	return &Doctor{
		manager:       m,
		exePath:       exePath,
		debugArgument: debugArgument,
		lookPath:      exec.LookPath,
	}
}

// Validate runs all checks and returns a result. The error is non-nil only
// when registrations could not be read.
func (d *Doctor) Validate(ctx context.Context) (*Result, error) {
	protocols, err := d.manager.Protocols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	r := &Result{Protocols: len(protocols)}
	for _, p := range protocols {
		d.validateRecord(r, p)
		for _, h := range p.Hosts {
			d.validateHost(r, p.Scheme, h)
		}
	}
	r.Valid = len(r.Errors) == 0
	return r, nil
}

func (d *Doctor) addError(r *Result, category, protocol, host, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Protocol: protocol, Host: host, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, protocol, host, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Protocol: protocol, Host: host, Message: msg})
}

// validateRecord checks the protocol record that the OS launches.
func (d *Doctor) validateRecord(r *Result, p registration.Protocol) {
	if !p.Registered {
		if len(p.Hosts) > 0 {
			d.addError(r, "protocol", p.Scheme, "",
				fmt.Sprintf("%d host(s) registered but the protocol record is missing; run register %s", len(p.Hosts), p.Scheme))
		}
		return
	}
	if len(p.Hosts) == 0 {
		d.addWarning(r, "protocol", p.Scheme, "", "no hosts registered; every URL will fail lookup")
	}
	if p.OpenCommand == "" {
		d.addError(r, "protocol", p.Scheme, "", "open command is missing")
		return
	}
	if d.exePath == "" {
		return
	}
	want := []string{
		registration.OpenCommand(d.exePath, ""),
		registration.OpenCommand(d.exePath, d.debugArgument),
	}
	if !slices.Contains(want, p.OpenCommand) {
		d.addWarning(r, "protocol", p.Scheme, "",
			fmt.Sprintf("open command %s does not launch %s", p.OpenCommand, d.exePath))
	}
}

// validateHost checks one command template.
func (d *Doctor) validateHost(r *Result, scheme string, h registration.Host) {
	if len(h.Command) == 0 || h.Command[0] == "" {
		d.addError(r, "host", scheme, h.Name, "command template is empty")
		return
	}
	if _, err := d.lookPath(h.Command[0]); err != nil {
		d.addWarning(r, "host", scheme, h.Name, fmt.Sprintf("executable %s not found: %v", h.Command[0], err))
	}
	if !slices.ContainsFunc(h.Command[1:], func(arg string) bool {
		return strings.Contains(arg, registration.Placeholder)
	}) {
		d.addWarning(r, "host", scheme, h.Name,
			fmt.Sprintf("no argument contains %s; the URL selector will not be passed", registration.Placeholder))
	}
}

var (
	errorLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	warnLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5C07B"))
	okLabel    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
)

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		fmt.Fprintf(&b, "%s (%d protocol(s))\n", okLabel.Render("Registrations valid."), r.Protocols)
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Registrations valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Registrations invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %s [%s] %s: %s\n", errorLabel.Render("ERROR"), e.Category, subject(e), e.Message)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  %s  [%s] %s: %s\n", warnLabel.Render("WARN"), w.Category, subject(w), w.Message)
	}

	return b.String()
}

func subject(i Issue) string {
	if i.Host != "" {
		return i.Protocol + "://" + i.Host
	}
	return i.Protocol + "://"
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
