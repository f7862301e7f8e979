// Package inspect renders stored registrations for people and scripts.
package inspect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mattjoyce/hermes/internal/registration"
)

// Report is the JSON form of a listing.
type Report struct {
	Namespace string                  `json:"namespace"`
	Protocols []registration.Protocol `json:"protocols"`
}

// BuildReport renders a table with one row per host, grouped by protocol.
func BuildReport(namespace string, protocols []registration.Protocol) string {
	th := NewDefaultTheme()

	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", th.Title.Render("Registered protocols ("+namespace+")"))
	if len(protocols) == 0 {
		fmt.Fprintf(&out, "%s\n", th.Dim.Render("<none>"))
		return out.String()
	}

	var rows [][]string
	for _, p := range protocols {
		status := "registered"
		if !p.Registered {
			status = "missing"
		}
		if len(p.Hosts) == 0 {
			rows = append(rows, []string{p.Scheme, status, "<no hosts>", ""})
			continue
		}
		for _, h := range p.Hosts {
			rows = append(rows, []string{p.Scheme, status, h.Name, formatCommand(h.Command)})
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(th.Border).
		Headers("PROTOCOL", "RECORD", "HOST", "COMMAND").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return th.Header
			case col == 1 && rows[row][1] == "missing":
				return th.Missing.Padding(0, 1)
			case col == 1:
				return th.Registered.Padding(0, 1)
			default:
				return th.Cell
			}
		})

	out.WriteString(t.String())
	out.WriteString("\n")
	return out.String()
}

// BuildJSONReport returns the machine-readable listing.
func BuildJSONReport(namespace string, protocols []registration.Protocol) (string, error) {
	if protocols == nil {
		protocols = []registration.Protocol{}
	}
	data, err := json.MarshalIndent(Report{Namespace: namespace, Protocols: protocols}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

// formatCommand quotes empty tokens and tokens with whitespace so the
// boundaries stay visible.
func formatCommand(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		switch {
		case strings.Contains(tok, `"`):
			tok = strconv.Quote(tok)
		case tok == "" || strings.ContainsAny(tok, " \t"):
			tok = `"` + tok + `"`
		}
		parts[i] = tok
	}
	return strings.Join(parts, " ")
}
