package registration

import (
	"regexp"
	"strings"

	"github.com/mattjoyce/hermes/internal/store"
)

// Placeholder is replaced with the URL selector at dispatch time.
const Placeholder = "%1"

// hostsKey names the subtree under a protocol's configuration key that maps
// hostnames to command templates.
const hostsKey = "Hosts"

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)

// ValidScheme reports whether s is a syntactically valid URL scheme.
func ValidScheme(s string) bool {
	return schemePattern.MatchString(s)
}

// normalizeScheme lower-cases a scheme; URL parsing does the same, so
// registrations under any case resolve.
func normalizeScheme(s string) string {
	return strings.ToLower(s)
}

// Layout maps protocols onto store paths.
type Layout struct {
	// Namespace is the application subtree under Software\, e.g. `bitSpatter\Hermes`.
	Namespace string
}

// ClassesKey is the parent of every protocol class subtree.
func (l Layout) ClassesKey() string {
	return store.Join("Software", "Classes")
}

// ProtocolKey is the protocol class subtree the OS consults to launch a handler.
func (l Layout) ProtocolKey(protocol string) string {
	return store.Join(l.ClassesKey(), protocol)
}

// NamespaceKey is the root of all per-protocol configuration subtrees.
func (l Layout) NamespaceKey() string {
	return store.Join("Software", l.Namespace)
}

// ConfigKey is the protocol's configuration subtree.
func (l Layout) ConfigKey(protocol string) string {
	return store.Join(l.NamespaceKey(), protocol)
}

// HostsKey holds the protocol's hostname to command-template values.
func (l Layout) HostsKey(protocol string) string {
	return store.Join(l.ConfigKey(protocol), hostsKey)
}

// OpenTemplate is the command the OS runs for a URL of a registered
// protocol: [exe, extra?, "%1"].
func OpenTemplate(exePath, extraArg string) []string {
	tmpl := []string{exePath}
	if extraArg != "" {
		tmpl = append(tmpl, extraArg)
	}
	return append(tmpl, Placeholder)
}

// OpenCommand renders OpenTemplate as the shell\open\command string:
// "exe" [extra] "%1". Only the executable and placeholder are quoted; the
// extra argument is a bare flag.
func OpenCommand(exePath, extraArg string) string {
	tmpl := OpenTemplate(exePath, extraArg)
	parts := make([]string, len(tmpl))
	for i, tok := range tmpl {
		if i == 0 || i == len(tmpl)-1 {
			tok = `"` + tok + `"`
		}
		parts[i] = tok
	}
	return strings.Join(parts, " ")
}

// IconReference points the protocol's icon at the executable's first icon resource.
func IconReference(exePath string) string {
	return `"` + exePath + `",0`
}

// Description is the protocol class's default value.
func Description(protocol string) string {
	return "URL:" + protocol + " Protocol"
}
