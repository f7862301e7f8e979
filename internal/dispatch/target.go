package dispatch

import (
	"errors"
	"net/url"
	"strings"
)

var errNoHost = errors.New("url has no host")

// Target is a URL split into its dispatch key and selector.
type Target struct {
	Scheme   string
	Host     string
	Selector string // path, then ?query and #fragment when non-empty
	URL      string
}

// ParseTarget splits raw into a Target. A URL without a host is rejected
// since the host selects the command.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, &ParseError{URL: raw, Err: err}
	}
	if u.Scheme == "" {
		return Target{}, &ParseError{URL: raw, Err: errors.New("url has no scheme")}
	}
	host := u.Hostname()
	if host == "" {
		return Target{}, &ParseError{URL: raw, Err: errNoHost}
	}

	var sel strings.Builder
	sel.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		sel.WriteString("?")
		sel.WriteString(u.RawQuery)
	}
	if frag := u.EscapedFragment(); frag != "" {
		sel.WriteString("#")
		sel.WriteString(frag)
	}

	return Target{
		Scheme:   u.Scheme,
		Host:     host,
		Selector: sel.String(),
		URL:      raw,
	}, nil
}

// Expand returns template with every occurrence of placeholder in the
// arguments replaced by selector. The executable is left untouched and
// template itself is not modified.
func Expand(template []string, placeholder, selector string) []string {
	out := make([]string, len(template))
	copy(out, template)
	for i := 1; i < len(out); i++ {
		out[i] = strings.ReplaceAll(out[i], placeholder, selector)
	}
	return out
}
