package dispatch

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw      string
		scheme   string
		host     string
		selector string
	}{
		{"app://build/assets/Foo?rev=2", "app", "build", "/assets/Foo?rev=2"},
		{"app://build", "app", "build", ""},
		{"app://build/", "app", "build", "/"},
		{"app://build/a#frag", "app", "build", "/a#frag"},
		{"app://build/a?x=1&y=2#frag", "app", "build", "/a?x=1&y=2#frag"},
		{"app://build/a?#", "app", "build", "/a"},
		{"APP://Build/a", "app", "Build", "/a"},
		{"app://build:8080/a", "app", "build", "/a"},
		{"app://build/with%20space", "app", "build", "/with%20space"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTarget(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, got.Scheme)
			assert.Equal(t, tt.host, got.Host)
			assert.Equal(t, tt.selector, got.Selector)
			assert.Equal(t, tt.raw, got.URL)
		})
	}
}

func TestParseTargetRejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"app:build/x",
		"app:///x",
		"//build/x",
		"/just/a/path",
		"app://bu ild/%zz",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTarget(raw)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, raw, pe.URL)
		})
	}
}

func TestExpandReplacesEveryOccurrence(t *testing.T) {
	tmpl := []string{"x.exe", "%1", "--log=%1.log"}
	got := Expand(tmpl, "%1", "/a")
	assert.Equal(t, []string{"x.exe", "/a", "--log=/a.log"}, got)
	assert.Equal(t, []string{"x.exe", "%1", "--log=%1.log"}, tmpl, "template must not be modified")
}

func TestExpandLeavesExecutable(t *testing.T) {
	got := Expand([]string{`C:\%1\tool.exe`, "%1%1"}, "%1", "s")
	assert.Equal(t, []string{`C:\%1\tool.exe`, "ss"}, got)
}

func TestExpandWithoutPlaceholder(t *testing.T) {
	assert.Equal(t, []string{"x.exe"}, Expand([]string{"x.exe"}, "%1", "/a"))
	assert.Equal(t, []string{"x.exe", "--flag"}, Expand([]string{"x.exe", "--flag"}, "%1", "/a"))
}

func TestExpandProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tmpl := rapid.SliceOfN(rapid.StringMatching(`[a-z%1 ./-]{0,12}`), 1, 6).Draw(t, "template")
		sel := rapid.String().Draw(t, "selector")

		out := Expand(tmpl, "%1", sel)
		if len(out) != len(tmpl) {
			t.Fatalf("length changed: %d != %d", len(out), len(tmpl))
		}
		if out[0] != tmpl[0] {
			t.Fatalf("executable changed: %q != %q", out[0], tmpl[0])
		}
		for i := 1; i < len(tmpl); i++ {
			n := strings.Count(tmpl[i], "%1")
			want := len(tmpl[i]) + n*(len(sel)-len("%1"))
			if len(out[i]) != want {
				t.Fatalf("arg %d: got %q (len %d), want len %d", i, out[i], len(out[i]), want)
			}
			if sel != "" && !strings.ContainsAny(sel, "%1") && strings.Contains(out[i], "%1") {
				t.Fatalf("arg %d still holds a placeholder: %q", i, out[i])
			}
		}
	})
}

func TestParseTargetSelectorProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z][a-z0-9-]{0,10}`).Draw(t, "host")
		path := rapid.StringMatching(`(/[A-Za-z0-9._~-]{1,8}){0,4}`).Draw(t, "path")
		query := rapid.StringMatching(`([a-z]{1,4}=[a-z0-9]{0,4}(&[a-z]{1,4}=[a-z0-9]{0,4}){0,2})?`).Draw(t, "query")
		frag := rapid.StringMatching(`[a-z0-9]{0,6}`).Draw(t, "fragment")

		want := path
		raw := "app://" + host + path
		if query != "" {
			raw += "?" + query
			want += "?" + query
		}
		if frag != "" {
			raw += "#" + frag
			want += "#" + frag
		}

		got, err := ParseTarget(raw)
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", raw, err)
		}
		if got.Host != host || got.Selector != want {
			t.Fatalf("ParseTarget(%q) = host %q selector %q, want %q %q", raw, got.Host, got.Selector, host, want)
		}
	})
}
