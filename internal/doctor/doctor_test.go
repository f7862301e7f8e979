package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hermes/internal/registration"
	"github.com/mattjoyce/hermes/internal/store"
)

const exe = "/opt/hermes/hermes"

func setup(t *testing.T) (*Doctor, *registration.Manager, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	m := registration.NewManager(mem, `bitSpatter\Hermes`,
		registration.WithExecutable(func() (string, error) { return exe, nil }))
	d := New(m, exe, "--debug")
	d.lookPath = func(name string) (string, error) {
		if strings.Contains(name, "missing") {
			return "", errors.New("executable file not found in $PATH")
		}
		return name, nil
	}
	return d, m, mem
}

func TestValidate_Clean(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, m, _ := setup(t)
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"tool", "--open", "%1"}, ""))
	require.NoError(t, m.RegisterHost(ctx, "dbg", "x", []string{"tool", "%1"}, "--debug"))

	r, err := d.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 2, r.Protocols)
	assert.Contains(t, FormatHuman(r), "Registrations valid.")
}

func TestValidate_EmptyStore(t *testing.T) {
	t.Parallel()
	d, _, _ := setup(t)
	r, err := d.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Zero(t, r.Protocols)
}

func TestValidate_ProtocolWithoutHosts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, m, _ := setup(t)
	require.NoError(t, m.RegisterProtocol(ctx, "solo", "--debug"))

	r, err := d.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, 1, r.Protocols)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "solo", r.Warnings[0].Protocol)
	assert.Contains(t, r.Warnings[0].Message, "no hosts registered")
	assert.Contains(t, FormatHuman(r), "solo://: no hosts registered")
}

func TestValidate_MissingProtocolRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, m, mem := setup(t)
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"tool", "%1"}, ""))
	require.NoError(t, mem.DeleteKeyTree(ctx, m.Layout().ProtocolKey("app")))

	r, err := d.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "protocol", r.Errors[0].Category)
	assert.Equal(t, "app", r.Errors[0].Protocol)
	assert.Contains(t, FormatHuman(r), "Registrations invalid (1 error(s)")
}

func TestValidate_EmptyTemplate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, m, mem := setup(t)
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"tool", "%1"}, ""))

	hosts, err := mem.OpenKey(ctx, m.Layout().HostsKey("app"))
	require.NoError(t, err)
	require.NoError(t, hosts.SetStrings(ctx, "broken", nil))

	r, err := d.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "broken", r.Errors[0].Host)
}

func TestValidate_Warnings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, m, _ := setup(t)
	require.NoError(t, m.RegisterHost(ctx, "app", "gone", []string{"/missing/tool", "%1"}, ""))
	require.NoError(t, m.RegisterHost(ctx, "app", "bare", []string{"tool"}, ""))

	r, err := d.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, r.Valid)

	hosts := map[string]bool{}
	for _, w := range r.Warnings {
		hosts[w.Host] = true
	}
	assert.Equal(t, map[string]bool{"gone": true, "bare": true}, hosts)
	assert.Contains(t, FormatHuman(r), "Registrations valid (2 warning(s))")
}

func TestValidate_ForeignExecutable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, m, _ := setup(t)
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"tool", "%1"}, ""))

	other := New(m, "/usr/local/bin/hermes", "--debug")
	other.lookPath = func(name string) (string, error) { return name, nil }
	r, err := other.Validate(ctx)
	require.NoError(t, err)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0].Message, "/usr/local/bin/hermes")
}

func TestValidate_StoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, m, mem := setup(t)
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"tool", "%1"}, ""))
	mem.FailOn("enum", m.Layout().NamespaceKey(), os.ErrPermission)

	_, err := d.Validate(ctx)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	r := &Result{Valid: false, Protocols: 1, Errors: []Issue{{Category: "host", Protocol: "app", Host: "h", Message: "command template is empty"}}}
	out, err := FormatJSON(r)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, *r, decoded)
}
