package registration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hermes/internal/store"
)

func TestProtocolsEmptyStore(t *testing.T) {
	t.Parallel()
	m, _ := newManager(t)

	got, err := m.Protocols(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProtocolsListsHostsSorted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newManager(t)

	require.NoError(t, m.RegisterHost(ctx, "zed", "open", []string{"z.exe", "%1"}, ""))
	require.NoError(t, m.RegisterHost(ctx, "app", "deploy", []string{"d.exe"}, "--debug"))
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"b.exe", "%1"}, "--debug"))

	got, err := m.Protocols(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	app := got[0]
	assert.Equal(t, "app", app.Scheme)
	assert.True(t, app.Registered)
	assert.Equal(t, "URL:app Protocol", app.Description)
	assert.Equal(t, `"C:\Tools\hermes.exe" --debug "%1"`, app.OpenCommand)
	assert.Equal(t, `"C:\Tools\hermes.exe",0`, app.Icon)
	assert.Equal(t, []Host{
		{Name: "build", Command: []string{"b.exe", "%1"}},
		{Name: "deploy", Command: []string{"d.exe"}},
	}, app.Hosts)

	assert.Equal(t, "zed", got[1].Scheme)
}

func TestProtocolsIncludesRegisterOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, mem := newManager(t)

	require.NoError(t, m.RegisterProtocol(ctx, "Solo", ""))
	require.NoError(t, m.RegisterHost(ctx, "app", "build", []string{"b.exe", "%1"}, ""))

	// Classes owned by another program stay out of the listing.
	k, err := mem.CreateKey(ctx, `Software\Classes\other\shell\open\command`)
	require.NoError(t, err)
	require.NoError(t, k.SetString(ctx, "", `"C:\Other\other.exe" "%1"`))
	require.NoError(t, k.Close())
	k, err = mem.CreateKey(ctx, `Software\Classes\.txt\shell\open\command`)
	require.NoError(t, err)
	require.NoError(t, k.SetString(ctx, "", `"C:\Tools\hermes.exe" "%1"`))
	require.NoError(t, k.Close())

	got, err := m.Protocols(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "app", got[0].Scheme)
	assert.Equal(t, "solo", got[1].Scheme)
	assert.True(t, got[1].Registered)
	assert.Empty(t, got[1].Hosts)
}

func TestProtocolsExecutableFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("no exe")
	m := NewManager(store.NewMemory(), testNS, WithExecutable(func() (string, error) { return "", boom }))

	_, err := m.Protocols(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDescribeProtocolOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newManager(t)

	require.NoError(t, m.RegisterProtocol(ctx, "solo", ""))
	p, err := m.Describe(ctx, "SOLO")
	require.NoError(t, err)
	assert.True(t, p.Registered)
	assert.Empty(t, p.Hosts)

	missing, err := m.Describe(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, missing.Registered)
	assert.Empty(t, missing.OpenCommand)
}

func TestOpenCommandRendering(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"exe", "%1"}, OpenTemplate("exe", ""))
	assert.Equal(t, []string{"exe", "--debug", "%1"}, OpenTemplate("exe", "--debug"))
	assert.Equal(t, `"exe" "%1"`, OpenCommand("exe", ""))
	assert.Equal(t, `"exe" --debug "%1"`, OpenCommand("exe", "--debug"))
}

func TestLayout(t *testing.T) {
	t.Parallel()
	l := Layout{Namespace: `bitSpatter\Hermes`}
	assert.Equal(t, `Software\Classes\app`, l.ProtocolKey("app"))
	assert.Equal(t, `Software\bitSpatter\Hermes\app`, l.ConfigKey("app"))
	assert.Equal(t, `Software\bitSpatter\Hermes\app\Hosts`, l.HostsKey("app"))
}

func TestValidScheme(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"a", "myapp", "com.example+x-y", "A1"} {
		assert.True(t, ValidScheme(ok), ok)
	}
	for _, bad := range []string{"", "1a", "-a", "a b", "a_b", "a:"} {
		assert.False(t, ValidScheme(bad), bad)
	}
}
