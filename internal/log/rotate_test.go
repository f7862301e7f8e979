package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRotatingCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hermes.log")

	f, err := OpenRotating(path, 64)
	require.NoError(t, err)
	_, err = f.WriteString("first\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenRotating(path, 64)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data), "small files are appended to")
	assert.NoFileExists(t, path+".old")
}

func TestOpenRotatingRotatesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hermes.log")
	big := bytes.Repeat([]byte("x"), 100)
	require.NoError(t, os.WriteFile(path, big, 0o644))
	require.NoError(t, os.WriteFile(path+".old", []byte("stale backup"), 0o644))

	f, err := OpenRotating(path, 64)
	require.NoError(t, err)
	_, err = f.WriteString("fresh\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(cur))

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, big, old, "backup replaced by the rotated file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenRotatingExactlyAtLimitIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hermes.log")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0o644))

	f, err := OpenRotating(path, 64)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.NoFileExists(t, path+".old")
}

func TestOpenRotatingEmptyPath(t *testing.T) {
	_, err := OpenRotating("", 64)
	assert.Error(t, err)
}
