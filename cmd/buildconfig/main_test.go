package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaGreal2/cinematch-server/internal/buildconfig"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	propertiesPath, packageName, outPath, strict = buildconfig.DefaultFile, "buildconst", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerate_Stdout(t *testing.T) {
	dir := t.TempDir()
	props := filepath.Join(dir, "local.properties")
	require.NoError(t, os.WriteFile(props, []byte("TMDB_API_KEY=k1\n"), 0o600))

	out, err := run(t, "generate", "-p", props, "--package", "cfg")
	require.NoError(t, err)

	assert.Contains(t, out, "package cfg")
	assert.Contains(t, out, `= "k1"`)
	assert.Contains(t, out, `TMDB_READ_ACCESS_TOKEN = "null"`)
	assert.Contains(t, out, "warning: FB_ROUTE_INSTANCE_URL, TMDB_READ_ACCESS_TOKEN not set")
}

func TestGenerate_StrictFails(t *testing.T) {
	out, err := run(t, "generate", "-p", filepath.Join(t.TempDir(), "missing"), "--strict")
	assert.ErrorIs(t, err, errMissingKeys)
	assert.NotContains(t, out, "package")
}

func TestGenerate_File(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gen.go")

	out, err := run(t, "generate", "-p", filepath.Join(dir, "missing"), "--package", "buildconst", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `FB_ROUTE_INSTANCE_URL  = "null"`)
}

func TestCheck_MasksValues(t *testing.T) {
	props := filepath.Join(t.TempDir(), "local.properties")
	require.NoError(t, os.WriteFile(props, []byte("TMDB_API_KEY=secretvalue\n"), 0o600))

	out, err := run(t, "check", "-p", props)
	require.NoError(t, err)
	assert.Contains(t, out, "secr*******")
	assert.NotContains(t, out, "secretvalue")
	assert.Contains(t, out, "FB_ROUTE_INSTANCE_URL    missing")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "abcd**", mask("abcdef"))
}
