package buildconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProps(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_PresentKeys(t *testing.T) {
	path := writeProps(t, `
# secrets
TMDB_READ_ACCESS_TOKEN=eyJhbGciOi.token
TMDB_API_KEY = abc123
FB_ROUTE_INSTANCE_URL=https://cinematch-default-rtdb.firebaseio.com
sdk.dir=/opt/android
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.True(t, p.Found())

	assert.Equal(t, "eyJhbGciOi.token", p.Value(TMDBReadAccessToken))
	assert.Equal(t, "abc123", p.Value(TMDBAPIKey))
	assert.Equal(t, "https://cinematch-default-rtdb.firebaseio.com", p.Value(FBRouteInstanceURL))
	assert.Empty(t, Missing(p))
}

func TestLoad_MissingFile(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.properties"))
	require.NoError(t, err)
	assert.False(t, p.Found())

	for _, k := range Keys {
		assert.Equal(t, Null, p.Value(k), k)
	}
	assert.Equal(t, []string{FBRouteInstanceURL, TMDBAPIKey, TMDBReadAccessToken}, Missing(p))
}

func TestLoad_AbsentKey(t *testing.T) {
	p, err := Load(writeProps(t, "TMDB_API_KEY=k\n"))
	require.NoError(t, err)

	assert.Equal(t, "k", p.Value(TMDBAPIKey))
	assert.Equal(t, Null, p.Value(TMDBReadAccessToken))
	assert.Equal(t, Null, p.Value(FBRouteInstanceURL))
}

func TestLoad_EmptyValueIsPresent(t *testing.T) {
	p, err := Load(writeProps(t, "TMDB_API_KEY=\n"))
	require.NoError(t, err)

	v, ok := p.Get(TMDBAPIKey)
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, "", p.Value(TMDBAPIKey))
}

func TestLoad_NoExpansion(t *testing.T) {
	p, err := Load(writeProps(t, "TMDB_API_KEY=${HOME}\n"))
	require.NoError(t, err)
	assert.Equal(t, "${HOME}", p.Value(TMDBAPIKey))
}

func TestLoad_MalformedFileErrors(t *testing.T) {
	path := writeProps(t, "TMDB_API_KEY=\\u00zz\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestGenerate(t *testing.T) {
	p := FromMap(map[string]string{
		TMDBAPIKey: `has "quotes"`,
	})

	var buf bytes.Buffer
	err := Generate(&buf, GenerateOptions{Package: "buildconst", Fields: Fields(p)})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "// Code generated by buildconfig from local.properties. DO NOT EDIT.")
	assert.Contains(t, out, "package buildconst")
	assert.Contains(t, out, `TMDB_API_KEY           = "has \"quotes\""`)
	assert.Contains(t, out, `TMDB_READ_ACCESS_TOKEN = "null"`)
	assert.Contains(t, out, `FB_ROUTE_INSTANCE_URL  = "null"`)
}

func TestGenerate_RequiresPackage(t *testing.T) {
	err := Generate(&bytes.Buffer{}, GenerateOptions{})
	assert.ErrorIs(t, err, ErrNoPackage)
}

func TestWriteFile_Unchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen.go")
	opts := GenerateOptions{Package: "x", Fields: Fields(FromMap(nil))}

	changed, err := WriteFile(path, opts)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = WriteFile(path, opts)
	require.NoError(t, err)
	assert.False(t, changed)
}
