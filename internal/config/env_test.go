package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeProps(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "local.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(lookupFrom(map[string]string{
		"JWT_SECRET":      "s3cret",
		"TMDB_API_BEARER": "bearer",
	}), filepath.Join(t.TempDir(), "absent.properties"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "./cinematch.db", cfg.DatabaseURL)
	assert.Equal(t, StoreSQL, cfg.LobbyStore)
	assert.Equal(t, 24*time.Hour, cfg.LobbyTTL)
	assert.Equal(t, 1, cfg.DeckPages)
	assert.Equal(t, 10*time.Second, cfg.TMDBTimeout)
	assert.Equal(t, "bearer", cfg.TMDBToken)
	assert.Empty(t, cfg.FirebaseURL)
	assert.Empty(t, cfg.PropertiesFile)
	assert.False(t, cfg.Debug)
}

func TestLoadFrom_PropertiesFallback(t *testing.T) {
	path := writeProps(t, "TMDB_READ_ACCESS_TOKEN=from-file\nTMDB_API_KEY=null\nFB_ROUTE_INSTANCE_URL=https://demo.firebaseio.com\n")

	cfg, err := LoadFrom(lookupFrom(map[string]string{"JWT_SECRET": "x"}), path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.TMDBToken)
	assert.Empty(t, cfg.TMDBAPIKey, "literal null is not a value")
	assert.Equal(t, "https://demo.firebaseio.com", cfg.FirebaseURL)
	assert.Equal(t, path, cfg.PropertiesFile)
}

func TestLoadFrom_EnvWinsOverProperties(t *testing.T) {
	path := writeProps(t, "TMDB_READ_ACCESS_TOKEN=from-file\n")

	cfg, err := LoadFrom(lookupFrom(map[string]string{
		"JWT_SECRET":      "x",
		"TMDB_API_BEARER": "from-env",
		"LOBBY_TTL":       "90m",
		"DEBUG":           "true",
	}), path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TMDBToken)
	assert.Equal(t, 90*time.Minute, cfg.LobbyTTL)
	assert.True(t, cfg.Debug)
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	_, err := LoadFrom(lookupFrom(nil), filepath.Join(t.TempDir(), "absent.properties"))
	require.Error(t, err)

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"JWT_SECRET", "TMDB_API_BEARER or TMDB_READ_ACCESS_TOKEN or TMDB_API_KEY"}, missing.Keys)
}

func TestLoadFrom_APIKeyAlone(t *testing.T) {
	path := writeProps(t, "TMDB_API_KEY=v3key\n")

	cfg, err := LoadFrom(lookupFrom(map[string]string{"JWT_SECRET": "x"}), path)
	require.NoError(t, err)
	assert.Empty(t, cfg.TMDBToken)
	assert.Equal(t, "v3key", cfg.TMDBAPIKey)
}

func TestLoadFrom_DeckAndTimeout(t *testing.T) {
	cfg, err := LoadFrom(lookupFrom(map[string]string{
		"JWT_SECRET":      "x",
		"TMDB_API_BEARER": "y",
		"DECK_PAGES":      "3",
		"TMDB_TIMEOUT":    "2s",
	}), filepath.Join(t.TempDir(), "absent.properties"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.DeckPages)
	assert.Equal(t, 2*time.Second, cfg.TMDBTimeout)

	_, err = LoadFrom(lookupFrom(map[string]string{
		"JWT_SECRET":      "x",
		"TMDB_API_BEARER": "y",
		"DECK_PAGES":      "0",
	}), filepath.Join(t.TempDir(), "absent.properties"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DECK_PAGES")
}

func TestLoadFrom_InvalidSettings(t *testing.T) {
	_, err := LoadFrom(lookupFrom(map[string]string{
		"JWT_SECRET":      "x",
		"TMDB_API_BEARER": "y",
		"DB_DRIVER":       "mysql",
		"LOBBY_STORE":     "firebase",
		"LOBBY_TTL":       "soon",
	}), filepath.Join(t.TempDir(), "absent.properties"))
	require.Error(t, err)

	assert.Contains(t, err.Error(), `unsupported driver "mysql"`)
	assert.Contains(t, err.Error(), "needs FB_ROUTE_INSTANCE_URL")
	assert.Contains(t, err.Error(), `invalid duration "soon"`)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}
