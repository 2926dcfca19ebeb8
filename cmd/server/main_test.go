package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestServe_ConfigError(t *testing.T) {
	setEnv(t, map[string]string{
		"JWT_SECRET":      "",
		"TMDB_API_BEARER": "",
		"TMDB_API_KEY":    "",
		"PROPERTIES_FILE": filepath.Join(t.TempDir(), "absent.properties"),
	})

	called := false
	code := serve(func(bool) (*zap.Logger, error) {
		called = true
		return zap.NewNop(), nil
	})
	assert.Equal(t, 1, code)
	assert.False(t, called)
}

func TestServe_FlushesLogOnFailure(t *testing.T) {
	dir := t.TempDir()
	setEnv(t, map[string]string{
		"JWT_SECRET":      "secret",
		"TMDB_API_BEARER": "bearer",
		"PROPERTIES_FILE": filepath.Join(dir, "absent.properties"),
		"DB_DRIVER":       "sqlite3",
		"DATABASE_URL":    filepath.Join(dir, "missing", "cinematch.db"),
		"LOBBY_STORE":     "memory",
		"FIREBASE_AUTH":   "false",
	})

	var buf bytes.Buffer
	ws := &zapcore.BufferedWriteSyncer{WS: zapcore.AddSync(&buf), Size: 1 << 20}
	t.Cleanup(func() { ws.Stop() })

	code := serve(func(bool) (*zap.Logger, error) {
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		return zap.New(zapcore.NewCore(enc, ws, zapcore.InfoLevel)), nil
	})
	require.Equal(t, 1, code)
	assert.Contains(t, buf.String(), `"msg":"server stopped"`)
}
