package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		Backend:  BackendSQLite,
		DB:       "chronotree.db",
		Replica:  "main",
		LogLevel: "warn",
		Format:   "text",
	}, cfg)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CHRONOTREE_BACKEND", "badger")
	t.Setenv("CHRONOTREE_DB", "/var/lib/chronotree")
	t.Setenv("CHRONOTREE_REPLICA", "laptop")
	t.Setenv("CHRONOTREE_LOG_LEVEL", "debug")
	t.Setenv("CHRONOTREE_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "/var/lib/chronotree", cfg.DB)
	assert.Equal(t, "laptop", cfg.Replica)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"backend", "CHRONOTREE_BACKEND", "postgres", `invalid backend "postgres"`},
		{"format", "CHRONOTREE_FORMAT", "yaml", `invalid format "yaml"`},
		{"level", "CHRONOTREE_LOG_LEVEL", "loud", `invalid log level "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_MemoryNeedsNoPath(t *testing.T) {
	cfg := Config{Backend: BackendMemory, Replica: "r", LogLevel: "info", Format: "text"}
	require.NoError(t, cfg.Validate())

	cfg.Backend = BackendSQLite
	assert.ErrorContains(t, cfg.Validate(), "needs a database path")

	cfg = Config{Backend: BackendMemory, LogLevel: "info", Format: "text"}
	assert.ErrorContains(t, cfg.Validate(), "replica name is required")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
