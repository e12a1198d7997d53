package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
game:
  max_rounds: 12
  target_score: 300
timers:
  turn_timeout: 45s
  reconnect_grace: 2m
gateway:
  allowed_origins:
    - https://whist.example.com
`)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("WHIST_TURN_TIMEOUT", "20s")
	t.Setenv("WHIST_MAX_ROUNDS", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, c.Game.MaxRounds)
	assert.Equal(t, 300, c.Game.TargetScore)
	assert.Equal(t, 20*time.Second, c.Timers.TurnTimeout)
	assert.Equal(t, 2*time.Minute, c.Timers.ReconnectGrace)
	assert.Equal(t, 24*time.Hour, c.Timers.RoomIdleTTL)
	assert.Equal(t, []string{"https://whist.example.com"}, c.Gateway.AllowedOrigins)
	assert.Equal(t, "s3cret", c.JWTSecret)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Zero(t, c.Game.MaxRounds)
	assert.Equal(t, 30*time.Second, c.Timers.TurnTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Gateway.AllowedOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "missing secret", body: "game:\n  max_rounds: 3\n", env: map[string]string{"JWT_SECRET": ""}},
		{name: "negative rounds", body: "game:\n  max_rounds: -1\n", env: map[string]string{"JWT_SECRET": "x"}},
		{name: "bad yaml", body: "game: [\n", env: map[string]string{"JWT_SECRET": "x"}},
		{name: "bad duration", body: "timers:\n  turn_timeout: soon\n", env: map[string]string{"JWT_SECRET": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}
