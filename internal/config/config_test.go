package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSubstitutesEnv(t *testing.T) {
	t.Setenv("PULSE_TEST_DSN", "postgres://u:p@db/pulse")
	path := writeConfig(t, `{
		"server": {"port": ${PULSE_TEST_PORT:8080}},
		"database": {"postgres": {"dsn": "${PULSE_TEST_DSN}"}},
		"notify": {"slack": {"enabled": ${PULSE_TEST_SLACK:false}, "channel": "${PULSE_TEST_CHANNEL:#alerts}"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db/pulse", cfg.Database.Postgres.DSN)
	assert.False(t, cfg.Notify.Slack.Enabled)
	assert.Equal(t, "#alerts", cfg.Notify.Slack.Channel)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, 3210, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Orchestration.Timeout())
	assert.Equal(t, 5*time.Minute, cfg.Orchestration.CacheTTL())
	assert.EqualValues(t, 1000, cfg.Orchestration.JournalLength)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Zero(t, cfg.Orchestration.WatchInterval())
}

func TestWatchIntervalDefaultsWhenWatching(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"orchestration": {"watch": ["p1"]}}`))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Orchestration.WatchInterval())

	cfg, err = Load(writeConfig(t, `{"orchestration": {"watch": ["p1"], "watch_interval_seconds": 60}}`))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Orchestration.WatchInterval())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"server": `))
	assert.Error(t, err)
}
