package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJobs(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeJobs(t, `
timezone: America/New_York
jobs:
  - name: daily-tiers
    at: "17:30"
    enabled: true
  - name: backfill
    at: "03:00"
    enabled: false
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", cfg.Timezone)
	require.Len(t, cfg.Jobs, 2)
	assert.Equal(t, "daily-tiers", cfg.Jobs[0].Name)
	assert.Equal(t, "17:30", cfg.Jobs[0].At)
	assert.False(t, cfg.Jobs[1].Enabled)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeJobs(t, "{}\n")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Timezone)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, "daily-tiers", cfg.Jobs[0].Name)
	assert.True(t, cfg.Jobs[0].Enabled)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNew_BadTimezone(t *testing.T) {
	path := writeJobs(t, "timezone: Mars/Olympus\n")

	_, err := New(path, nil, zerolog.Nop())
	assert.Error(t, err)
}
