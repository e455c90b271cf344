package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseJson_OverlaysPresentFields(t *testing.T) {
	path := writeConfigFile(t, `{
		"default_coordinator_url": "http://hub.lan:8787",
		"poll_foreground": "5s"
	}`)

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"lanferry", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	require.Equal(t, "http://hub.lan:8787", cfg.DefaultCoordinatorURL)
	require.Equal(t, 5*time.Second, cfg.PollForeground)
	// absent fields keep defaults
	require.Equal(t, 60*time.Second, cfg.PollBackground)
	require.Equal(t, "lanferry.db", cfg.StateDBPath)
}

func TestParseJson_NoConfigFlagIsNoop(t *testing.T) {
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"lanferry"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	require.Equal(t, "http://127.0.0.1:8787", cfg.DefaultCoordinatorURL)
}

func TestParseJson_InvalidJSONPanics(t *testing.T) {
	path := writeConfigFile(t, `{not json`)

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"lanferry", "-config", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	require.Panics(t, func() { parseJson(cfg) })
}
