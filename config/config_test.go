package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.ListenAddr = "127.0.0.1:26700"
	cfg.NetworkID = "edugov-test"
	cfg.VotingWindowHours = 24
	cfg.SweepIntervalSeconds = 0
	require.NoError(t, cfg.EnsureDirs())
	WriteConfigFile(cfg.ConfigFile(), cfg)

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, home, loaded.Home)
	require.Equal(t, "127.0.0.1:26700", loaded.ListenAddr)
	require.Equal(t, "edugov-test", loaded.NetworkID)
	require.Equal(t, 24*time.Hour, loaded.VotingWindow())
	require.Equal(t, time.Duration(0), loaded.SweepInterval())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}

func TestInitializeSignerFiles(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	pk, err := InitializeSignerFiles(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, pk)
	require.FileExists(t, cfg.PrivKeyFile())
	require.FileExists(t, cfg.PrivStateFile())

	// loading again returns the same key
	again, err := InitializeSignerFiles(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, pk.Bytes(), again.Bytes())
}
