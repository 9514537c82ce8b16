package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/privval"
	"github.com/spf13/viper"
)

const (
	DefaultConfigDir = "config"
	DefaultDataDir   = "data"

	DefaultConfigFileName    = "config.toml"
	DefaultGenesisFileName   = "genesis.json"
	DefaultPrivKeyFileName   = "signer_key.json"
	DefaultPrivStateFileName = "signer_state.json"
	DefaultIndexerFileName   = "indexer.db"
)

// Config is the service configuration loaded from <home>/config/config.toml.
type Config struct {
	Home string `mapstructure:"-"`

	// ListenAddr is the address the HTTP API binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// NetworkID salts every signature so transactions cannot be replayed
	// across deployments.
	NetworkID string `mapstructure:"network_id"`

	LogLevel string `mapstructure:"log_level"`

	// VotingWindowHours is the lifetime of a pending proposal.
	VotingWindowHours uint64 `mapstructure:"voting_window_hours"`

	// SweepIntervalSeconds is how often the expiry sweep runs. Zero
	// disables the sweep; expiry then happens lazily on access.
	SweepIntervalSeconds uint64 `mapstructure:"sweep_interval_seconds"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.edugov")
	}
	return &Config{
		Home:                 home,
		ListenAddr:           "0.0.0.0:26690",
		NetworkID:            "edugov-dev",
		LogLevel:             "info",
		VotingWindowHours:    72,
		SweepIntervalSeconds: 30,
	}
}

func (c *Config) VotingWindow() time.Duration {
	return time.Duration(c.VotingWindowHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) ConfigDir() string  { return filepath.Join(c.Home, DefaultConfigDir) }
func (c *Config) DataDir() string    { return filepath.Join(c.Home, DefaultDataDir) }
func (c *Config) ConfigFile() string { return filepath.Join(c.ConfigDir(), DefaultConfigFileName) }
func (c *Config) GenesisFile() string {
	return filepath.Join(c.ConfigDir(), DefaultGenesisFileName)
}
func (c *Config) PrivKeyFile() string {
	return filepath.Join(c.ConfigDir(), DefaultPrivKeyFileName)
}
func (c *Config) PrivStateFile() string {
	return filepath.Join(c.ConfigDir(), DefaultPrivStateFileName)
}
func (c *Config) IndexerFile() string {
	return filepath.Join(c.DataDir(), DefaultIndexerFileName)
}

func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.ConfigDir(), c.DataDir()} {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("could not create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LoadConfig reads <home>/config/config.toml over the defaults.
func LoadConfig(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(cfg.ConfigFile())
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Home = home
	return cfg, nil
}

// InitializeSignerFiles creates or loads the file-backed signing key for
// this operator. A nil privKey generates a fresh ed25519 key.
func InitializeSignerFiles(cfg *Config, privKey crypto.PrivKey) (pk crypto.PubKey, err error) {
	if err = cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(cfg.PrivKeyFile(), cfg.PrivStateFile())
	} else {
		filePV = privval.NewFilePV(privKey, cfg.PrivKeyFile(), cfg.PrivStateFile())
		filePV.Save()
	}
	pk, err = filePV.GetPubKey()
	if err != nil {
		return nil, err
	}
	return pk, nil
}
