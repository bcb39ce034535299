package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs-force-community/metrics"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/ipfs-force-community/sophon-evmkit/types"
)

const (
	// Configuration file name
	ConfigFile = "config.toml"

	DefaultRepo = "~/.sophon-evmkit"
)

type Config struct {
	API      *APIConfig
	Ethereum *EthereumConfig
	Metrics  *metrics.MetricsConfig
}

type APIConfig struct {
	ListenAddress string
}

type EthereumConfig struct {
	InfuraProjectID string
	InfuraSecret    string
	EtherscanAPIKey string
	// TestMode selects the test network instead of mainnet.
	TestMode bool
	// CommunicationMode is used when an adapter gives no hint, "websocket" or "http".
	CommunicationMode string
	// intervals are go duration strings, e.g. "15s"
	ForegroundInterval string
	BackgroundInterval string
}

func DefaultConfig() *Config {
	cfg := &Config{
		API: &APIConfig{ListenAddress: "/ip4/127.0.0.1/tcp/45133"},
		Ethereum: &EthereumConfig{
			CommunicationMode:  string(types.CommunicationModeWebsocket),
			ForegroundInterval: "15s",
			BackgroundInterval: "2m0s",
		},
		Metrics: metrics.DefaultMetricsConfig(),
	}
	namespace := "evmkit"
	cfg.Metrics.Exporter.Prometheus.Namespace = namespace
	cfg.Metrics.Exporter.Graphite.Namespace = namespace
	cfg.Metrics.Exporter.Prometheus.EndPoint = "/ip4/0.0.0.0/tcp/4570"
	cfg.Metrics.Exporter.Graphite.Port = 4570

	return cfg
}

func (c *EthereumConfig) Mode() (types.CommunicationMode, error) {
	return types.ParseCommunicationMode(c.CommunicationMode)
}

// Intervals parses the foreground and background poll intervals. Empty values
// yield zero, which means the kit default.
func (c *EthereumConfig) Intervals() (time.Duration, time.Duration, error) {
	fg, err := parseDuration(c.ForegroundInterval)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parse ForegroundInterval")
	}
	bg, err := parseDuration(c.BackgroundInterval)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parse BackgroundInterval")
	}
	return fg, bg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Errorf("negative duration %s", s)
	}
	return d, nil
}

func (c *Config) Validate() error {
	if c.API == nil || c.API.ListenAddress == "" {
		return errors.New("API.ListenAddress is required")
	}
	if c.Ethereum == nil {
		return errors.New("Ethereum section is required")
	}
	if _, err := c.Ethereum.Mode(); err != nil {
		return err
	}
	_, _, err := c.Ethereum.Intervals()
	return err
}

// ExpandRepo resolves a leading ~ in the repo path.
func ExpandRepo(repo string) (string, error) {
	return homedir.Expand(repo)
}

func ConfigPath(repo string) (string, error) {
	dir, err := ExpandRepo(repo)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFile), nil
}

func ReadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err = toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetricsConfig()
	}
	return cfg, nil
}

func WriteConfig(filePath string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0600)
}
