package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Network selection
	Network      string `envconfig:"TEZOS_NETWORK" default:"ghostnet"`
	NetworksFile string `envconfig:"TEZOS_NETWORKS_FILE"`

	// Per-network endpoint overrides, empty means built-in default
	RPCMainnet   string `envconfig:"TEZOS_RPC_MAINNET"`
	RPCGhostnet  string `envconfig:"TEZOS_RPC_GHOSTNET"`
	RPCOxfordnet string `envconfig:"TEZOS_RPC_OXFORDNET"`
	RPCShadownet string `envconfig:"TEZOS_RPC_SHADOWNET"`
	APIMainnet   string `envconfig:"TZKT_API_MAINNET"`
	APIGhostnet  string `envconfig:"TZKT_API_GHOSTNET"`
	APIOxfordnet string `envconfig:"TZKT_API_OXFORDNET"`
	APIShadownet string `envconfig:"TZKT_API_SHADOWNET"`

	// dApp identity shown to the wallet during pairing
	DAppName string `envconfig:"DAPP_NAME" default:"Tezos Wallet Boilerplate"`
	DAppURL  string `envconfig:"DAPP_URL"`

	// Storage
	DataDir string `envconfig:"TEZOS_DAPP_DATA_DIR"`
	LogDir  string `envconfig:"TEZOS_DAPP_LOG_DIR" default:"logs"`

	// HTTP settings
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	ExplorerRPS     float64       `envconfig:"EXPLORER_RPS" default:"8"`
	ExplorerBurst   int           `envconfig:"EXPLORER_BURST" default:"4"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"15s"`

	// PairingTimeout bounds a wallet operation started from the TUI, pairing prompt included
	PairingTimeout time.Duration `envconfig:"PAIRING_TIMEOUT" default:"2m"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Network:         "ghostnet",
		DAppName:        "Tezos Wallet Boilerplate",
		LogDir:          "logs",
		HTTPTimeout:     30 * time.Second,
		ExplorerRPS:     8,
		ExplorerBurst:   4,
		RefreshInterval: 15 * time.Second,
		PairingTimeout:  2 * time.Minute,
	}
}

// Load builds a configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return cfg, nil
}

// RPCOverrides returns the RPC endpoint overrides keyed by network identifier
func (c *Config) RPCOverrides() map[string]string {
	return compact(map[string]string{
		"mainnet":   c.RPCMainnet,
		"ghostnet":  c.RPCGhostnet,
		"oxfordnet": c.RPCOxfordnet,
		"shadownet": c.RPCShadownet,
	})
}

// APIOverrides returns the explorer API overrides keyed by network identifier
func (c *Config) APIOverrides() map[string]string {
	return compact(map[string]string{
		"mainnet":   c.APIMainnet,
		"ghostnet":  c.APIGhostnet,
		"oxfordnet": c.APIOxfordnet,
		"shadownet": c.APIShadownet,
	})
}

func compact(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}

// ResolveDataDir returns DataDir, falling back to ~/.tezos-dapp
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tezos-dapp"), nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Network == "" {
		return fmt.Errorf("network cannot be empty")
	}

	if c.DAppName == "" {
		return fmt.Errorf("dApp name cannot be empty")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got: %s", c.HTTPTimeout)
	}

	if c.ExplorerRPS <= 0 {
		return fmt.Errorf("explorer rate must be positive, got: %g", c.ExplorerRPS)
	}

	if c.ExplorerBurst < 1 {
		return fmt.Errorf("explorer burst must be at least 1, got: %d", c.ExplorerBurst)
	}

	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh interval must be at least 1s, got: %s", c.RefreshInterval)
	}

	if c.PairingTimeout < time.Second {
		return fmt.Errorf("pairing timeout must be at least 1s, got: %s", c.PairingTimeout)
	}

	for name, endpoints := range map[string]map[string]string{"RPC": c.RPCOverrides(), "explorer API": c.APIOverrides()} {
		for network, raw := range endpoints {
			if err := validateURL(raw); err != nil {
				return fmt.Errorf("invalid %s endpoint for %s: %w", name, network, err)
			}
		}
	}

	if c.DAppURL != "" {
		if err := validateURL(c.DAppURL); err != nil {
			return fmt.Errorf("invalid dApp URL: %w", err)
		}
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
