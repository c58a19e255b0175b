// Package config centralizes the settings every ledger command needs:
// where on disk the three stores live, which node this process is, and
// how chatty it should be. It replaces the teacher's scattered
// "NODE_ID" environment lookups and hard-coded "./tmp/blocks_%s" paths
// with a single viper-backed struct.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration for a single node
// process. Zero values are not valid; use Load.
type Config struct {
	// DataDir is the parent directory of the blocks/, utxos/, and
	// wallets/ badger stores.
	DataDir string
	// NodeID distinguishes multiple local nodes sharing one DataDir
	// (each gets its own subdirectory), mirroring the teacher's
	// NODE_ID environment variable.
	NodeID string
	// LogLevel is passed straight to logging.New.
	LogLevel string
	// BootstrapPeer is the seed node's address; it defaults to
	// localhost:3000 (KNOWN_NODE1).
	BootstrapPeer string
}

const envPrefix = "LEDGER"

// Load resolves configuration from, in increasing priority: defaults,
// a ledger.yaml in the working directory, LEDGER_*-prefixed
// environment variables, and finally the explicit overrides passed in
// (typically parsed CLI flags).
func Load(nodeID string, overrides map[string]string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("ledger")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_level", "info")
	v.SetDefault("bootstrap_peer", "localhost:3000")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read ledger.yaml: %w", err)
		}
	}

	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	if nodeID == "" {
		nodeID = v.GetString("node_id")
	}
	if nodeID == "" {
		return nil, fmt.Errorf("config: node id is required (set --node-id or LEDGER_NODE_ID)")
	}

	return &Config{
		DataDir:       v.GetString("data_dir"),
		NodeID:        nodeID,
		LogLevel:      v.GetString("log_level"),
		BootstrapPeer: v.GetString("bootstrap_peer"),
	}, nil
}

// BlocksPath is the badger directory for this node's chain store.
func (c *Config) BlocksPath() string {
	return filepath.Join(c.DataDir, "blocks", c.NodeID)
}

// UTXOPath is the badger directory for this node's UTXO index.
func (c *Config) UTXOPath() string {
	return filepath.Join(c.DataDir, "utxos", c.NodeID)
}

// WalletsPath is the badger directory for this node's wallet keyring.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.DataDir, "wallets", c.NodeID)
}

// NodeAddress is this node's own address on the bootstrap's LAN, e.g.
// "localhost:3000".
func (c *Config) NodeAddress(port string) string {
	return fmt.Sprintf("localhost:%s", port)
}
