// Package config loads node configuration from a TOML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DirectoryConfig selects and configures the directory backend.
type DirectoryConfig struct {
	// RedisAddr is the host:port of the Redis directory backend. Empty
	// selects the in-memory backend (single node only).
	RedisAddr string `toml:"redis_addr,omitempty"`
	RedisDB   int    `toml:"redis_db,omitempty"`
}

// Config is the top-level node configuration.
type Config struct {
	// Broadcast is the HTTP path for peer broadcast.
	Broadcast string `toml:"broadcast"`
	// Endpoint is the HTTP path for the realtime transport.
	Endpoint string `toml:"endpoint"`
	// Redirect is the URL to 301 unmatched requests to; empty means 400.
	Redirect string `toml:"redirect,omitempty"`
	// Namespace is the key prefix in the directory.
	Namespace string `toml:"namespace"`
	// Timeout is the session entry TTL, in seconds.
	Timeout int `toml:"timeout"`
	// Address is this node's externally reachable hostname.
	Address string `toml:"address"`
	// Port is this node's externally reachable port (0 means omit it from
	// the node URL).
	Port int `toml:"port,omitempty"`
	// ListenAddr is the local HTTP listen address.
	ListenAddr string `toml:"listen_addr"`
	// MetricsAddr, if set, serves /metrics and /healthz on a separate
	// listener instead of the main one.
	MetricsAddr string `toml:"metrics_addr,omitempty"`

	Directory DirectoryConfig `toml:"directory"`

	// PeerURLs is an optional static list of peer node URLs recorded in
	// the Node Registry at startup, for operator visibility only — the
	// routing components never consult it.
	PeerURLs []string `toml:"peer_urls,omitempty"`
}

func defaults() Config {
	return Config{
		Broadcast:  "/primacron/broadcast",
		Endpoint:   "/stream/",
		Namespace:  "primacron",
		Timeout:    900,
		Address:    "localhost",
		ListenAddr: ":8080",
	}
}

// Load reads config.toml from path, applying defaults for anything absent
// and environment variable overrides. A missing file is not an error — a
// fresh node should start with sane defaults rather than requiring a
// config file up front.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace must not be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d", cfg.Timeout)
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRIMACRON_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("PRIMACRON_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("PRIMACRON_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("PRIMACRON_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PRIMACRON_REDIRECT"); v != "" {
		cfg.Redirect = v
	}
	if v := os.Getenv("PRIMACRON_REDIS_ADDR"); v != "" {
		cfg.Directory.RedisAddr = v
	}
	if v := os.Getenv("PRIMACRON_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}
