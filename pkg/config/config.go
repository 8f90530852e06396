// Package config loads the YAML configuration files for nimbusfsd and
// nimbusfs-agent, following the same gopkg.in/yaml.v3 unmarshal pattern
// cmd/warren's "apply" command uses for resource manifests.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is nimbusfsd's configuration file shape.
type ServerConfig struct {
	// ListenAddr is the gRPC API bind address.
	ListenAddr string `yaml:"listenAddr"`
	// HealthAddr is the HTTP health/ready/metrics bind address.
	HealthAddr string `yaml:"healthAddr"`
	// DataDir holds the entities.db and blobs.db bbolt files.
	DataDir string `yaml:"dataDir"`

	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`
}

// DefaultServerConfig returns the configuration used when no file is
// supplied.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: "0.0.0.0:7700",
		HealthAddr: "0.0.0.0:7701",
		DataDir:    "/var/lib/nimbusfs/server",
		LogLevel:   "info",
	}
}

// LoadServerConfig reads and parses a ServerConfig from path, starting
// from DefaultServerConfig so the file only needs to override what it
// cares about.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ClientConfig is nimbusfs-agent's configuration file shape: one mount
// point synced against one server.
type ClientConfig struct {
	// ServerAddr is the nimbusfsd gRPC address to dial.
	ServerAddr string `yaml:"serverAddr"`
	// MountPoint is the local path the kernel shim exposes this tree at.
	MountPoint string `yaml:"mountPoint"`
	// CacheDir holds the client-side entities.db and blobs.db bbolt
	// files; the journal is a bucket inside entities.db.
	CacheDir string `yaml:"cacheDir"`

	// FlushInterval is how often the synchronizer flushes a non-empty
	// journal in the background, independent of the write-buffer's own
	// size-triggered flush.
	FlushInterval time.Duration `yaml:"flushInterval"`

	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`
}

// DefaultClientConfig returns the configuration used when no file is
// supplied.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerAddr:    "127.0.0.1:7700",
		CacheDir:      "/var/lib/nimbusfs/agent",
		FlushInterval: 5 * time.Second,
		LogLevel:      "info",
	}
}

// LoadClientConfig reads and parses a ClientConfig from path, starting
// from DefaultClientConfig so the file only needs to override what it
// cares about.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
