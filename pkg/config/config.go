package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the agent looks for its configuration.
const DefaultPath = "config.yml"

// Config is the agent's persisted local state. It is read once at startup
// and rewritten only by a successful token rotation.
type Config struct {
	// Token is the bearer credential presented to the panel and required
	// from the panel on every protected agent endpoint.
	Token string `yaml:"token"`

	// NodeID identifies this node to the panel.
	NodeID string `yaml:"node_id"`

	// PanelURL is the base address of the panel, e.g. "https://panel.example.com".
	PanelURL string `yaml:"panel_url"`

	// Port is the agent's listen port.
	Port int `yaml:"port"`

	// SFTPPort is reserved for the file-access daemon.
	SFTPPort int `yaml:"sftp_port,omitempty"`

	// RAMLimitMB caps workload memory on this node, in megabytes.
	// Zero means auto: 95% of host RAM, derived at startup.
	RAMLimitMB uint64 `yaml:"ram_limit"`

	// DiskLimitMB caps workload disk on this node, in megabytes.
	// Zero means auto: 95% of the root mount, derived at startup.
	DiskLimitMB uint64 `yaml:"disk_limit"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// FromEnv builds a config from environment variables. Used as a fallback
// when no config file exists.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Token:    os.Getenv("NODEGRID_TOKEN"),
		NodeID:   os.Getenv("NODEGRID_NODE_ID"),
		PanelURL: os.Getenv("NODEGRID_PANEL_URL"),
		Port:     8080,
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("NODEGRID_TOKEN must be set")
	}
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("NODEGRID_NODE_ID must be set")
	}
	if cfg.PanelURL == "" {
		return nil, fmt.Errorf("NODEGRID_PANEL_URL must be set")
	}

	if v := os.Getenv("NODEGRID_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("NODEGRID_PORT must be a number: %w", err)
		}
		cfg.Port = port
	}

	return cfg, nil
}

// Save writes the config atomically: the file is written to a sibling
// temporary path and renamed into place, so a crash mid-write never leaves
// a truncated config behind.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}

	return nil
}

// autoLimitFraction is the share of a host resource handed to workloads
// when the operator leaves a limit at zero.
const autoLimitFraction = 0.95

// ApplyAutoLimits fills zero-valued RAM and disk limits from the host:
// 95% of total memory and 95% of the root mount's capacity.
func (c *Config) ApplyAutoLimits() error {
	if c.RAMLimitMB == 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return fmt.Errorf("failed to read host memory: %w", err)
		}
		c.RAMLimitMB = uint64(float64(vm.Total/1024/1024) * autoLimitFraction)
	}

	if c.DiskLimitMB == 0 {
		usage, err := disk.Usage("/")
		if err != nil {
			return fmt.Errorf("failed to read root disk: %w", err)
		}
		c.DiskLimitMB = uint64(float64(usage.Total/1024/1024) * autoLimitFraction)
	}

	return nil
}
