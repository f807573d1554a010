// Package config loads the sshm application config and resolves the paths
// the rest of the app reads: the SSH client config file, the SSH key
// directory, and the session log directory. Environment variables win over
// the config file, the config file wins over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// Environment overrides. SSHM_CONFIG points at the SSH client config file,
// SSHM_SSH_DIR at the directory holding keys, SSHM_APP_CONFIG at this
// app's own yaml file.
const (
	EnvSSHConfig = "SSHM_CONFIG"
	EnvSSHDir    = "SSHM_SSH_DIR"
	EnvAppConfig = "SSHM_APP_CONFIG"
)

type Config struct {
	SSHConfig    string `yaml:"ssh_config,omitempty"`
	SSHDir       string `yaml:"ssh_dir,omitempty"`
	SSHBinary    string `yaml:"ssh_binary,omitempty"`
	KeygenBinary string `yaml:"keygen_binary,omitempty"`
	CopyIDBinary string `yaml:"copy_id_binary,omitempty"`

	// SSHOptions holds extra arguments appended to every ssh invocation,
	// parsed shell-style ("-o StrictHostKeyChecking=accept-new").
	SSHOptions string `yaml:"ssh_options,omitempty"`

	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds,omitempty"`

	// Color is "auto", "always" or "never".
	Color string `yaml:"color,omitempty"`

	// ForwardsFile stores saved port forwards, one per line.
	ForwardsFile string `yaml:"forwards_file,omitempty"`

	// LogDir receives session logs from `connect --log`.
	LogDir string `yaml:"log_dir,omitempty"`

	// TraceLog, when set, receives a JSONL activity trace.
	TraceLog string `yaml:"trace_log,omitempty"`
}

// Path returns the app config location: $SSHM_APP_CONFIG, else
// <user-config-dir>/sshm/config.yaml.
func Path() string {
	if p := os.Getenv(EnvAppConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "sshm.yaml")
	}
	return filepath.Join(dir, "sshm", "config.yaml")
}

// Load reads the app config, then layers environment overrides and
// defaults on top.
func Load() (*Config, error) {
	cfg, err := LoadFrom(Path())
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFrom reads the app config from the given path. A missing file yields
// an empty Config with no error; defaults are layered by Load.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if p := os.Getenv(EnvSSHConfig); p != "" {
		c.SSHConfig = p
	}
	if p := os.Getenv(EnvSSHDir); p != "" {
		c.SSHDir = p
	}
}

func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()
	if c.SSHConfig == "" {
		c.SSHConfig = filepath.Join(home, ".ssh", "config")
	}
	if c.SSHDir == "" {
		c.SSHDir = filepath.Join(home, ".ssh")
	}
	if c.SSHBinary == "" {
		c.SSHBinary = "ssh"
	}
	if c.KeygenBinary == "" {
		c.KeygenBinary = "ssh-keygen"
	}
	if c.CopyIDBinary == "" {
		c.CopyIDBinary = "ssh-copy-id"
	}
	if c.ProbeTimeoutSeconds == 0 {
		c.ProbeTimeoutSeconds = 5
	}
	if c.Color == "" {
		c.Color = "auto"
	}
	if c.LogDir == "" {
		c.LogDir = defaultLogDir(home)
	}
	c.SSHConfig = ExpandTilde(c.SSHConfig)
	c.SSHDir = ExpandTilde(c.SSHDir)
	if c.ForwardsFile == "" {
		c.ForwardsFile = filepath.Join(c.SSHDir, "sshm_forwards")
	}
	c.ForwardsFile = ExpandTilde(c.ForwardsFile)
	c.LogDir = ExpandTilde(c.LogDir)
	c.TraceLog = ExpandTilde(c.TraceLog)
}

func defaultLogDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sshm", "logs")
	}
	if home == "" {
		return filepath.Join(".", "sshm-logs")
	}
	return filepath.Join(home, ".local", "share", "sshm", "logs")
}

func (c *Config) validate() error {
	if c.ProbeTimeoutSeconds < 0 || c.ProbeTimeoutSeconds > 300 {
		return fmt.Errorf("probe_timeout_seconds: must be between 0 and 300, got %d", c.ProbeTimeoutSeconds)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color: must be auto, always or never, got %q", c.Color)
	}
	if c.SSHOptions != "" {
		if _, err := shlex.Split(c.SSHOptions); err != nil {
			return fmt.Errorf("ssh_options: %w", err)
		}
	}
	return nil
}

// ProbeTimeout returns the probe deadline as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// ExtraSSHArgs splits ssh_options into argv form. Load has already
// validated the string, so errors collapse to no extra args.
func (c *Config) ExtraSSHArgs() []string {
	if c.SSHOptions == "" {
		return nil
	}
	args, err := shlex.Split(c.SSHOptions)
	if err != nil {
		return nil
	}
	return args
}

// ExpandTilde resolves a leading ~/ against the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
