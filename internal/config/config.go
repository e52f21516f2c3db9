package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"go.yaml.in/yaml/v3"
)

// Config holds the Porkbun credentials and connection options.
type Config struct {
	Key         string   `yaml:"key"`
	Secret      string   `yaml:"secret"`
	Endpoint    string   `yaml:"endpoint"`
	TTL         int      `yaml:"ttl"`
	Nameservers []string `yaml:"nameservers"`
}

// ConfigurationError reports missing or invalid credentials.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ErrUnsafePermissions is returned by CheckPermissions for credentials files
// readable by group or others.
var ErrUnsafePermissions = errors.New("credentials file is accessible by group or others")

// LoadFromPath reads a YAML credentials file. ${ENV_VAR} references in string
// values are expanded.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}

	cfg.Key = os.ExpandEnv(cfg.Key)
	cfg.Secret = os.ExpandEnv(cfg.Secret)
	cfg.Endpoint = os.ExpandEnv(cfg.Endpoint)
	for i, ns := range cfg.Nameservers {
		cfg.Nameservers[i] = os.ExpandEnv(ns)
	}

	return &cfg, nil
}

// CheckPermissions returns ErrUnsafePermissions when path can be read or
// written by anyone but its owner.
func CheckPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking credentials file: %w", err)
	}
	if info.Mode().Perm()&fs.FileMode(0o077) != 0 {
		return fmt.Errorf("%s (mode %s): %w", path, info.Mode().Perm(), ErrUnsafePermissions)
	}
	return nil
}

// Resolve merges flag values over the credentials file. When flags carry both
// key and secret the file is not read at all; otherwise every non-empty flag
// value overrides the file's.
func Resolve(flags Config, credentialsFile string) (*Config, error) {
	if flags.Key != "" && flags.Secret != "" {
		cfg := flags
		return &cfg, nil
	}
	if credentialsFile == "" {
		return nil, &ConfigurationError{Err: errors.New("either --key and --secret or a credentials file is required")}
	}

	cfg, err := LoadFromPath(credentialsFile)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	if flags.Key != "" {
		cfg.Key = flags.Key
	}
	if flags.Secret != "" {
		cfg.Secret = flags.Secret
	}
	if flags.Endpoint != "" {
		cfg.Endpoint = flags.Endpoint
	}
	if flags.TTL != 0 {
		cfg.TTL = flags.TTL
	}
	if len(flags.Nameservers) > 0 {
		cfg.Nameservers = flags.Nameservers
	}

	if cfg.Key == "" {
		return nil, &ConfigurationError{Err: fmt.Errorf("%s: missing required field 'key'", credentialsFile)}
	}
	if cfg.Secret == "" {
		return nil, &ConfigurationError{Err: fmt.Errorf("%s: missing required field 'secret'", credentialsFile)}
	}
	return cfg, nil
}

// Settings returns the provider settings map for porkbun.New.
func (c *Config) Settings() map[string]string {
	settings := map[string]string{
		"api_key":        c.Key,
		"secret_api_key": c.Secret,
	}
	if c.Endpoint != "" {
		settings["endpoint"] = c.Endpoint
	}
	if c.TTL != 0 {
		settings["default_ttl"] = strconv.Itoa(c.TTL)
	}
	return settings
}
