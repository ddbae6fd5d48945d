package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models settings.yml.
type Config struct {
	Tournament struct {
		Name  string `yaml:"name" json:"name"`
		Table string `yaml:"table" json:"table"`
	} `yaml:"tournament" json:"tournament"`
	Challenge string `yaml:"challenge" json:"challenge"`
	Storage   struct {
		Backend string `yaml:"backend" json:"backend"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"storage" json:"storage"`
	Receipts struct {
		Secret string `yaml:"secret" json:"-"`
		Issuer string `yaml:"issuer" json:"issuer"`
	} `yaml:"receipts" json:"receipts"`
}

const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sk init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFS, BackendSQLite:
	case "":
		return fmt.Errorf("config.storage.backend is required")
	default:
		return fmt.Errorf("config.storage.backend must be %q or %q", BackendFS, BackendSQLite)
	}
	if c.Storage.Backend == BackendFS && c.Storage.DataDir == "" {
		return fmt.Errorf("config.storage.data_dir is required for the fs backend")
	}
	if c.Challenge == "" {
		return fmt.Errorf("config.challenge is required")
	}
	if c.Receipts.Issuer != "" && c.Receipts.Secret == "" {
		return fmt.Errorf("config.receipts.secret is required when an issuer is set")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "settings.yml")
}

// DataPath resolves the fs backend data directory against the workspace.
func (c *Config) DataPath(workspace string) string {
	if filepath.IsAbs(c.Storage.DataDir) {
		return c.Storage.DataDir
	}
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, c.Storage.DataDir)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(tournament string) string {
	return fmt.Sprintf(defaultTemplate, tournament)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a tournament.
func Default(tournament string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(tournament))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const defaultTemplate = `tournament:
  name: %q
  table: "1"

challenge: builtin:practice

storage:
  backend: fs
  data_dir: data

receipts:
  issuer: ""
  secret: ""
`
