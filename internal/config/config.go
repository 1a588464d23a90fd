package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"cratetag/internal/export"
	"cratetag/internal/qr"
)

const FileName = "crate.yml"

// Config models crate.yml.
type Config struct {
	Identifier struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"identifier"`
	QR struct {
		Recovery      string `yaml:"recovery"`
		ModulePx      int    `yaml:"module_px"`
		DisableBorder bool   `yaml:"disable_border"`
	} `yaml:"qr"`
	Export struct {
		Dir               string `yaml:"dir"`
		OnPayloadTooLarge string `yaml:"on_payload_too_large"`
	} `yaml:"export"`
	Preview struct {
		NotesWidth int `yaml:"notes_width"`
	} `yaml:"preview"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Identifier.Timezone); err != nil {
		return fmt.Errorf("config.identifier.timezone: %w", err)
	}
	if _, err := qr.ParseLevel(c.QR.Recovery); err != nil {
		return fmt.Errorf("config.qr.recovery: %w", err)
	}
	if c.QR.ModulePx <= 0 {
		return fmt.Errorf("config.qr.module_px must be positive")
	}
	if _, err := export.ParsePolicy(c.Export.OnPayloadTooLarge); err != nil {
		return fmt.Errorf("config.export.on_payload_too_large: %w", err)
	}
	if c.Preview.NotesWidth < 0 {
		return fmt.Errorf("config.preview.notes_width must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Location returns the zone used for identifier stamps and timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Identifier.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Encoder returns the QR encoder described by the config.
func (c *Config) Encoder() qr.PNGEncoder {
	lvl, _ := qr.ParseLevel(c.QR.Recovery)
	return qr.PNGEncoder{Level: lvl, ModulePx: c.QR.ModulePx, DisableBorder: c.QR.DisableBorder}
}

// Policy returns the payload capacity policy.
func (c *Config) Policy() export.Policy {
	p, _ := export.ParsePolicy(c.Export.OnPayloadTooLarge)
	return p
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with crate config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := Load(workspace)
	if err != nil {
		if _, statErr := os.Stat(Path(workspace)); os.IsNotExist(statErr) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses config over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToYAML renders cfg.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

const defaultTemplate = `identifier:
  # zone for the ORC date stamp and the GeneratedOn timestamp
  timezone: UTC

qr:
  # low|medium|high|highest (L/M/Q/H)
  recovery: highest
  module_px: 10
  disable_border: false

export:
  dir: .
  # fail|omit-notes
  on_payload_too_large: fail

preview:
  notes_width: 50

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
