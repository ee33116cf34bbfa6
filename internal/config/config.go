package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DBDriver string `json:"db_driver" toml:"db_driver"`
	DBPath   string `json:"db_path" toml:"db_path"`
	DBDSN    string `json:"db_dsn,omitempty" toml:"db_dsn,omitempty"`
	WebPort  int    `json:"web_port" toml:"web_port"`
	LogLevel string `json:"log_level" toml:"log_level"`
}

func Default() Config {
	return Config{DBDriver: "sqlite", WebPort: 8080, LogLevel: "info"}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazytodo", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads a JSON or TOML config file, picked by extension. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), &config); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		return config, nil
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		encoded, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		data = encoded
	}

	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides cfg with any of PORT, LAZYTODO_DB_DRIVER,
// LAZYTODO_DB_PATH, LAZYTODO_DB_DSN and LOG_LEVEL that are set.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	if value := getenv("PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", value)
		}
		cfg.WebPort = port
	}
	if value := getenv("LAZYTODO_DB_DRIVER"); value != "" {
		cfg.DBDriver = value
	}
	if value := getenv("LAZYTODO_DB_PATH"); value != "" {
		cfg.DBPath = value
	}
	if value := getenv("LAZYTODO_DB_DSN"); value != "" {
		cfg.DBDSN = value
	}
	if value := getenv("LOG_LEVEL"); value != "" {
		cfg.LogLevel = value
	}
	return cfg, nil
}

// DSN returns the connection string for the configured driver. SQLite uses
// the file path; other drivers use DBDSN.
func (c Config) DSN() string {
	switch strings.ToLower(c.DBDriver) {
	case "", "sqlite", "sqlite3":
		return c.DBPath
	default:
		return c.DBDSN
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
