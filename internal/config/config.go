// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"microcredit/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// RulesFile is the HCL business rules file; empty means built-in defaults
	RulesFile string `json:"rules_file,omitempty"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Ledger contains balance extraction settings
	Ledger LedgerConfig `json:"ledger"`

	// Postgres contains the final credit line sink settings
	Postgres PostgresConfig `json:"postgres"`

	// History contains run history settings
	History HistoryConfig `json:"history"`

	// Server contains HTTP API settings
	Server ServerConfig `json:"server"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// Directory receives one sub-directory per run
	Directory string `json:"directory"`

	// WriteIntermediate writes every stage table, not only the final one
	WriteIntermediate bool `json:"write_intermediate"`

	// Parquet also writes the final table as parquet
	Parquet bool `json:"parquet"`

	// SummaryFormat is the run summary format (cli, json, markdown)
	SummaryFormat string `json:"summary_format"`
}

// LedgerConfig controls ledger aggregation
type LedgerConfig struct {
	// Workers is the number of partitions aggregated in parallel
	Workers int `json:"workers"`

	// RestrictToPopulation drops balances of SIMs outside the resolved table
	RestrictToPopulation bool `json:"restrict_to_population"`
}

// PostgresConfig contains the relational sink settings
type PostgresConfig struct {
	// Enabled turns the sink on
	Enabled bool `json:"enabled"`

	// DSN is a lib/pq connection string
	DSN string `json:"dsn,omitempty"`

	// Table receives one row per credit line
	Table string `json:"table"`
}

// HistoryConfig contains the run history store settings
type HistoryConfig struct {
	// Directory holds one JSON document per run
	Directory string `json:"directory"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`

	// InputRoot confines server-side input paths
	InputRoot string `json:"input_root"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".microcredit")

	return &Config{
		Version: "1.0",
		Output: OutputConfig{
			Directory:         filepath.Join("data", "processed"),
			WriteIntermediate: true,
			Parquet:           true,
			SummaryFormat:     "cli",
		},
		Ledger: LedgerConfig{
			Workers:              4,
			RestrictToPopulation: true,
		},
		Postgres: PostgresConfig{
			Enabled: false,
			Table:   "credit_lines",
		},
		History: HistoryConfig{
			Directory: filepath.Join(baseDir, "runs"),
		},
		Server: ServerConfig{
			Addr:      ":8080",
			InputRoot: filepath.Join("data", "raw"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
