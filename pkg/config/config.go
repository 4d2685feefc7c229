// Package config provides configuration management for the ledger.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Ledger LedgerConfig
	Debug  bool
}

// LedgerConfig represents ledger storage and chart configuration.
type LedgerConfig struct {
	// DBPath is the SQLite database file path.
	DBPath string
	// ChartConfig is the path to the YAML chart-of-accounts file used
	// by the import command.
	ChartConfig string
	// ChartCode is the code of the chart root lifecycle operations run
	// against.
	ChartCode string
	// PrintMovements enables the per-operation movement report.
	PrintMovements bool
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := &Config{
		Ledger: LedgerConfig{
			DBPath:         getEnvOrDefault("LEDGER_DB_PATH", "./ledger.db"),
			ChartConfig:    getEnvOrDefault("LEDGER_CHART_CONFIG", "./chart.yaml"),
			ChartCode:      os.Getenv("LEDGER_CHART_CODE"),
			PrintMovements: os.Getenv("LEDGER_PRINT_MOVEMENTS") == "true",
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that the named configuration fields are set.
func (c *Config) Validate(required ...string) error {
	var missing []string

	for _, field := range required {
		var value string
		switch field {
		case "dbPath":
			value = c.Ledger.DBPath
		case "chartConfig":
			value = c.Ledger.ChartConfig
		case "chartCode":
			value = c.Ledger.ChartCode
		}
		if value == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
