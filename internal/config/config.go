// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// HTTP server
	Port string `env:"PORT" envDefault:"8081"`

	// Database
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/tally.db"`

	// Auth. An empty secret falls back to the built-in development
	// secret; the server logs a loud warning when that happens.
	JWTSecret string `env:"JWT_SECRET"`

	// AMQP event bus. Leave AMQPURL empty to run without export events.
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"tally"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"ledger_export"`

	// Google Sheets export target for the worker.
	GoogleSpreadsheetID   string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName       string `env:"GOOGLE_SHEET_NAME" envDefault:"Ledger"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`

	// Export worker backup scan.
	ExportBatchSize int           `env:"EXPORT_BATCH_SIZE" envDefault:"10"`
	ExportInterval  time.Duration `env:"EXPORT_INTERVAL" envDefault:"30s"`
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// UsingDefaultSecret reports whether the server would run with the
// built-in development JWT secret.
func (c *Config) UsingDefaultSecret() bool {
	return c.JWTSecret == ""
}

// Validate checks the configuration and returns a combined error listing
// every problem found.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ExportBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if c.ExportInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ValidateWorker adds the checks the export worker needs on top of
// Validate: the worker cannot run without a bus and a sheet to write to.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var problems []string
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		problems = append(problems, "Google sheet name is required for the export worker")
	}
	if c.GoogleCredentialsFile == "" {
		problems = append(problems, "Google credentials file is required for the export worker")
	}

	if len(problems) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
