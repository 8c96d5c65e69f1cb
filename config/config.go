package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// gin mode: debug, release or test
		GinMode string `env:"GIN_MODE" envDefault:"release"`

		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		// Time allowed for in-flight requests when shutting down
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Database struct {
		// sqlite or postgres
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`

		// SQLite database file, relative to the working directory
		Path string `env:"DB_PATH" envDefault:"database/housing.db"`

		// PostgreSQL connection string, required when Driver is postgres
		URL string `env:"DATABASE_URL"`

		MaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

		// Optional JSON file with neighborhoods and property types to create
		// at start-up
		SeedFile string `env:"SEED_FILE"`
	}

	Logging struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`

		// json or text
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	Reports struct {
		// Rank cut-off for the per-type price extremes report
		PriceExtremesLimit int `env:"REPORT_PRICE_EXTREMES_LIMIT" envDefault:"5"`

		// Upper bound for a single report execution
		Timeout time.Duration `env:"REPORT_TIMEOUT" envDefault:"30s"`

		// How often the dashboard snapshot is rebuilt, 0 disables it
		RefreshInterval time.Duration `env:"REPORT_REFRESH_INTERVAL" envDefault:"15m"`
	}

	// BatchProcessing configuration for the import pipeline
	BatchProcessing struct {
		// Number of import batches the queue can hold before rejecting
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

// LoadConfig reads an optional .env file and then parses the environment.
// Variables already present in the environment win over the file.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations the env tags cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.Logging.Format)
	}

	if c.Reports.PriceExtremesLimit < 1 {
		return fmt.Errorf("REPORT_PRICE_EXTREMES_LIMIT must be positive, got %d", c.Reports.PriceExtremesLimit)
	}
	if c.Reports.RefreshInterval < 0 {
		return fmt.Errorf("REPORT_REFRESH_INTERVAL must not be negative, got %s", c.Reports.RefreshInterval)
	}
	if c.BatchProcessing.ProcessorCount < 1 {
		return fmt.Errorf("BATCH_PROCESSOR_COUNT must be positive, got %d", c.BatchProcessing.ProcessorCount)
	}
	if c.BatchProcessing.QueueSize < 1 {
		return fmt.Errorf("BATCH_QUEUE_SIZE must be positive, got %d", c.BatchProcessing.QueueSize)
	}
	return nil
}
