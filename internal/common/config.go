package common

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Verify   VerifyConfig
	Scan     ScanConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `env:"DB_DRIVER" envDefault:"postgres"`
	DSN              string        `env:"DB_URL"`
	MaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns         int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime  time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime  time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DialTimeout      time.Duration `env:"DB_DIAL_TIMEOUT" envDefault:"3s"`
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"0s"`
	HealthTimeout    time.Duration `env:"DB_HEALTH_TIMEOUT" envDefault:"5s"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":5001"`
	GRPCAddr        string        `env:"GRPC_ADDR" envDefault:":8080"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"INFO"`
}

// VerifyConfig holds upload-verification configuration
type VerifyConfig struct {
	Pdftoppm       string        `env:"PDFTOPPM" envDefault:"pdftoppm"`
	HeicConverter  string        `env:"HEIC_CONVERTER" envDefault:"magick"`
	RenderEdge     int           `env:"PDF_RENDER_EDGE" envDefault:"1700"`
	MaxImagePixels int           `env:"MAX_IMAGE_PIXELS" envDefault:"40000000"`
	TargetSize     int           `env:"NORMALIZE_SIZE" envDefault:"600"`
	ProcessTimeout time.Duration `env:"VERIFY_TIMEOUT" envDefault:"10s"`
	MaxRenders     int64         `env:"MAX_CONCURRENT_RENDERS" envDefault:"4"`
	TempDir        string        `env:"VERIFY_TEMP_DIR"`
	SweepInterval  time.Duration `env:"TEMP_SWEEP_INTERVAL" envDefault:"5m"`
	SweepMaxAge    time.Duration `env:"TEMP_SWEEP_MAX_AGE" envDefault:"15m"`
}

// ScanConfig holds live-scan session configuration
type ScanConfig struct {
	FPS            int           `env:"SCAN_FPS" envDefault:"10"`
	RegionSize     int           `env:"SCAN_REGION" envDefault:"250"`
	MaxSession     time.Duration `env:"SCAN_MAX_SESSION" envDefault:"2m"`
	MaxFramePixels int           `env:"SCAN_MAX_FRAME_PIXELS" envDefault:"8000000"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, WrapError(err, "parse config")
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q is not supported", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	if c.Verify.TargetSize <= 0 {
		return NewAppError("CONFIG_ERROR", "NORMALIZE_SIZE must be positive", ErrInvalidInput)
	}
	if c.Verify.MaxImagePixels <= 0 || c.Scan.MaxFramePixels <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_IMAGE_PIXELS and SCAN_MAX_FRAME_PIXELS must be positive", ErrInvalidInput)
	}
	if c.Scan.FPS <= 0 {
		return NewAppError("CONFIG_ERROR", "SCAN_FPS must be positive", ErrInvalidInput)
	}
	return nil
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)
