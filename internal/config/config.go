package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the Scolaria API.
type Config struct {
	APIPort     int    `mapstructure:"apiPort"`
	Environment string `mapstructure:"environment"`

	// Database settings. Type is "postgres" or "sqlite"; sqlite is the
	// dev/test default and only needs Path.
	DatabaseType            string `mapstructure:"databaseType"`
	DatabaseHost            string `mapstructure:"databaseHost"`
	DatabasePort            string `mapstructure:"databasePort"`
	DatabaseName            string `mapstructure:"databaseName"`
	DatabaseUser            string `mapstructure:"databaseUser"`
	DatabasePassword        string `mapstructure:"databasePassword"`
	DatabaseSSLMode         string `mapstructure:"databaseSSLMode"`
	DatabasePath            string `mapstructure:"databasePath"`
	DatabaseMaxConns        int    `mapstructure:"databaseMaxConns"`
	DatabaseMaxIdle         int    `mapstructure:"databaseMaxIdle"`
	DatabaseConnMaxLifetime string `mapstructure:"databaseConnMaxLifetime"`

	// Session tokens.
	JWTSecret        string `mapstructure:"jwtSecret"`
	SessionTTLHours  int    `mapstructure:"sessionTTLHours"`
	RememberTTLHours int    `mapstructure:"rememberTTLHours"`

	// Entitlement.
	FreeCourseLimit int `mapstructure:"freeCourseLimit"`

	// Blob storage (S3-compatible).
	StorageEndpoint  string `mapstructure:"storageEndpoint"`
	StorageRegion    string `mapstructure:"storageRegion"`
	StorageBucket    string `mapstructure:"storageBucket"`
	StorageAccessKey string `mapstructure:"storageAccessKey"`
	StorageSecretKey string `mapstructure:"storageSecretKey"`

	// Live video sessions.
	LiveKitAPIKey    string `mapstructure:"livekitApiKey"`
	LiveKitAPISecret string `mapstructure:"livekitApiSecret"`
	LiveKitURL       string `mapstructure:"livekitUrl"`
}

// SessionTTL returns the lifetime of a standard session token.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// RememberTTL returns the lifetime of a "remember me" session token.
func (c *Config) RememberTTL() time.Duration {
	return time.Duration(c.RememberTTLHours) * time.Hour
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SCOLARIA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine (env vars and defaults take over); anything
		// else is a real error.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwtSecret must be set")
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = "sqlite"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/scolaria.db"
	}
	if cfg.DatabaseSSLMode == "" {
		cfg.DatabaseSSLMode = "disable"
	}
	if cfg.SessionTTLHours == 0 {
		cfg.SessionTTLHours = 24 * 7
	}
	if cfg.RememberTTLHours == 0 {
		cfg.RememberTTLHours = 24 * 30
	}
	if cfg.FreeCourseLimit == 0 {
		cfg.FreeCourseLimit = 3
	}
	if cfg.StorageRegion == "" {
		cfg.StorageRegion = "fra1"
	}
}
