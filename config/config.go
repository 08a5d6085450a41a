package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	KeyID     string `mapstructure:"key_id"`
	AccessKey string `mapstructure:"access_key"`
	Timeout   string `mapstructure:"timeout"`
	// BaseURL is the public prefix uploaded objects are served from. When
	// empty, path-style URLs are derived from endpoint and bucket.
	BaseURL string `mapstructure:"base_url"`
}

type StorageConfig struct {
	// Type selects the blob store backend: "s3" or "filesystem".
	Type string   `mapstructure:"type"`
	Dir  string   `mapstructure:"dir"`
	S3   S3Config `mapstructure:"s3"`
}

type AppConfig struct {
	Port                int    `mapstructure:"port"                  validate:"required,numeric,min=1,max=65535"`
	LogLevel            string `mapstructure:"log_level"`
	HumanReadableOutput bool   `mapstructure:"human_readable_output"`

	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// Load builds the application configuration from defaults, an optional YAML
// file (CONFIG_PATH or ./config.yaml) and DEALERSHIP_* environment variables.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("human_readable_output", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "dealership_user")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "dealership_db")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.dir", "./blob-storage")
	v.SetDefault("storage.s3.timeout", "30s")

	v.SetEnvPrefix("DEALERSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path := v.GetString("config_path"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, everything has defaults or env vars.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}
