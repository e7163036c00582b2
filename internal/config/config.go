package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	API        APIConfig        `mapstructure:"api"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins" validate:"dive,url"`
}

// APIConfig is how the CLI reaches the task backend.
type APIConfig struct {
	URL         string        `mapstructure:"url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	ListRetries uint64        `mapstructure:"listRetries" validate:"lte=10"`
}

type StorageConfig struct {
	// Path is the data directory; empty resolves through DataDir.
	Path       string        `mapstructure:"path"`
	ListingLag time.Duration `mapstructure:"listingLag" validate:"gte=0"`
}

// SubmissionConfig tunes confirmation polling after a create call.
type SubmissionConfig struct {
	MaxAttempts   int           `mapstructure:"maxAttempts" validate:"gte=1,lte=100"`
	RetryInterval time.Duration `mapstructure:"retryInterval" validate:"gt=0"`
	Debounce      time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

type CatalogConfig struct {
	// Path overrides the built-in category catalog when the file exists.
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type TelemetryConfig struct {
	APIKey   string `mapstructure:"apiKey"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	Disabled bool   `mapstructure:"disabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.allowedOrigins", []string{})
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("api.listRetries", 2)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.listingLag", DefaultListingLag)
	v.SetDefault("submission.maxAttempts", DefaultMaxAttempts)
	v.SetDefault("submission.retryInterval", DefaultRetryInterval)
	v.SetDefault("submission.debounce", DefaultDebounce)
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.watch", false)
	v.SetDefault("telemetry.apiKey", "")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.disabled", false)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// Load reads .env, the environment and the config file into v, then decodes
// and validates the result. cfgFile, when set, must exist; otherwise
// .concierge.yaml is looked up in the working directory and the global
// config directory and may be absent.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := GetGlobalConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and formats.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Namespace()
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DataDir returns the resolved storage directory.
func (c *Config) DataDir() string {
	return DataDir(c.Storage.Path)
}
