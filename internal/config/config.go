package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// RedisConfig holds the connection settings of a Redis/Valkey server.
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0,lte=15"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ShowSeed is a show created at startup.
type ShowSeed struct {
	Name         string `mapstructure:"name" validate:"required"`
	EpisodesSeen int    `mapstructure:"episodes_seen"`
}

type Config struct {
	Server struct {
		Port            int    `mapstructure:"port" validate:"gte=1,lte=65535"`
		Address         string `mapstructure:"address"`
		ShutdownTimeout string `mapstructure:"shutdown_timeout"` // Go duration string like "10s"
		// TrustedProxies lists proxy IPs/CIDRs whose forwarding headers are honored.
		// Empty means the client IP is always the connection's remote address.
		TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,ip|cidr"`
	} `mapstructure:"server"`
	LogLevel string `mapstructure:"log_level"`
	Store    struct {
		Provider     string      `mapstructure:"provider" validate:"oneof=memory redis"`
		ResetOnStart bool        `mapstructure:"reset_on_start"`
		Redis        RedisConfig `mapstructure:"redis"`
		Retry        struct {
			MaxRetries int    `mapstructure:"max_retries" validate:"gte=0"`
			Backoff    string `mapstructure:"backoff"` // Go duration string like "50ms"
		} `mapstructure:"retry"`
	} `mapstructure:"store"`
	RateLimit struct {
		Provider string      `mapstructure:"provider" validate:"oneof=memory redis"`
		Limit    int         `mapstructure:"limit" validate:"gte=0"` // 0 disables rate limiting
		Window   string      `mapstructure:"window"`                 // Go duration string like "1s", "1m"
		MaxKeys  int         `mapstructure:"max_keys" validate:"gte=0"`
		Redis    RedisConfig `mapstructure:"redis"`
	} `mapstructure:"rate_limit"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port" validate:"gte=0,lte=65535"`
	} `mapstructure:"metrics"`
	GRPC struct {
		Enabled        bool   `mapstructure:"enabled"`
		Port           int    `mapstructure:"port" validate:"gte=0,lte=65535"`
		HealthInterval string `mapstructure:"health_interval"` // Go duration string like "15s"
	} `mapstructure:"grpc"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
	Client struct {
		BaseURL               string `mapstructure:"base_url" validate:"omitempty,url"`
		Timeout               string `mapstructure:"timeout"` // Go duration string like "30s"
		ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	} `mapstructure:"client"`
	Seed []ShowSeed `mapstructure:"seed" validate:"dive"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
	loadMu       sync.Mutex
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// Init loads the configuration from configFile (or the default search paths when empty),
// configures the log level and makes the result available through GetConfig.
func Init(configFile string) (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	config, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	// Set the global log level
	zerolog.SetGlobalLevel(level)

	// Update logger with the configured level
	logger = logger.Level(level)

	logger.Info().Str("level", level.String()).Msg("Logging configured")
	globalConfig = config
	logger.Info().Msg("Configuration loaded successfully")
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.address", "localhost")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.reset_on_start", true)
	v.SetDefault("store.redis.address", "localhost:6379")
	v.SetDefault("store.redis.key_prefix", "showtracker:")
	v.SetDefault("store.retry.max_retries", 3)
	v.SetDefault("store.retry.backoff", "50ms")
	v.SetDefault("rate_limit.provider", "memory")
	v.SetDefault("rate_limit.limit", 0)
	v.SetDefault("rate_limit.window", "1s")
	v.SetDefault("rate_limit.max_keys", 10000)
	v.SetDefault("rate_limit.redis.key_prefix", "showtracker:ratelimit:")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.port", 9091)
	v.SetDefault("grpc.health_interval", "15s")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", "30s")
}

// LoadConfig reads the configuration without touching global state.
// A .env file in the working directory is loaded into the environment first when present.
func LoadConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable support
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Add specific environment variable for log level
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfig returns the configuration loaded by Init, loading the defaults on first use.
func GetConfig() *Config {
	loadMu.Lock()
	cfg := globalConfig
	loadMu.Unlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Init("")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	return cfg
}

func GetLogger() zerolog.Logger {
	return logger
}

// ParseDuration parses a Go duration string, returning fallback and logging a warning when
// the value is empty or invalid.
func ParseDuration(name, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logger.Warn().Err(err).Str("setting", name).Str("value", value).
			Dur("fallback", fallback).Msg("Invalid duration, using default")
		return fallback
	}
	return parsed
}
