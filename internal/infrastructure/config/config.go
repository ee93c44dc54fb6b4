package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
)

type Config struct {
	HTTPAddr         string        `env:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" default:"5s"`

	WSPath           string `env:"WS_PATH" default:"/websocket/endpoint"`
	WSAllowedOrigins string `env:"WS_ALLOWED_ORIGINS" default:"*"` // comma separated
	WSMaxMessageSize int64  `env:"WS_MAX_MESSAGE_SIZE" default:"65536"`

	HubSendTimeout        time.Duration `env:"HUB_SEND_TIMEOUT" default:"10s"`
	HubMaxConcurrentSends int           `env:"HUB_MAX_CONCURRENT_SENDS" default:"64"`

	SSEKeepAliveInterval time.Duration `env:"SSE_KEEPALIVE_INTERVAL" default:"30s"`

	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"console"`
	LogOutput   string `env:"LOG_OUTPUT" default:"stdout"`
	LogFilePath string `env:"LOG_FILE_PATH"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		errs = append(errs, fmt.Errorf("WS_PATH must start with '/', got %q", c.WSPath))
	}
	if len(c.AllowedOrigins()) == 0 {
		errs = append(errs, errors.New("WS_ALLOWED_ORIGINS must list at least one origin or '*'"))
	}
	if c.WSMaxMessageSize <= 0 {
		errs = append(errs, errors.New("WS_MAX_MESSAGE_SIZE must be positive"))
	}
	if c.HubSendTimeout <= 0 {
		errs = append(errs, errors.New("HUB_SEND_TIMEOUT must be positive"))
	}
	if c.HubMaxConcurrentSends < 0 {
		errs = append(errs, errors.New("HUB_MAX_CONCURRENT_SENDS must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogOutput == "file" && c.LogFilePath == "" {
		errs = append(errs, errors.New("LOG_FILE_PATH is required when LOG_OUTPUT=file"))
	}

	return errors.Join(errs...)
}

// AllowedOrigins splits WSAllowedOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.WSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) Logger() *logger.Config {
	cfg := logger.NewDefaultConfig()
	cfg.Level, _ = logger.ParseLevel(c.LogLevel)
	cfg.Format = c.LogFormat
	cfg.Output = c.LogOutput
	cfg.FilePath = c.LogFilePath
	return cfg
}

func (c *Config) Hub() *hub.Config {
	return &hub.Config{
		SendTimeout:        c.HubSendTimeout,
		MaxConcurrentSends: c.HubMaxConcurrentSends,
	}
}

func (c *Config) WebSocket() hub.WebSocketOptions {
	opts := hub.NewDefaultWebSocketOptions()
	opts.MaxMessageSize = c.WSMaxMessageSize
	return opts
}
