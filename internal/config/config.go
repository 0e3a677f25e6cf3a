// Package config provides configuration management for the spread bot.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/bull_call_spread/internal/broker"
	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/strategy"
)

const (
	// ProviderAlpaca talks to the Alpaca REST APIs.
	ProviderAlpaca = "alpaca"
	// ProviderMock uses the offline text-protocol simulator.
	ProviderMock = "mock"

	defaultBrokerTimeout = "10s"
	defaultServerPort    = 8080
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Server      ServerConfig      `yaml:"server"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode      string `yaml:"mode"`       // paper | live
	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat string `yaml:"log_format"` // text | json
}

// BrokerConfig defines broker API settings.
type BrokerConfig struct {
	Provider        string               `yaml:"provider"` // alpaca | mock
	APIKey          string               `yaml:"api_key"`
	SecretKey       string               `yaml:"secret_key"`
	TradingEndpoint string               `yaml:"trading_endpoint"`
	DataEndpoint    string               `yaml:"data_endpoint"`
	DataFeed        string               `yaml:"data_feed"` // iex | sip
	Timeout         string               `yaml:"timeout"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures the breaker around the broker.
type CircuitBreakerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxRequests  uint32  `yaml:"max_requests"`
	Interval     string  `yaml:"interval"`
	Timeout      string  `yaml:"timeout"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// StrategyConfig defines the default spread parameters.
type StrategyConfig struct {
	Symbol      string  `yaml:"symbol"`
	TimeInForce string  `yaml:"time_in_force"`
	BuyPct      float64 `yaml:"buy_pct"`
	SellPct     float64 `yaml:"sell_pct"`
	WeeksAhead  int     `yaml:"weeks_ahead"`
	Quantity    int     `yaml:"quantity"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	AuthToken    string `yaml:"auth_token"`
	Port         int    `yaml:"port"`
	AllowExecute bool   `yaml:"allow_execute"`
}

// Default returns a configuration that runs the default SPY spread against
// the paper environment.
func Default() Config {
	p := strategy.DefaultParams()
	return Config{
		Environment: EnvironmentConfig{
			Mode:      "paper",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Broker: BrokerConfig{
			Provider: ProviderAlpaca,
			APIKey:   os.Getenv("ALPACA_API_KEY"),
			// ALPACA_SECRET_KEY is the variable name used by the Alpaca SDKs.
			SecretKey: os.Getenv("ALPACA_SECRET_KEY"),
			Timeout:   defaultBrokerTimeout,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     "60s",
				Timeout:      "30s",
				MinRequests:  5,
				FailureRatio: 0.6,
			},
		},
		Strategy: StrategyConfig{
			Symbol:      p.Symbol,
			TimeInForce: string(p.TimeInForce),
			BuyPct:      p.BuyPct,
			SellPct:     p.SellPct,
			WeeksAhead:  p.WeeksAhead,
			Quantity:    p.Quantity,
		},
		Server: ServerConfig{Port: defaultServerPort},
	}
}

// Load reads, parses and validates the configuration file at configPath.
func Load(configPath string) (*Config, error) {
	config, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Read parses the configuration file without validating it, so callers can
// apply overrides first. Values missing from the file keep their defaults.
func Read(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	config := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent,
// normalizing case and filling unset optional values.
func (c *Config) Validate() error {
	// Environment validation
	c.Environment.Mode = strings.ToLower(strings.TrimSpace(c.Environment.Mode))
	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(c.Environment.LogLevel); err != nil {
		return fmt.Errorf("environment.log_level invalid: %w", err)
	}
	switch strings.ToLower(c.Environment.LogFormat) {
	case "", "text":
		c.Environment.LogFormat = "text"
	case "json":
		c.Environment.LogFormat = "json"
	default:
		return fmt.Errorf("environment.log_format must be 'text' or 'json'")
	}

	// Broker validation
	c.Broker.Provider = strings.ToLower(strings.TrimSpace(c.Broker.Provider))
	switch c.Broker.Provider {
	case ProviderAlpaca:
		if c.Broker.APIKey == "" {
			return fmt.Errorf("broker.api_key is required")
		}
		if c.Broker.SecretKey == "" {
			return fmt.Errorf("broker.secret_key is required")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("broker.provider must be '%s' or '%s'", ProviderAlpaca, ProviderMock)
	}
	if c.Broker.Timeout == "" {
		c.Broker.Timeout = defaultBrokerTimeout
	}
	if d, err := time.ParseDuration(c.Broker.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("broker.timeout must be a positive duration")
	}
	if err := c.Broker.CircuitBreaker.validate(); err != nil {
		return err
	}

	// Strategy validation
	if err := c.StrategyParams().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	// Server validation
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}

func (cb CircuitBreakerConfig) validate() error {
	if !cb.Enabled {
		return nil
	}
	for name, v := range map[string]string{"interval": cb.Interval, "timeout": cb.Timeout} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return fmt.Errorf("broker.circuit_breaker.%s must be a non-negative duration", name)
		}
	}
	if cb.FailureRatio <= 0 || cb.FailureRatio > 1 {
		return fmt.Errorf("broker.circuit_breaker.failure_ratio must be in (0,1]")
	}
	return nil
}

// IsPaperTrading returns true if the bot is configured for paper trading.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}

// BrokerTimeout returns the broker HTTP timeout, falling back to 10s.
func (c *Config) BrokerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Broker.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// BreakerSettings converts the breaker section into broker settings.
func (cb CircuitBreakerConfig) BreakerSettings() broker.CircuitBreakerSettings {
	settings := broker.DefaultCircuitBreakerSettings
	if cb.MaxRequests > 0 {
		settings.MaxRequests = cb.MaxRequests
	}
	if cb.MinRequests > 0 {
		settings.MinRequests = cb.MinRequests
	}
	if cb.FailureRatio > 0 {
		settings.FailureRatio = cb.FailureRatio
	}
	if d, err := time.ParseDuration(cb.Interval); err == nil {
		settings.Interval = d
	}
	if d, err := time.ParseDuration(cb.Timeout); err == nil {
		settings.Timeout = d
	}
	return settings
}

// StrategyParams returns the configured default spread parameters.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		Symbol:      c.Strategy.Symbol,
		BuyPct:      c.Strategy.BuyPct,
		SellPct:     c.Strategy.SellPct,
		WeeksAhead:  c.Strategy.WeeksAhead,
		Quantity:    c.Strategy.Quantity,
		TimeInForce: models.TimeInForce(strings.ToUpper(c.Strategy.TimeInForce)),
	}
}

// NewLogger builds a logger with the configured level and format.
func (e EnvironmentConfig) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	level, err := logrus.ParseLevel(e.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(e.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
