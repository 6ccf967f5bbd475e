// Package config loads the settings of the command line client from flags, the environment and an optional file
package config

import (
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/axelarnetwork/moi-rpc/events"
	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/provider"
	"github.com/axelarnetwork/moi-rpc/transport"
)

// EnvPrefix prefixes every environment variable read by Load, e.g. MOI_HTTP_URL
const EnvPrefix = "MOI"

// Config holds the connection and runtime settings
type Config struct {
	HTTPURL     string `mapstructure:"http_url" validate:"required_without=WSURL,omitempty,url"`
	WSURL       string `mapstructure:"ws_url" validate:"omitempty,url"`
	Legacy      bool   `mapstructure:"legacy"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info error none"`
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	Timeout               time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Retries               int           `mapstructure:"retries" validate:"gte=0"`
	BackOff               time.Duration `mapstructure:"back_off" validate:"gt=0"`
	ReceiptPollInterval   time.Duration `mapstructure:"receipt_poll_interval" validate:"gt=0"`
	TesseractPollInterval time.Duration `mapstructure:"tesseract_poll_interval" validate:"gt=0"`
	WaitTimeout           time.Duration `mapstructure:"wait_timeout" validate:"gt=0"`
}

// DefaultConfig returns the library defaults. No endpoint is set
func DefaultConfig() Config {
	return Config{
		LogLevel:              "info",
		Timeout:               transport.DefaultTimeout,
		Retries:               transport.DefaultRetries,
		BackOff:               transport.DefaultBackOff,
		ReceiptPollInterval:   provider.DefaultReceiptPollInterval,
		TesseractPollInterval: events.DefaultTesseractPollInterval,
		WaitTimeout:           provider.DefaultWaitTimeout,
	}
}

// NewViper returns a viper instance that knows every setting and reads overrides from MOI_ prefixed variables
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("http_url", defaults.HTTPURL)
	v.SetDefault("ws_url", defaults.WSURL)
	v.SetDefault("legacy", defaults.Legacy)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("retries", defaults.Retries)
	v.SetDefault("back_off", defaults.BackOff)
	v.SetDefault("receipt_poll_interval", defaults.ReceiptPollInterval)
	v.SetDefault("tesseract_poll_interval", defaults.TesseractPollInterval)
	v.SetDefault("wait_timeout", defaults.WaitTimeout)

	return v
}

// Load reads the config file if one is set and validates the merged settings
func Load(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "cannot read config file: %s", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "cannot decode config: %s", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every field against its constraints
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid config: %s", err)
	}

	return nil
}

// DialOptions returns the transport options the config selects
func (c Config) DialOptions(logger log.Logger) []transport.DialOption {
	return []transport.DialOption{
		transport.WithLogger(logger),
		transport.Timeout(c.Timeout),
		transport.Retries(c.Retries),
		transport.BackOff(c.BackOff),
	}
}

// ProviderOptions returns the provider options the config selects
func (c Config) ProviderOptions(logger log.Logger) []provider.Option {
	opts := []provider.Option{
		provider.WithLogger(logger),
		provider.WithReceiptPollInterval(c.ReceiptPollInterval),
	}
	if c.Legacy {
		opts = append(opts, provider.WithLegacyEnvelope())
	}

	return opts
}
