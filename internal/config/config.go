// Package config loads dhmitm settings from defaults, an optional config
// file, DHMITM_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
)

const (
	EnvPrefix = "DHMITM"
	fileName  = "dhmitm"
)

type Config struct {
	Params    ParamsConfig    `mapstructure:"params"`
	Keys      KeysConfig      `mapstructure:"keys"`
	Responder ResponderConfig `mapstructure:"responder"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Initiator InitiatorConfig `mapstructure:"initiator"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       LogConfig       `mapstructure:"log"`
}

type ParamsConfig struct {
	Prime     uint64 `mapstructure:"prime"`
	Generator uint64 `mapstructure:"generator"`
}

type KeysConfig struct {
	Min uint64 `mapstructure:"min"`
	Max uint64 `mapstructure:"max"`
}

type ResponderConfig struct {
	Listen string `mapstructure:"listen"`
}

type RelayConfig struct {
	Listen       string `mapstructure:"listen"`
	Upstream     string `mapstructure:"upstream"`
	Capture      string `mapstructure:"capture"`
	CrackWorkers int    `mapstructure:"crack_workers"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

type InitiatorConfig struct {
	Primary  string `mapstructure:"primary"`
	Fallback string `mapstructure:"fallback"`
}

type SessionConfig struct {
	KeyTimeout time.Duration `mapstructure:"key_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("params.prime", crypto.DefaultParams.Prime)
	v.SetDefault("params.generator", crypto.DefaultParams.Generator)
	v.SetDefault("keys.min", crypto.DefaultKeyRange.Min)
	v.SetDefault("keys.max", crypto.DefaultKeyRange.Max)

	v.SetDefault("responder.listen", "ws://127.0.0.1:8080")

	v.SetDefault("relay.listen", "ws://127.0.0.1:8081")
	v.SetDefault("relay.upstream", "ws://127.0.0.1:8080")
	v.SetDefault("relay.capture", "")
	v.SetDefault("relay.crack_workers", 4)
	v.SetDefault("relay.metrics_addr", "")

	v.SetDefault("initiator.primary", "ws://127.0.0.1:8081")
	v.SetDefault("initiator.fallback", "ws://127.0.0.1:8080")

	v.SetDefault("session.key_timeout", "0s")
	v.SetDefault("log.level", "info")
}

// BindFlags maps config keys to flags of fs. Flags the user did not set fall
// through to env, file and defaults.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("config: no flag %q for key %q", name, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the config file (path, or dhmitm.{yaml,toml,json} in the working
// directory or $HOME/.dhmitm when path is empty) and decodes everything.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dhmitm")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) CryptoParams() crypto.Params {
	return crypto.Params{Prime: c.Params.Prime, Generator: c.Params.Generator}
}

func (c *Config) KeyRange() crypto.KeyRange {
	return crypto.KeyRange{Min: c.Keys.Min, Max: c.Keys.Max}
}

func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Log.Level)
}

func (c *Config) Validate() error {
	params := c.CryptoParams()
	if err := params.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.KeyRange().Validate(params); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Relay.CrackWorkers < 1 {
		return fmt.Errorf("config: relay.crack_workers must be at least 1, got %d", c.Relay.CrackWorkers)
	}
	if c.Session.KeyTimeout < 0 {
		return fmt.Errorf("config: session.key_timeout must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
