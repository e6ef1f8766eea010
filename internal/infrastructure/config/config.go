// Package config loads service settings from flags, PUSH_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go-push-notification/internal/infrastructure/logger"
)

const envPrefix = "PUSH"

type Config struct {
	Server ServerConfig
	Push   PushConfig
	Limits LimitsConfig
	Log    LogConfig
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type PushConfig struct {
	Group       string        `mapstructure:"group"`
	Interval    time.Duration `mapstructure:"interval"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type LimitsConfig struct {
	ConnectRate  float64 `mapstructure:"connect_rate"`
	ConnectBurst int     `mapstructure:"connect_burst"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("push.group", "ShippingHub")
	v.SetDefault("push.interval", 30*time.Second)
	v.SetDefault("push.send_timeout", 10*time.Second)

	v.SetDefault("limits.connect_rate", 5.0)
	v.SetDefault("limits.connect_burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// flagBindings maps command-line flags to config keys.
var flagBindings = map[string]string{
	"addr":      "server.addr",
	"group":     "push.group",
	"interval":  "push.interval",
	"log-level": "log.level",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("push-server", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("group", "ShippingHub", "broadcast group name")
	fs.Duration("interval", 30*time.Second, "publisher interval")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	return fs
}

// Load parses args (without the program name) and returns a validated Config.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
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

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Push.Group) == "" {
		errs = append(errs, errors.New("push.group must not be empty"))
	}
	if c.Push.Interval <= 0 {
		errs = append(errs, fmt.Errorf("push.interval must be positive, got %s", c.Push.Interval))
	}
	if c.Push.SendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("push.send_timeout must be positive, got %s", c.Push.SendTimeout))
	}
	if c.Limits.ConnectRate <= 0 || c.Limits.ConnectBurst <= 0 {
		errs = append(errs, errors.New("limits.connect_rate and limits.connect_burst must be positive"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the log section into the logger package's Config,
// keeping the default static fields.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.NewDefaultConfig()
	lc.Level, _ = logger.ParseLevel(c.Log.Level)
	lc.Format = c.Log.Format
	lc.Output = c.Log.Output
	lc.FilePath = c.Log.FilePath
	lc.MaxSize = c.Log.MaxSize
	lc.MaxBackups = c.Log.MaxBackups
	lc.MaxAge = c.Log.MaxAge
	lc.Compress = c.Log.Compress
	return lc
}
