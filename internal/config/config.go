// Package config loads runtime settings from defaults, an optional YAML file,
// a .env file, A2A_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/avivsinai/a2a-mailbox/internal/poll"
)

// EnvPrefix is prepended to every environment variable override, with dots
// in keys replaced by underscores (poll.max_iterations -> A2A_POLL_MAX_ITERATIONS).
const EnvPrefix = "A2A"

// Config is the resolved configuration.
type Config struct {
	Root    string        `mapstructure:"root"`
	Log     LogConfig     `mapstructure:"log"`
	Poll    PollConfig    `mapstructure:"poll"`
	Send    SendConfig    `mapstructure:"send"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PollConfig holds the defaults used when poll_inbox is called without
// explicit bounds.
type PollConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	Delay         time.Duration `mapstructure:"delay"`
	Watch         bool          `mapstructure:"watch"`
}

type SendConfig struct {
	// StrictRecipients rejects sends to agents without an inbox directory
	// instead of creating one.
	StrictRecipients bool `mapstructure:"strict_recipients"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics and /healthz. Empty disables
	// the listener.
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root: DefaultRoot(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Poll: PollConfig{
			MaxIterations: poll.DefaultMaxIterations,
			Delay:         poll.DefaultDelay,
			Watch:         true,
		},
	}
}

// DefaultRoot is ~/a2a, or ./a2a when the home directory is unknown.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "a2a"
	}
	return filepath.Join(home, "a2a")
}

// Dir returns the user config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "a2a")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".a2a"
	}
	return filepath.Join(home, ".config", "a2a")
}

// SetDefaults registers every key with its default so environment overrides
// are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("root", d.Root)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("poll.max_iterations", d.Poll.MaxIterations)
	v.SetDefault("poll.delay", d.Poll.Delay)
	v.SetDefault("poll.watch", d.Poll.Watch)
	v.SetDefault("send.strict_recipients", d.Send.StrictRecipients)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ReadFile reads cfgFile into v. With an empty cfgFile the first existing
// of Dir()/config.yaml and ./a2a.yaml is used, and having neither is fine.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile == "" {
		for _, candidate := range []string{filepath.Join(Dir(), "config.yaml"), "a2a.yaml"} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				cfgFile = candidate
				break
			}
		}
	}
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

// Load unmarshals v into a Config, expands the root path and validates.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Root = ExpandHome(cfg.Root)
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
