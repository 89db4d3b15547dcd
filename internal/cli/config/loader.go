package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "ADEGA_"

// configFiles are searched in the working directory, in order.
var configFiles = []string{"adega.yaml", "adega.yml"}

// flagKeys maps command-line flags onto configuration keys. Flags not
// listed here are command options, not configuration.
var flagKeys = map[string]string{
	"data-dir":       "data_dir",
	"customers-file": "customers_file",
	"products-file":  "products_file",
	"purchases-file": "purchases_file",
	"delimiter":      "delimiter",
	"output-dir":     "output_dir",
	"models-dir":     "models_dir",
	"reports-dir":    "reports_dir",
	"model":          "model_path",
	"state":          "state_path",
	"test-size":      "test_size",
	"random-state":   "random_state",
	"cv-folds":       "cv_folds",
	"models":         "models",
	"log-level":      "log_level",
	"output":         "output",
	"addr":           "server.addr",
}

// nestedEnv lists the sections whose env names need a dot after the
// section name, e.g. ADEGA_SERVER_ADDR -> server.addr.
var nestedEnv = []string{"server_", "features_"}

// findConfigFile finds the config file to use.
// Priority: explicit path > adega.yaml > adega.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range nestedEnv {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// With a config file, relative paths resolve against its directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
		base := filepath.Dir(used)
		for _, key := range []string{"data_dir", "output_dir", "models_dir", "reports_dir", "model_path", "state_path"} {
			if p := k.String(key); p != "" && !filepath.IsAbs(p) {
				_ = k.Set(key, filepath.Join(base, p))
			}
		}
	}

	// 3. Load environment variables (ADEGA_ prefix)
	// Transform: ADEGA_DATA_DIR -> data_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			key, ok := flagKeys[f.Name]
			if !f.Changed || !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, used, nil
}

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context, falling back
// to the defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	cfg, _, err := LoadConfig("", nil)
	if err != nil {
		return &Config{}
	}
	return cfg
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
