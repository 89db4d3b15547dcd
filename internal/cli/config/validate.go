package config

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Harley062/projeto-IA-Adega/internal/ml"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be between 0 and 1, got %v", c.TestSize)
	}
	if c.CVFolds < 0 || c.CVFolds == 1 {
		return fmt.Errorf("cv_folds must be 0 (disabled) or at least 2, got %d", c.CVFolds)
	}
	for _, m := range c.Models {
		if !knownModel(m) {
			return fmt.Errorf("unknown model %q (available: %s)", m, strings.Join(ml.Roster, ", "))
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.OutputFormat {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("invalid output format %q (auto|text|markdown|json)", c.OutputFormat)
	}
	return nil
}

func knownModel(name string) bool {
	for _, m := range ml.Roster {
		if m == name {
			return true
		}
	}
	return false
}

// ParseLevel maps a log_level value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q (debug|info|warn|error)", s)
	}
	return l, nil
}
