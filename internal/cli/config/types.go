// Package config loads the CLI configuration from defaults, an adega.yaml
// file, ADEGA_ environment variables and command-line flags.
package config

import (
	"time"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/pipeline"
)

// Default configuration values.
const (
	DefaultDataDir    = "data"
	DefaultOutputDir  = "output"
	DefaultModelsDir  = "output/models"
	DefaultReportsDir = "output/reports"
	DefaultStateFile  = "output/adega.db"
	DefaultLogLevel   = "info"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultAddr       = ":8080"
)

// FeaturesConfig toggles the feature derivation families.
type FeaturesConfig struct {
	Temporal     bool `koanf:"temporal"`
	Aggregated   bool `koanf:"aggregated"`
	Interactions bool `koanf:"interactions"`
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// Config holds all CLI configuration options.
type Config struct {
	DataDir       string         `koanf:"data_dir"`
	CustomersFile string         `koanf:"customers_file"`
	ProductsFile  string         `koanf:"products_file"`
	PurchasesFile string         `koanf:"purchases_file"`
	Delimiter     string         `koanf:"delimiter"`
	OutputDir     string         `koanf:"output_dir"`
	ModelsDir     string         `koanf:"models_dir"`
	ReportsDir    string         `koanf:"reports_dir"`
	ModelPath     string         `koanf:"model_path"` // empty: newest bundle in models_dir
	StatePath     string         `koanf:"state_path"`
	TestSize      float64        `koanf:"test_size"`
	RandomState   int64          `koanf:"random_state"`
	CVFolds       int            `koanf:"cv_folds"`
	Models        []string       `koanf:"models"`
	Features      FeaturesConfig `koanf:"features"`
	LogLevel      string         `koanf:"log_level"`
	OutputFormat  string         `koanf:"output"`
	Server        ServerConfig   `koanf:"server"`
}

// Dataset returns the loader configuration.
func (c *Config) Dataset() dataset.Config {
	return dataset.Config{
		DataDir:       c.DataDir,
		CustomersFile: c.CustomersFile,
		ProductsFile:  c.ProductsFile,
		PurchasesFile: c.PurchasesFile,
		Delimiter:     c.Delimiter,
	}
}

// FeatureOptions returns the engineer options.
func (c *Config) FeatureOptions() features.Options {
	return features.Options{
		Temporal:     c.Features.Temporal,
		Aggregated:   c.Features.Aggregated,
		Interactions: c.Features.Interactions,
	}
}

// Pipeline returns the training pipeline configuration without store or
// logger.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Data:       c.Dataset(),
		Features:   c.FeatureOptions(),
		TestSize:   c.TestSize,
		Seed:       c.RandomState,
		CVFolds:    c.CVFolds,
		Models:     c.Models,
		ModelsDir:  c.ModelsDir,
		ReportsDir: c.ReportsDir,
	}
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":                   DefaultDataDir,
		"customers_file":             dataset.DefaultCustomersFile,
		"products_file":              dataset.DefaultProductsFile,
		"purchases_file":             dataset.DefaultPurchasesFile,
		"delimiter":                  dataset.DefaultDelimiter,
		"output_dir":                 DefaultOutputDir,
		"models_dir":                 DefaultModelsDir,
		"reports_dir":                DefaultReportsDir,
		"model_path":                 "",
		"state_path":                 DefaultStateFile,
		"test_size":                  pipeline.DefaultTestSize,
		"random_state":               pipeline.DefaultSeed,
		"cv_folds":                   pipeline.DefaultCVFolds,
		"features.temporal":          true,
		"features.aggregated":        true,
		"features.interactions":      true,
		"log_level":                  DefaultLogLevel,
		"output":                     DefaultOutput,
		"server.addr":                DefaultAddr,
		"server.read_header_timeout": "10s",
	}
}
