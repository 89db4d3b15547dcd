package trainer

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Harley062/projeto-IA-Adega/internal/evaluate"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
)

// ErrModelNotFound is returned when no persisted model exists at a path.
var ErrModelNotFound = errors.New("model not found")

// SchemaFile is the human-readable schema written next to each bundle.
const SchemaFile = "feature_schema.yaml"

const bundlePrefix = "best_model_"

// Bundle is the persisted unit read by the predictors: the fitted model,
// the schema it was trained against and a few facts about the run.
type Bundle struct {
	Name      string
	Model     ml.Classifier
	Schema    *features.Schema
	Metrics   evaluate.Metrics
	Params    string
	RunID     string
	TrainedAt time.Time
}

// BundleFile returns the file name for a model, e.g.
// "best_model_Gradient_Boosting.gob".
func BundleFile(name string) string {
	return bundlePrefix + strings.ReplaceAll(name, " ", "_") + ".gob"
}

// SaveModel writes the bundle into dir and returns its path. The schema is
// also written to SchemaFile for inspection.
func SaveModel(b *Bundle, dir string) (string, error) {
	if b == nil || b.Model == nil {
		return "", errors.New("nothing to save: bundle has no model")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	path := filepath.Join(dir, BundleFile(b.Name))
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to encode model bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move model file into place: %w", err)
	}

	if b.Schema != nil {
		data, err := yaml.Marshal(schemaDoc{Model: b.Name, TrainedAt: b.TrainedAt, Schema: b.Schema})
		if err != nil {
			return "", fmt.Errorf("failed to encode feature schema: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, SchemaFile), data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write feature schema: %w", err)
		}
	}
	return path, nil
}

type schemaDoc struct {
	Model     string           `yaml:"model"`
	TrainedAt time.Time        `yaml:"trained_at"`
	Schema    *features.Schema `yaml:"schema"`
}

// LoadModel reads a bundle written by SaveModel.
func LoadModel(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (train a model first)", ErrModelNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var b Bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode model bundle %s: %w", path, err)
	}
	if b.Model == nil || b.Schema == nil {
		return nil, fmt.Errorf("model bundle %s is incomplete", path)
	}
	return &b, nil
}

// FindModel returns the most recently written bundle in dir.
func FindModel(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, bundlePrefix+"*.gob"))
	if err != nil {
		return "", fmt.Errorf("failed to search for models: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no %s*.gob in %s (train a model first)", ErrModelNotFound, bundlePrefix, dir)
	}

	type entry struct {
		path string
		mod  time.Time
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: m, mod: info.ModTime()})
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, dir)
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].mod.Equal(entries[b].mod) {
			return entries[a].path < entries[b].path
		}
		return entries[a].mod.After(entries[b].mod)
	})
	return entries[0].path, nil
}
