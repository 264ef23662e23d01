package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// RawIndicator is a single entry from a yearly/quarterly/monthly list before
// normalization. Optional fields are nil when the document omits them, so the
// normalizer can tell "absent" from "zero".
type RawIndicator struct {
	ID         string
	Name       *string
	Source     *int
	Multiplier *float64
	Precision  *int
}

type Options struct {
	Aggregates bool
}

type Config struct {
	Options   Options
	Economies []string
	Yearly    []RawIndicator
	Quarterly []RawIndicator
	Monthly   []RawIndicator
}

// Load reads the report configuration document. Order of precedence
// (low -> high):
//  1. file (YAML)
//  2. env (prefix CHARTBOOK_, underscores map to key separators, so
//     CHARTBOOK_OPTIONS_AGGREGATES overrides options.aggregates)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	envProvider := env.Provider("CHARTBOOK_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "CHARTBOOK_"))
		return strings.ReplaceAll(s, "_", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Options:   Options{Aggregates: k.Bool("options.aggregates")},
		Economies: k.Strings("economies"),
	}

	var err error
	if cfg.Yearly, err = parseEntries("yearly", k.Get("yearly")); err != nil {
		return nil, err
	}
	if cfg.Quarterly, err = parseEntries("quarterly", k.Get("quarterly")); err != nil {
		return nil, err
	}
	if cfg.Monthly, err = parseEntries("monthly", k.Get("monthly")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseEntries(key string, raw any) ([]RawIndicator, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("config: %s must be a list", key)
	}

	entries := make([]RawIndicator, 0, len(items))
	for i, item := range items {
		entry, err := parseEntry(item)
		if err != nil {
			return nil, fmt.Errorf("config: %s[%d]: %w", key, i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseEntry(item any) (RawIndicator, error) {
	switch typed := item.(type) {
	case string:
		id := strings.TrimSpace(typed)
		if id == "" {
			return RawIndicator{}, errors.New("empty indicator id")
		}
		return RawIndicator{ID: id}, nil
	case map[string]any:
		id, ok := stringField(typed, "id")
		if !ok {
			return RawIndicator{}, errors.New("indicator id is required")
		}
		entry := RawIndicator{ID: id}
		if name, ok := stringField(typed, "name"); ok {
			entry.Name = &name
		}
		if source, ok := intField(typed, "source"); ok {
			entry.Source = &source
		}
		if multiplier, ok := floatField(typed, "multiplier"); ok {
			entry.Multiplier = &multiplier
		}
		if precision, ok := intField(typed, "precision"); ok {
			entry.Precision = &precision
		}
		return entry, nil
	default:
		return RawIndicator{}, fmt.Errorf("unexpected entry type %T", item)
	}
}

func stringField(row map[string]any, key string) (string, bool) {
	value, ok := row[key]
	if !ok {
		return "", false
	}
	typed, ok := value.(string)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(typed)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func intField(row map[string]any, key string) (int, bool) {
	value, ok := row[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func floatField(row map[string]any, key string) (float64, bool) {
	value, ok := row[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}
