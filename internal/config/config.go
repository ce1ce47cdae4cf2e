package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/replyparse/core/alias"
	"github.com/leofalp/replyparse/core/parser"
	"github.com/leofalp/replyparse/core/sanitize"
	"github.com/leofalp/replyparse/providers/observability/slogobs"
)

// Alias store backends.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the CLI configuration.
type Config struct {
	Parser  ParserConfig  `mapstructure:"parser" yaml:"parser"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Aliases AliasesConfig `mapstructure:"aliases" yaml:"aliases"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
}

// ParserConfig tunes the parsing pipeline.
type ParserConfig struct {
	Strategy        string  `mapstructure:"strategy" yaml:"strategy"`
	FuzzyMatching   bool    `mapstructure:"fuzzy_matching" yaml:"fuzzy_matching"`
	FuzzyThreshold  float64 `mapstructure:"fuzzy_threshold" yaml:"fuzzy_threshold"`
	DynamicLearning bool    `mapstructure:"dynamic_learning" yaml:"dynamic_learning"`
	Inference       bool    `mapstructure:"inference" yaml:"inference"`
	FixUnicode      bool    `mapstructure:"fix_unicode" yaml:"fix_unicode"`
	StripHTML       bool    `mapstructure:"strip_html" yaml:"strip_html"`
	DetailedLogging bool    `mapstructure:"detailed_logging" yaml:"detailed_logging"`
}

// LogConfig selects the slogobs level and format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AliasesConfig selects where learned aliases are persisted.
type AliasesConfig struct {
	// Backend is one of none, file or sqlite.
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the alias file (.yaml, .yml, .json) or the database file.
	Path string `mapstructure:"path" yaml:"path"`
	// Watch merges external edits of an alias file while a batch runs.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// BatchConfig tunes the batch command.
type BatchConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Parser: ParserConfig{
			Strategy:        parser.Adaptive.String(),
			FuzzyMatching:   true,
			FuzzyThreshold:  alias.DefaultFuzzyThreshold,
			DynamicLearning: true,
			FixUnicode:      true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(slogobs.FormatCompact),
		},
		Aliases: AliasesConfig{
			Backend: BackendNone,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := parser.ParseStrategy(c.Parser.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Parser.FuzzyThreshold < 0 || c.Parser.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("parser.fuzzy_threshold must be within [0, 1], got %v", c.Parser.FuzzyThreshold))
	}
	switch c.Aliases.Backend {
	case BackendNone:
	case BackendFile, BackendSQLite:
		if strings.TrimSpace(c.Aliases.Path) == "" {
			errs = append(errs, fmt.Errorf("aliases.path is required for the %s backend", c.Aliases.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown aliases.backend %q", c.Aliases.Backend))
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers))
	}
	return errors.Join(errs...)
}

// Strategy returns the configured strategy, Adaptive when it does not parse.
func (c *Config) Strategy() parser.Strategy {
	s, err := parser.ParseStrategy(c.Parser.Strategy)
	if err != nil {
		return parser.Adaptive
	}
	return s
}

// CleanOptions returns the sanitizer options.
func (c *Config) CleanOptions() sanitize.Options {
	return sanitize.Options{
		FixUnicode:      c.Parser.FixUnicode,
		StripHTML:       c.Parser.StripHTML,
		DetailedLogging: c.Parser.DetailedLogging,
	}
}

// MappingOptions returns the alias mapping options.
func (c *Config) MappingOptions() alias.Options {
	return alias.Options{
		FuzzyMatching:   c.Parser.FuzzyMatching,
		FuzzyThreshold:  c.Parser.FuzzyThreshold,
		DynamicLearning: c.Parser.DynamicLearning,
		DetailedLogging: c.Parser.DetailedLogging,
	}
}

// ParserOptions returns the parser options for this configuration.
func (c *Config) ParserOptions() []parser.Option {
	return []parser.Option{
		parser.WithCleanOptions(c.CleanOptions()),
		parser.WithMappingOptions(c.MappingOptions()),
		parser.WithInference(c.Parser.Inference),
	}
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	return slogobs.ParseLogLevel(c.Log.Level)
}

// LogFormat returns the configured slogobs format.
func (c *Config) LogFormat() slogobs.Format {
	return slogobs.ParseFormat(c.Log.Format)
}
