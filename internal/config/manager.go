package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: parser.strategy is read
// from REPLYPARSE_PARSER_STRATEGY, log.level from REPLYPARSE_LOG_LEVEL.
const EnvPrefix = "REPLYPARSE"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	onError   func(error)
}

// NewManager creates a config manager and loads the initial config. An
// empty cfgFile searches for replyparse.yaml in the working directory and
// in $HOME/.replyparse; a missing file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	d := DefaultConfig()
	defaults := map[string]any{
		"parser.strategy":         d.Parser.Strategy,
		"parser.fuzzy_matching":   d.Parser.FuzzyMatching,
		"parser.fuzzy_threshold":  d.Parser.FuzzyThreshold,
		"parser.dynamic_learning": d.Parser.DynamicLearning,
		"parser.inference":        d.Parser.Inference,
		"parser.fix_unicode":      d.Parser.FixUnicode,
		"parser.strip_html":       d.Parser.StripHTML,
		"parser.detailed_logging": d.Parser.DetailedLogging,
		"log.level":               d.Log.Level,
		"log.format":              d.Log.Format,
		"aliases.backend":         d.Aliases.Backend,
		"aliases.path":            d.Aliases.Path,
		"aliases.watch":           d.Aliases.Watch,
		"batch.workers":           d.Batch.Workers,
	}
	for key, value := range defaults {
		cm.v.SetDefault(key, value)
	}

	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("replyparse")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.replyparse")
	}

	// Try to read config file (not required)
	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a validated Config.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// File returns the config file in use, or "" when running on defaults.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// Set overrides a key for the rest of the process, e.g. from a CLI flag,
// and reloads.
func (cm *Manager) Set(key string, value any) error {
	cm.v.Set(key, value)
	cfg, err := cm.load()
	if err != nil {
		return err
	}
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()
	return nil
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// OnError registers a callback for reloads that fail; the previous config
// stays in effect.
func (cm *Manager) OnError(fn func(error)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onError = fn
}

// WatchConfig enables hot-reloading of configuration. It reports false when
// there is no config file to watch.
func (cm *Manager) WatchConfig() bool {
	if cm.v.ConfigFileUsed() == "" {
		return false
	}
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			onError := cm.onError
			cm.mu.RUnlock()
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
	return true
}
