/*
Package config manages the TOML config for keyserve.

Loading never fails hard: a missing file is created with defaults, a file
that doesn't decode is read section by section, and anything unusable falls
back to the built-in defaults.
*/
package config

import (
	"path/filepath"
	"time"

	"github.com/bastiangx/keyserve/internal/utils"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/predict"
	"github.com/bastiangx/keyserve/pkg/session"
	"github.com/bastiangx/keyserve/pkg/worker"
	"github.com/charmbracelet/log"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Session SessionConfig `toml:"session"`
	Server  ServerConfig  `toml:"server"`
}

// EngineConfig holds search limits and engine sizing.
type EngineConfig struct {
	MaxSuggestions int `toml:"max_suggestions"`
	MaxCandidates  int `toml:"max_candidates"`
	MaxCorrections int `toml:"max_corrections"`
	CacheSize      int `toml:"cache_size"`
	BatchSize      int `toml:"batch_size"`
}

// SessionConfig holds input session behaviour.
type SessionConfig struct {
	Suggest                 bool    `toml:"suggest"`
	Correct                 bool    `toml:"correct"`
	DoubleSpaceMs           int     `toml:"double_space_ms"`
	AutoRepeatDelayMs       int     `toml:"autorepeat_delay_ms"`
	IdleTimeoutMs           int     `toml:"idle_timeout_ms"`
	AutoCorrectThreshold    float64 `toml:"auto_correct_threshold"`
	MinLengthMismatchWeight float64 `toml:"min_length_mismatch_weight"`
	MaxDisplayed            int     `toml:"max_displayed"`
	Layout                  string  `toml:"layout"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxInput int    `toml:"max_input"`
	DictDir  string `toml:"dict_dir"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxSuggestions: predict.DefaultLimits.MaxSuggestions,
			MaxCandidates:  predict.DefaultLimits.MaxCandidates,
			MaxCorrections: predict.DefaultLimits.MaxCorrections,
			CacheSize:      predict.DefaultCacheSize,
			BatchSize:      predict.DefaultBatchSize,
		},
		Session: SessionConfig{
			Suggest:                 true,
			Correct:                 true,
			DoubleSpaceMs:           700,
			AutoRepeatDelayMs:       250,
			IdleTimeoutMs:           30000,
			AutoCorrectThreshold:    1.30,
			MinLengthMismatchWeight: 5,
			MaxDisplayed:            3,
			Layout:                  "qwerty",
		},
		Server: ServerConfig{
			MaxInput: 60,
			DictDir:  "dictionaries",
		},
	}
}

// Limits are the search limits every prediction runs with.
func (c *Config) Limits() predict.Limits {
	return predict.Limits{
		MaxSuggestions: c.Engine.MaxSuggestions,
		MaxCandidates:  c.Engine.MaxCandidates,
		MaxCorrections: c.Engine.MaxCorrections,
	}
}

// WorkerOptions configures the engine goroutine.
func (c *Config) WorkerOptions() worker.Options {
	return worker.Options{
		Engine: predict.Options{CacheSize: c.Engine.CacheSize, BatchSize: c.Engine.BatchSize},
		Limits: c.Limits(),
	}
}

// SessionConfig builds the controller settings. dictDir replaces the
// configured dictionary directory when not empty.
func (c *Config) SessionConfig(dictDir string) session.Config {
	if dictDir == "" {
		dictDir = c.Server.DictDir
	}
	cfg := session.Config{
		DictionaryDir:        dictDir,
		DoubleSpace:          time.Duration(c.Session.DoubleSpaceMs) * time.Millisecond,
		AutoRepeatDelay:      time.Duration(c.Session.AutoRepeatDelayMs) * time.Millisecond,
		IdleTimeout:          time.Duration(c.Session.IdleTimeoutMs) * time.Millisecond,
		AutoCorrectThreshold: c.Session.AutoCorrectThreshold,
		MinMismatchWeight:    c.Session.MinLengthMismatchWeight,
		MaxDisplayed:         c.Session.MaxDisplayed,
		Worker:               c.WorkerOptions(),
	}
	if layout, ok := keys.Named(c.Session.Layout); ok {
		cfg.Layout = layout
	} else {
		log.Warnf("Unknown layout %q, using qwerty", c.Session.Layout)
	}
	return cfg
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/keyserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customPath string) (*Config, string) {
	if customPath != "" {
		if utils.FileExists(customPath) {
			cfg, err := LoadConfig(customPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customPath)
				return cfg, customPath
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customPath, err)
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customPath)
		}
	}

	resolver, err := utils.NewPathResolver()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), ""
	}
	defaultPath := resolver.ConfigPath(FileName)
	cfg := InitConfig(defaultPath)
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return cfg, defaultPath
}

// InitConfig loads config from file, creating it with defaults if missing.
func InitConfig(path string) *Config {
	if status := utils.CheckDirStatus(filepath.Dir(path)); !status.Exists {
		log.Warnf("Failed to create config directory for %s: %v. Using built-in defaults...", path, status.Error)
		return DefaultConfig()
	}

	if !utils.FileExists(path) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, path); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", path, err)
		} else {
			log.Debugf("Created default config file at: %s", path)
		}
		return cfg
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", path, err)
		return DefaultConfig()
	}
	return cfg
}

// LoadConfig loads from a TOML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := utils.LoadTOMLFile(path, cfg); err != nil {
		return tryPartialParse(path)
	}
	return cfg, nil
}

// tryPartialParse keeps every value whose type is right and defaults the rest.
func tryPartialParse(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := utils.ParseTOMLWithRecovery(path)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", path, err)
		return cfg, nil
	}

	if section, ok := utils.ExtractSection(raw, "engine"); ok {
		extractEngineConfig(section, &cfg.Engine)
	}
	if section, ok := utils.ExtractSection(raw, "session"); ok {
		extractSessionConfig(section, &cfg.Session)
	}
	if section, ok := utils.ExtractSection(raw, "server"); ok {
		extractServerConfig(section, &cfg.Server)
	}
	return cfg, nil
}

func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	ints := map[string]*int{
		"max_suggestions": &engine.MaxSuggestions,
		"max_candidates":  &engine.MaxCandidates,
		"max_corrections": &engine.MaxCorrections,
		"cache_size":      &engine.CacheSize,
		"batch_size":      &engine.BatchSize,
	}
	for key, dst := range ints {
		if val, ok := utils.ExtractInt64(data, key); ok {
			*dst = val
		}
	}
}

func extractSessionConfig(data map[string]any, s *SessionConfig) {
	if val, ok := utils.ExtractBool(data, "suggest"); ok {
		s.Suggest = val
	}
	if val, ok := utils.ExtractBool(data, "correct"); ok {
		s.Correct = val
	}
	if val, ok := utils.ExtractInt64(data, "double_space_ms"); ok {
		s.DoubleSpaceMs = val
	}
	if val, ok := utils.ExtractInt64(data, "autorepeat_delay_ms"); ok {
		s.AutoRepeatDelayMs = val
	}
	if val, ok := utils.ExtractInt64(data, "idle_timeout_ms"); ok {
		s.IdleTimeoutMs = val
	}
	if val, ok := utils.ExtractFloat64(data, "auto_correct_threshold"); ok {
		s.AutoCorrectThreshold = val
	}
	if val, ok := utils.ExtractFloat64(data, "min_length_mismatch_weight"); ok {
		s.MinLengthMismatchWeight = val
	}
	if val, ok := utils.ExtractInt64(data, "max_displayed"); ok {
		s.MaxDisplayed = val
	}
	if val, ok := utils.ExtractString(data, "layout"); ok {
		s.Layout = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_input"); ok {
		server.MaxInput = val
	}
	if val, ok := utils.ExtractString(data, "dict_dir"); ok {
		server.DictDir = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(cfg *Config, path string) error {
	return utils.SaveTOMLFile(cfg, path)
}

// RebuildConfigFile overwrites path with the defaults.
func RebuildConfigFile(path string) error {
	if status := utils.CheckDirStatus(filepath.Dir(path)); status.Error != nil {
		return status.Error
	}
	return SaveConfig(DefaultConfig(), path)
}

// ActivePath describes where the config came from, for display.
func ActivePath(path string) string {
	if path == "" {
		return "built-in defaults"
	}
	return utils.AbsolutePath(path)
}
