/*
Package config manages the TOML config for henkan.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/engine"
	"github.com/bastiangx/henkan/pkg/lattice"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Engine EngineConfig           `toml:"engine"`
	Dict   DictConfig             `toml:"dict"`
	Learn  dictionary.LearnPolicy `toml:"learn"`
	Server ServerConfig           `toml:"server"`
	CLI    CliConfig              `toml:"cli"`
}

// EngineConfig has conversion options.
type EngineConfig struct {
	AmbiguousSearch        bool           `toml:"ambiguous_search"`
	UseInputAsTopCandidate bool           `toml:"use_input_as_top_candidate"`
	AutoSave               bool           `toml:"auto_save"`
	Limits                 lattice.Limits `toml:"limits"`
	Tuning                 engine.Tuning  `toml:"tuning"`
}

// AddressBookEntry is one [[dict.address_book]] record.
type AddressBookEntry struct {
	Name     string `toml:"name"`
	Phonetic string `toml:"phonetic"`
}

// DictConfig holds dictionary locations.
type DictConfig struct {
	SystemPaths     []string           `toml:"system_paths"`
	AdditionalPaths []string           `toml:"additional_paths"`
	LearnDir        string             `toml:"learn_dir"`
	AddressBook     []AddressBookEntry `toml:"address_book"`
}

// ServerConfig has IPC server options. This section is hot reloaded.
type ServerConfig struct {
	MaxCandidates int  `toml:"max_candidates"`
	NoPrediction  bool `toml:"no_prediction"`
	WatchConfig   bool `toml:"watch_config"`
}

// CliConfig holds interactive shell options.
type CliConfig struct {
	PageSize    int  `toml:"page_size"`
	ShowWeights bool `toml:"show_weights"`
	ShowWords   bool `toml:"show_words"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Limits: lattice.DefaultLimits(),
			Tuning: engine.DefaultTuning(),
		},
		Dict: DictConfig{
			SystemPaths: []string{"dict"},
		},
		Learn: dictionary.DefaultLearnPolicy(),
		Server: ServerConfig{
			MaxCandidates: 20,
			WatchConfig:   true,
		},
		CLI: CliConfig{
			PageSize:    9,
			ShowWeights: true,
		},
	}
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	if c.Server.MaxCandidates <= 0 {
		return fmt.Errorf("server.max_candidates must be positive, got %d", c.Server.MaxCandidates)
	}
	if c.CLI.PageSize <= 0 {
		return fmt.Errorf("cli.page_size must be positive, got %d", c.CLI.PageSize)
	}
	if c.Learn.Step < 0 {
		return fmt.Errorf("learn.step must not be negative, got %d", c.Learn.Step)
	}
	if c.Learn.MinCost > c.Learn.InitialCost {
		return fmt.Errorf("learn.min_cost %d is above learn.initial_cost %d", c.Learn.MinCost, c.Learn.InitialCost)
	}
	if c.Engine.Limits.MaxInput < 0 || c.Engine.Limits.MaxNodesPerOffset < 0 || c.Engine.Limits.MaxPredictions < 0 {
		return fmt.Errorf("engine.limits must not be negative")
	}
	return nil
}

// EngineOptions converts the config into engine construction options.
func (c *Config) EngineOptions() engine.Options {
	opts := engine.Options{
		AmbiguousSearch:        c.Engine.AmbiguousSearch,
		UseInputAsTopCandidate: c.Engine.UseInputAsTopCandidate,
		AdditionalDictPaths:    c.Dict.AdditionalPaths,
		AutoSave:               c.Engine.AutoSave,
		Limits:                 c.Engine.Limits,
		Learn:                  c.Learn,
		Tuning:                 c.Engine.Tuning,
	}
	for _, a := range c.Dict.AddressBook {
		opts.AddressBook = append(opts.AddressBook, dictionary.NamePhonetic{Name: a.Name, Phonetic: a.Phonetic})
	}
	return opts
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/henkan
// 2. ~/Library/Application Support/henkan (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", utils.AppName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", utils.AppName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, FileName), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/henkan/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. A file that does not decode as a whole
// is recovered section by section; values that still validate poorly fail.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		log.Debugf("Strict decode of %s failed: %v", configPath, err)
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse keeps every key that still parses and falls back to defaults for the rest.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(section, &config.Engine)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "learn"); ok {
		extractLearnPolicy(section, &config.Learn)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config
}

func setInt(data map[string]any, key string, dst *int) {
	if val, ok := utils.ExtractInt64(data, key); ok {
		*dst = val
	}
}

func setBool(data map[string]any, key string, dst *bool) {
	if val, ok := utils.ExtractBool(data, key); ok {
		*dst = val
	}
}

func extractEngineConfig(data map[string]any, eng *EngineConfig) {
	setBool(data, "ambiguous_search", &eng.AmbiguousSearch)
	setBool(data, "use_input_as_top_candidate", &eng.UseInputAsTopCandidate)
	setBool(data, "auto_save", &eng.AutoSave)
	if limits, ok := utils.ExtractSection(data, "limits"); ok {
		setInt(limits, "max_input", &eng.Limits.MaxInput)
		setInt(limits, "max_nodes_per_offset", &eng.Limits.MaxNodesPerOffset)
		setInt(limits, "max_predictions", &eng.Limits.MaxPredictions)
		setInt(limits, "max_continuations", &eng.Limits.MaxContinuations)
		setInt(limits, "prediction_penalty", &eng.Limits.PredictionPenalty)
		setInt(limits, "continuation_penalty", &eng.Limits.ContinuationPenalty)
		setInt(limits, "context_bonus", &eng.Limits.ContextBonus)
	}
	if tuning, ok := utils.ExtractSection(data, "tuning"); ok {
		setInt(tuning, "ambiguity_penalty", &eng.Tuning.AmbiguityPenalty)
		setInt(tuning, "address_book_cost", &eng.Tuning.AddressBookCost)
		setInt(tuning, "max_expansions", &eng.Tuning.MaxExpansions)
		setInt(tuning, "prediction_limit", &eng.Tuning.PredictionLimit)
		if val, ok := utils.ExtractInt64(tuning, "proper_noun_attr"); ok && val >= 0 && val <= 0xFFFF {
			eng.Tuning.ProperNounAttr = uint16(val)
		}
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractStrings(data, "system_paths"); ok {
		dict.SystemPaths = val
	}
	if val, ok := utils.ExtractStrings(data, "additional_paths"); ok {
		dict.AdditionalPaths = val
	}
	if val, ok := utils.ExtractString(data, "learn_dir"); ok {
		dict.LearnDir = val
	}
	if list, ok := data["address_book"].([]map[string]any); ok {
		for _, item := range list {
			name, _ := utils.ExtractString(item, "name")
			phonetic, _ := utils.ExtractString(item, "phonetic")
			dict.AddressBook = append(dict.AddressBook, AddressBookEntry{Name: name, Phonetic: phonetic})
		}
	}
}

func extractLearnPolicy(data map[string]any, learn *dictionary.LearnPolicy) {
	setInt(data, "initial_cost", &learn.InitialCost)
	setInt(data, "step", &learn.Step)
	setInt(data, "min_cost", &learn.MinCost)
	setInt(data, "max_entries", &learn.MaxEntries)
	setInt(data, "decay_every", &learn.DecayEvery)
	setInt(data, "decay_step", &learn.DecayStep)
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	setInt(data, "max_candidates", &server.MaxCandidates)
	setBool(data, "no_prediction", &server.NoPrediction)
	setBool(data, "watch_config", &server.WatchConfig)
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	setInt(data, "page_size", &cli.PageSize)
	setBool(data, "show_weights", &cli.ShowWeights)
	setBool(data, "show_words", &cli.ShowWords)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
