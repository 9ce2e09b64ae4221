/*
Package config manages the TOML config for tabserve.
*/
package config

import (
	"fmt"
	"path/filepath"

	"github.com/bastiangx/tabserve/internal/utils"
	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/charmbracelet/log"
)

// FileName is the name of the config file inside the config dir.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Completion CompletionConfig `toml:"completion"`
	Server     ServerConfig     `toml:"server"`
	Dict       DictConfig       `toml:"dict"`
	Store      StoreConfig      `toml:"store"`
	CLI        CliConfig        `toml:"cli"`
}

// CompletionConfig holds the defaults of every new completion session.
type CompletionConfig struct {
	Mode       string `toml:"mode"`
	Order      string `toml:"order"`
	IgnoreCase bool   `toml:"ignore_case"`
	Sounds     bool   `toml:"sounds"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxQuery    int `toml:"max_query"`
	MaxSessions int `toml:"max_sessions"`
	MaxItems    int `toml:"max_items"`
}

// DictConfig lists the word lists loaded into new sessions.
type DictConfig struct {
	Files  []string `toml:"files"`
	Prefix string   `toml:"prefix"`
}

// StoreConfig holds the SQLite list store options.
type StoreConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	ShowWeights bool `toml:"show_weights"`
	MaxListed   int  `toml:"max_listed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Completion: CompletionConfig{
			Mode:       completion.ModeAuto.String(),
			Order:      completion.Insertion.String(),
			IgnoreCase: false,
			Sounds:     true,
		},
		Server: ServerConfig{
			MaxQuery:    256,
			MaxSessions: 64,
			MaxItems:    100000,
		},
		Dict: DictConfig{
			Files: []string{},
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "lists.db",
		},
		CLI: CliConfig{
			ShowWeights: false,
			MaxListed:   24,
		},
	}
}

// Validate checks values that cannot be repaired silently.
func (c *Config) Validate() error {
	if _, err := completion.ParseMode(c.Completion.Mode); err != nil {
		return fmt.Errorf("completion.mode: %w", err)
	}
	if _, err := completion.ParseOrder(c.Completion.Order); err != nil {
		return fmt.Errorf("completion.order: %w", err)
	}
	if c.Server.MaxQuery < 1 {
		return fmt.Errorf("server.max_query must be positive, got %d", c.Server.MaxQuery)
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be positive, got %d", c.Server.MaxSessions)
	}
	return nil
}

// Options turns the completion section into engine options. Invalid names
// fall back to the defaults.
func (c *Config) Options() []completion.Option {
	mode, err := completion.ParseMode(c.Completion.Mode)
	if err != nil {
		log.Warnf("%v, using %s", err, completion.ModeAuto)
		mode = completion.ModeAuto
	}
	order, err := completion.ParseOrder(c.Completion.Order)
	if err != nil {
		log.Warnf("%v, using %s", err, completion.Insertion)
		order = completion.Insertion
	}
	return []completion.Option{
		completion.WithMode(mode),
		completion.WithOrder(order),
		completion.WithIgnoreCase(c.Completion.IgnoreCase),
		completion.WithSounds(c.Completion.Sounds),
	}
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/tabserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string, pr *utils.PathResolver) (*Config, string, error) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customConfigPath)
		}
	}

	if pr == nil {
		return DefaultConfig(), "", nil
	}
	defaultPath, err := pr.GetConfigPath(FileName)
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at %s: %v. Using builtin defaults...", defaultPath, err)
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

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. A file that fails to decode as a whole
// is parsed section by section, keeping defaults for anything unreadable.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "completion"); ok {
		extractCompletionConfig(section, &config.Completion)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "dict"); ok {
		extractDictConfig(section, &config.Dict)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		extractStoreConfig(section, &config.Store)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractCompletionConfig(data map[string]any, c *CompletionConfig) {
	if val, ok := utils.ExtractString(data, "mode"); ok {
		if _, err := completion.ParseMode(val); err == nil {
			c.Mode = val
		}
	}
	if val, ok := utils.ExtractString(data, "order"); ok {
		if _, err := completion.ParseOrder(val); err == nil {
			c.Order = val
		}
	}
	if val, ok := utils.ExtractBool(data, "ignore_case"); ok {
		c.IgnoreCase = val
	}
	if val, ok := utils.ExtractBool(data, "sounds"); ok {
		c.Sounds = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_query"); ok && val > 0 {
		server.MaxQuery = val
	}
	if val, ok := utils.ExtractInt64(data, "max_sessions"); ok && val > 0 {
		server.MaxSessions = val
	}
	if val, ok := utils.ExtractInt64(data, "max_items"); ok {
		server.MaxItems = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractStrings(data, "files"); ok {
		dict.Files = val
	}
	if val, ok := utils.ExtractString(data, "prefix"); ok {
		dict.Prefix = val
	}
}

func extractStoreConfig(data map[string]any, store *StoreConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		store.Enabled = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		store.Path = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractBool(data, "show_weights"); ok {
		cli.ShowWeights = val
	}
	if val, ok := utils.ExtractInt64(data, "max_listed"); ok {
		cli.MaxListed = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
