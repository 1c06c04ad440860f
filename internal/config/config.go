// Package config provides centralized configuration management using
// Viper. Precedence: environment > project config > global config >
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for cozmogo.
type Config struct {
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`

	Session     string `mapstructure:"session" yaml:"session"`
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	HistoryFile string `mapstructure:"history_file" yaml:"history_file,omitempty"`

	Persona  string `mapstructure:"persona" yaml:"persona,omitempty"`
	UseTools bool   `mapstructure:"use_tools" yaml:"use_tools"`

	WebAddr   string `mapstructure:"web_addr" yaml:"web_addr"`
	EnableMCP bool   `mapstructure:"enable_mcp" yaml:"enable_mcp"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

var configKeys = []string{
	"model", "api_key", "max_tokens", "session", "data_dir", "history_file",
	"persona", "use_tools", "web_addr", "enable_mcp", "log_level", "log_file",
}

// Load loads configuration with full precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("cozmogo")

	v.SetDefault("model", "claude-sonnet-4-20250514")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("session", "default")
	v.SetDefault("data_dir", ".cozmogo")
	v.SetDefault("history_file", "")
	v.SetDefault("persona", "")
	v.SetDefault("use_tools", false)
	v.SetDefault("web_addr", "127.0.0.1:8090")
	v.SetDefault("enable_mcp", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("COZMOGO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range configKeys {
		if err := v.BindEnv(key, "COZMOGO_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// The API key is a secret, so the conventional env var fills it when
	// no config source set one.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path:
// $XDG_CONFIG_HOME/cozmogo/cozmogo.yml or ~/.config/cozmogo/cozmogo.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cozmogo", "cozmogo.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cozmogo", "cozmogo.yml")
}

// ProjectPath returns the project-local config path in the working
// directory.
func ProjectPath() string {
	return "cozmogo.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return writeFile(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return writeFile(ProjectPath(), cfg)
}

func writeFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
