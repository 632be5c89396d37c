package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	defaultSettingsDirName = "voxctl"
	defaultSettingsFile    = "config.yaml"
)

// Settings holds voxctl's own knobs, separate from the Claude credential
// material under the config root.
type Settings struct {
	Model        string `yaml:"model,omitempty"`
	MaxTokens    int    `yaml:"max-tokens,omitempty"`
	OutputFormat string `yaml:"output-format,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Model:        "claude-haiku-4-5-20251001",
		MaxTokens:    1024,
		OutputFormat: "text",
	}
}

func DefaultSettingsPath() string {
	if env := os.Getenv("VOXCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultSettingsDirName, defaultSettingsFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".voxctl", defaultSettingsFile)
}

func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New("settings path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	settings := DefaultSettings()
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &settings, nil
}

func SaveSettings(path string, settings *Settings) error {
	if settings == nil {
		return errors.New("settings is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	content, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}
