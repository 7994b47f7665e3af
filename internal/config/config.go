// SPDX-License-Identifier: MPL-2.0

// Package config loads the convey tool configuration (not pipeline files —
// those live in internal/pipeline). Precedence: defaults, then the config
// file, then CONVEY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"convey-cli/internal/issue"
	rt "convey-cli/internal/runtime"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "convey"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
)

type (
	// Config is the tool configuration.
	Config struct {
		// DefaultRuntime selects the step runner: "native" or "virtual".
		DefaultRuntime string `mapstructure:"default_runtime"`

		// Jobs bounds concurrent matrix jobs. 1 runs the matrix sequentially.
		Jobs int `mapstructure:"jobs"`

		// ScratchDir is the root for per-job scratch directories.
		// Empty means the OS temp directory.
		ScratchDir string `mapstructure:"scratch_dir"`

		// UI holds output-related settings.
		UI UIConfig `mapstructure:"ui"`
	}

	// UIConfig holds output-related settings.
	UIConfig struct {
		// ColorScheme is "auto", "always" or "never".
		ColorScheme string `mapstructure:"color_scheme"`

		// Verbose enables per-step debug logging.
		Verbose bool `mapstructure:"verbose"`
	}
)

var (
	// configDirOverride allows tests to redirect the config directory.
	configDirOverride string

	// configFileOverride is set by the --config flag.
	configFileOverride string
)

// SetConfigDirOverride redirects ConfigDir (tests only).
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// SetConfigFilePathOverride points Load at an explicit config file.
func SetConfigFilePathOverride(path string) { configFileOverride = path }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultRuntime: rt.RunnerNative,
		Jobs:           1,
		UI: UIConfig{
			ColorScheme: "auto",
		},
	}
}

// ConfigDir returns the convey configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration with precedence defaults < file < env.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("default_runtime", defaults.DefaultRuntime)
	v.SetDefault("jobs", defaults.Jobs)
	v.SetDefault("scratch_dir", defaults.ScratchDir)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	if configFileOverride != "" {
		v.SetConfigFile(configFileOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFileOverride).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check the file contains valid YAML").
				Wrap(err).
				BuildError()
		}
	} else {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; anything else is a user error.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)).
					WithSuggestion("Check the file contains valid YAML").
					WithSuggestion("Run 'convey config init' to regenerate defaults").
					Wrap(err).
					BuildError()
			}
		}
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, issue.WrapWithOperation(err, "decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.DefaultRuntime {
	case rt.RunnerNative, rt.RunnerVirtual:
	default:
		return fmt.Errorf("invalid default_runtime %q (valid: %s, %s)", c.DefaultRuntime, rt.RunnerNative, rt.RunnerVirtual)
	}

	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}

	switch c.UI.ColorScheme {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid ui.color_scheme %q (valid: auto, always, never)", c.UI.ColorScheme)
	}

	return nil
}

// WriteDefault writes the default config file, failing if one exists.
func WriteDefault() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	defaults := DefaultConfig()
	content := fmt.Sprintf(
		"default_runtime: %s\njobs: %d\nscratch_dir: \"\"\nui:\n  color_scheme: %s\n  verbose: %v\n",
		defaults.DefaultRuntime, defaults.Jobs, defaults.UI.ColorScheme, defaults.UI.Verbose,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
