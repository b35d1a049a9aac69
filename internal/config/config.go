// Package config layers the config file, STUDYCOMPANION_* environment
// variables and command-line flags, and builds the file logger.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName   = "studycompanion"
	envPrefix = "STUDYCOMPANION"
)

// Config holds the resolved settings. Timer settings are user data and
// live in the store, not here.
type Config struct {
	ConfigFile           string
	DBPath               string
	LogFile              string
	LogLevel             string
	Sound                bool
	DesktopNotifications bool

	// One-shot export mode; empty Export starts the TUI.
	Export string
	Output string

	// Problems that were worked around while loading, for the caller to
	// report once a logger exists.
	Warnings []string
}

// Dir returns the per-user configuration directory of the app.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// NewFlagSet declares the command-line flags.
func NewFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flags.String("config", "", "config file (default <config dir>/studycompanion/config.yaml)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-file", "", "log file path")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("sound", true, "play a tone when a phase ends")
	flags.Bool("desktop-notifications", true, "show desktop notifications when permitted")
	flags.String("export", "", "export session logs as csv, json or yaml and exit")
	flags.StringP("output", "o", "", "export destination (default stdout)")
	flags.BoolP("help", "h", false, "show help")
	return flags
}

// Load parses args into flags and resolves the configuration. It returns
// pflag.ErrHelp when help was requested.
func Load(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if help, _ := flags.GetBool("help"); help {
		return nil, pflag.ErrHelp
	}

	var warnings []string
	v := viper.New()
	v.SetConfigType("yaml")

	// Without a config dir the session runs in memory and unlogged.
	dir, err := Dir()
	if err != nil {
		warnings = append(warnings, err.Error())
		v.SetDefault("db_path", ":memory:")
		v.SetDefault("log_file", "")
	} else {
		v.SetDefault("db_path", filepath.Join(dir, appName+".db"))
		v.SetDefault("log_file", filepath.Join(dir, appName+".log"))
	}
	v.SetDefault("log_level", "info")
	v.SetDefault("sound", true)
	v.SetDefault("desktop_notifications", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"db_path":               "db",
		"log_file":              "log-file",
		"log_level":             "log-level",
		"sound":                 "sound",
		"desktop_notifications": "desktop-notifications",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	configFile, _ := flags.GetString("config")
	explicit := configFile != ""
	if !explicit && dir != "" {
		configFile = filepath.Join(dir, "config.yaml")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *fs.PathError
			switch {
			case explicit:
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			case errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist):
			case errors.As(err, &pathErr):
				// An unreadable default location counts as no config.
				warnings = append(warnings, fmt.Sprintf("ignoring config %s: %v", configFile, err))
			default:
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	export, _ := flags.GetString("export")
	output, _ := flags.GetString("output")

	cfg := &Config{
		ConfigFile:           configFile,
		DBPath:               v.GetString("db_path"),
		LogFile:              v.GetString("log_file"),
		LogLevel:             v.GetString("log_level"),
		Sound:                v.GetBool("sound"),
		DesktopNotifications: v.GetBool("desktop_notifications"),
		Export:               export,
		Output:               output,
		Warnings:             warnings,
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
