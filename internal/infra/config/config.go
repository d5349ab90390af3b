package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultAppName    = "Jarview"
)

type Config struct {
	AppName string      `mapstructure:"app_name" yaml:"app_name"`
	Port    string      `mapstructure:"port" yaml:"port"`
	Jar     JarConfig   `mapstructure:"jar" yaml:"jar"`
	Log     LogConfig   `mapstructure:"log" yaml:"log"`
	Store   StoreConfig `mapstructure:"store" yaml:"store"`
}

type JarConfig struct {
	Binary        string `mapstructure:"binary" yaml:"binary"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	StrictExtract bool   `mapstructure:"strict_extract" yaml:"strict_extract"`
	QueueSize     int    `mapstructure:"queue_size" yaml:"queue_size"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	DSN        string `mapstructure:"dsn" yaml:"dsn"`
}

// DefaultOutputDir is where extracted members land: <Desktop>/<app>-Jar
func DefaultOutputDir(appName string) string {
	if appName == "" {
		appName = DefaultAppName
	}
	return filepath.Join(xdg.UserDirs.Desktop, appName+"-Jar")
}

// Load reads path (or config.yaml when empty) on top of the defaults.
// Only an explicitly named file has to exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("port", "8080")
	v.SetDefault("jar.binary", "jar")
	v.SetDefault("jar.output_dir", "")
	v.SetDefault("jar.strict_extract", false)
	v.SetDefault("jar.queue_size", 16)
	v.SetDefault("log.path", "jarview.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", filepath.Join(xdg.DataHome, "jarview", "jarview.db"))
	v.SetDefault("store.dsn", "")

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Support Environment Variables
	v.SetEnvPrefix("JARVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}

	if c.Jar.Binary == "" {
		return errors.New("jar.binary is required")
	}

	if c.Jar.OutputDir == "" {
		c.Jar.OutputDir = DefaultOutputDir(c.AppName)
	}

	if c.Jar.QueueSize <= 0 {
		// Default to a sane value
		c.Jar.QueueSize = 16
	}

	switch strings.ToLower(c.Store.Driver) {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case "postgres", "pgx":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}

	return nil
}
