// Package config loads the application configuration from an optional yaml
// file plus ESSENCE_ environment overrides.
package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/essencekit/essence/internal/log"
	"github.com/spf13/viper"
)

type generalConfig struct {
	// DataDir holds the three store database files.
	DataDir string `mapstructure:"data_dir"`
}

type databaseConfig struct {
	LogQueries bool `mapstructure:"log_queries"`
}

type teleportConfig struct {
	// RequestTimeout is how long a teleport request stays answerable.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type Config struct {
	General  generalConfig  `mapstructure:"general"`
	Database databaseConfig `mapstructure:"database"`
	Log      log.Config     `mapstructure:"log"`
	Teleport teleportConfig `mapstructure:"teleport"`
}

// LocationsPath is the location store database file.
func (c Config) LocationsPath() string {
	return filepath.Join(c.General.DataDir, "locations.db")
}

// PlayersPath is the player registry database file.
func (c Config) PlayersPath() string {
	return filepath.Join(c.General.DataDir, "players.db")
}

// SuspensionsPath is the sanction store database file.
func (c Config) SuspensionsPath() string {
	return filepath.Join(c.General.DataDir, "suspensions.db")
}

func setDefaults() {
	viper.SetDefault("general.data_dir", "./data")
	viper.SetDefault("database.log_queries", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("teleport.request_timeout", time.Minute)
}

// Read loads the configuration. A missing config file is not an error when
// the default search path is used; defaults and environment cover everything.
func Read(cfgFile string) (Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("essence")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("essence")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if errRead := viper.ReadInConfig(); errRead != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(errRead, &notFound) && cfgFile != "" {
			return Config{}, errRead //nolint:wrapcheck
		}
	}

	var config Config
	if errUnmarshal := viper.Unmarshal(&config); errUnmarshal != nil {
		return Config{}, errUnmarshal //nolint:wrapcheck
	}

	return config, nil
}
