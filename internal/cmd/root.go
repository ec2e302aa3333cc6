// Package cmd implements the CLI (Command Line Interface) of the application.
//
// players search - Page through known players by name prefix
// players lookup - Resolve a player by exact name
// sanctions list - List active sanctions of one kind
// sanctions count - Count active sanctions of one kind
// jails list - List jail waypoints
// warps list - List global warps
package cmd

import (
	"os"

	"github.com/essencekit/essence/internal/config"
	"github.com/essencekit/essence/internal/log"
	"github.com/spf13/cobra"
)

var cfgFile string //nolint:gochecknoglobals

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "essence",
	Short: "Inspect the moderation and location stores",
	Long:  ``,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	setupCLI()

	if errExecute := rootCmd.Execute(); errExecute != nil {
		os.Exit(1)
	}
}

func setupCLI() {
	rootCmd.AddCommand(playersCmd())
	rootCmd.AddCommand(sanctionsCmd())
	rootCmd.AddCommand(jailsCmd())
	rootCmd.AddCommand(warpsCmd())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./essence.yaml)")
}

// loadConfig reads the config and installs the logger. The returned closer
// flushes the log file sink.
func loadConfig() (config.Config, func(), error) {
	conf, errConfig := config.Read(cfgFile)
	if errConfig != nil {
		return config.Config{}, nil, errConfig
	}

	return conf, log.MustCreateLogger(conf.Log), nil
}
