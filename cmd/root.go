// The cmd package implements the interface for the loadsetup CLI. The files
// contained in this package only contain implementations for handling CLI
// arguments and passing them to routines within the internal API.
//
// Each CLI subcommand has at least one corresponding internal file with an
// API routine that implements the command's functionality:
//
//	cmd/init.go --> internal/initialize.go ( (*Orchestrator).Initialize() )
//	cmd/log.go  --> internal/telemetry.go  ( (*TelemetryLogger).Start() )
//	cmd/send.go --> internal/send.go       ( SendManualCommand() )
//	cmd/list.go --> none (doesn't have an API call since it's simple)
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ilog "github.com/fuzun45/FBCM-LoadSetup-Software/internal/log"
)

// shared flag storage used across subcommands
var (
	devicesPath  string
	commandsPath string
	verbose      bool
	debug        bool
	format       string
)

// The `root` command doesn't do anything on its own except display
// a help message and then exit.
var rootCmd = &cobra.Command{
	Use:   "loadsetup",
	Short: "Electrical test hardware control tool",
	Long: "Controls laboratory electronic loads and power supplies over the SCPI\n" +
		"line protocol: batch initialization from a device document, periodic\n" +
		"telemetry logging, and manual command exchange.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			err := cmd.Help()
			if err != nil {
				log.Error().Err(err).Msg("failed to print help")
			}
			os.Exit(0)
		}
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initializeLogging() {
	level := ilog.INFO
	if viper.GetBool("debug") {
		level = ilog.DEBUG
	}
	if err := ilog.InitWithLogLevel(level, viper.GetString("log-file")); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func init() {
	cobra.OnInitialize(InitializeConfig, initializeLogging)
	rootCmd.PersistentFlags().IntP("concurrency", "j", -1, "Set the number of concurrent device workers")
	rootCmd.PersistentFlags().IntP("timeout", "t", 5, "Set the timeout for instrument I/O in seconds")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Set the config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Set to enable/disable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Set to enable/disable debug messages")
	rootCmd.PersistentFlags().StringVarP(&devicesPath, "devices", "d", "devices.xml", "Set the device configuration document path")
	rootCmd.PersistentFlags().String("cache", "telemetry.db", "Set the telemetry record cache path")
	rootCmd.PersistentFlags().String("log-file", "", "Set a file to also write log output to")

	// bind viper config flags with cobra
	checkBindFlagError(viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency")))
	checkBindFlagError(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
	checkBindFlagError(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	checkBindFlagError(viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")))
	checkBindFlagError(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	checkBindFlagError(viper.BindPFlag("devices", rootCmd.PersistentFlags().Lookup("devices")))
	checkBindFlagError(viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache")))
	checkBindFlagError(viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file")))
}

func checkBindFlagError(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

// InitializeConfig() initializes a new config object by loading it
// from a file given a non-empty string.
func InitializeConfig() {
	viper.AutomaticEnv()
	if viper.IsSet("config") && viper.GetString("config") != "" {
		viper.SetConfigFile(viper.GetString("config"))
	} else {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			configDir = "$HOME/.config"
		}
		viper.AddConfigPath(configDir + "/loadsetup")
		viper.SetConfigName("config")
		// File type left unspecified; viper will auto-parse based on extension
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// running without a config file is fine
			return
		}
		log.Error().Err(err).Msg("failed to load config")
	}
}
