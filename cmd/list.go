package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/cache/sqlite"
)

var (
	listCommands bool
	listCache    bool
)

// The `list` command shows what the other commands consume or
// produced: the configured devices, the command catalog, or the
// telemetry records cached by a `log` run.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured devices, catalog commands, or cached telemetry",
	Long: "Prints the devices from the device document by default.\n\n" +
		"Examples:\n" +
		"  loadsetup list --devices devices.xml\n" +
		"  loadsetup list --commands-only\n" +
		"  loadsetup list --telemetry --cache telemetry.db --format json",
	Run: func(cmd *cobra.Command, args []string) {
		format = strings.ToLower(format)
		switch {
		case listCommands:
			catalog, err := loadsetup.LoadCommandCatalog(commandsPath)
			if err != nil {
				log.Error().Err(err).Msg("failed to load command catalog")
				return
			}
			for i, c := range catalog {
				fmt.Printf("[%d] %s\n", i, c)
			}
		case listCache:
			records, err := sqlite.GetTelemetryRecords(viper.GetString("cache"))
			if err != nil {
				log.Error().Err(err).Msg("failed to get telemetry records")
				return
			}
			if format == "json" {
				b, err := json.Marshal(records)
				if err != nil {
					log.Error().Err(err).Msg("failed to marshal telemetry records")
					return
				}
				fmt.Printf("%s\n", string(b))
			} else {
				for _, r := range records {
					fmt.Printf("%s ch%d: I=%s V=%s R=%s @ %s\n",
						r.Address, r.Channel, r.Current, r.Voltage, r.Resistance,
						r.Time.Format(time.UnixDate))
				}
			}
		default:
			devices, err := loadsetup.LoadDevices(viper.GetString("devices"))
			if err != nil {
				log.Error().Err(err).Msg("failed to load device document")
				return
			}
			if format == "json" {
				b, err := json.Marshal(devices)
				if err != nil {
					log.Error().Err(err).Msg("failed to marshal devices")
					return
				}
				fmt.Printf("%s\n", string(b))
			} else {
				for _, d := range devices {
					channels := len(d.Channels) + len(d.VoltageChannels) + len(d.CurrentChannels)
					fmt.Printf("%s (%s) @ %s, %d channel(s)\n", d.ID, d.Kind, d.Addr(), channels)
				}
			}
		}
	},
}

func init() {
	listCmd.Flags().BoolVar(&listCommands, "commands-only", false, "list the command catalog")
	listCmd.Flags().BoolVar(&listCache, "telemetry", false, "list cached telemetry records")
	listCmd.Flags().StringVar(&commandsPath, "commands", "commands.xml", "set the command catalog document path")
	listCmd.Flags().StringVar(&format, "format", "", "set the output format")
	rootCmd.AddCommand(listCmd)
}
