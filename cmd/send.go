package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
	"github.com/fuzun45/FBCM-LoadSetup-Software/pkg/scpi"
)

var (
	sendHost    string
	sendPort    int
	sendCommand string
	sendPick    int
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single command to an instrument",
	Long: "Opens an ad-hoc connection to the given address, sends one command,\n" +
		"prints the response and closes the connection. Independent of any\n" +
		"initialized device set.\n\n" +
		"Examples:\n" +
		"  loadsetup send --host 10.0.0.12 --command '*IDN?'\n" +
		"  loadsetup send --host 10.0.0.12 --port 5025 --pick 2 --commands commands.xml",
	Run: func(cmd *cobra.Command, args []string) {
		command := sendCommand
		if command == "" && sendPick >= 0 {
			catalog, err := loadsetup.LoadCommandCatalog(commandsPath)
			if err != nil {
				log.Error().Err(err).Msg("failed to load command catalog")
				return
			}
			if sendPick >= len(catalog) {
				log.Error().Msgf("--pick %d out of range (catalog has %d commands)", sendPick, len(catalog))
				return
			}
			command = catalog[sendPick]
		}
		if sendHost == "" || command == "" {
			log.Error().Msg("both a host and a command are required")
			return
		}

		timeout := time.Duration(viper.GetInt("timeout")) * time.Second
		response, err := loadsetup.SendManualCommand(sendHost, sendPort, command, timeout)
		if err != nil {
			log.Error().Err(err).Msg("failed to send command")
			return
		}
		if response == "" {
			fmt.Printf("command: %s\nresponse: (none)\n", command)
		} else {
			fmt.Printf("command: %s\nresponse: %s\n", command, response)
		}
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendHost, "host", "", "set the instrument host")
	sendCmd.Flags().IntVarP(&sendPort, "port", "p", scpi.DefaultPort, "set the instrument port")
	sendCmd.Flags().StringVar(&sendCommand, "command", "", "set the command to send")
	sendCmd.Flags().IntVar(&sendPick, "pick", -1, "pick the Nth command from the command catalog instead")
	sendCmd.Flags().StringVar(&commandsPath, "commands", "commands.xml", "set the command catalog document path")
	rootCmd.AddCommand(sendCmd)
}
