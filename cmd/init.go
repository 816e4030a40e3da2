package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
	ilog "github.com/fuzun45/FBCM-LoadSetup-Software/internal/log"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize every device from the device document",
	Long: "Connects to each device listed in the device configuration document,\n" +
		"checks that it answers the identification query and applies its channel\n" +
		"configuration. A device that fails is reported and skipped; the batch\n" +
		"always runs to completion.\n\n" +
		"Examples:\n" +
		"  loadsetup init --devices devices.xml\n" +
		"  loadsetup init -d devices.xml -j 4 -t 10",
	Run: func(cmd *cobra.Command, args []string) {
		devices, err := loadsetup.LoadDevices(viper.GetString("devices"))
		if err != nil {
			log.Error().Err(err).Msg("failed to load device document")
			return
		}

		l := ilog.NewLogger(logrus.New(), logrus.InfoLevel)
		o := loadsetup.NewOrchestrator()
		defer o.Close()

		err = o.Initialize(devices, l, newInitEvents(), initParamsFromFlags())
		if err != nil {
			log.Error().Err(err).Msg("initialization failed to start")
			return
		}
		fmt.Printf("initialized %d/%d devices\n", len(o.ActiveLinks()), len(devices))
	},
}

// newInitEvents() wires the orchestrator's event callbacks to terminal
// output. The presentation layer of the system subscribes the same way.
func newInitEvents() *loadsetup.InitEvents {
	return &loadsetup.InitEvents{
		Progress: func(percent int) {
			fmt.Printf("progress: %d%%\n", percent)
		},
		Result: func(message string) {
			fmt.Println(message)
		},
		Error: func(addr string, err error) {
			log.Error().Err(err).Str("addr", addr).Msg("device failed")
		},
	}
}

func initParamsFromFlags() *loadsetup.InitParams {
	return &loadsetup.InitParams{
		Concurrency: viper.GetInt("concurrency"),
		Timeout:     time.Duration(viper.GetInt("timeout")) * time.Second,
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
