package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/api"
	ilog "github.com/fuzun45/FBCM-LoadSetup-Software/internal/log"
)

var apiAddr string

// The `serve` command runs the same init-then-poll flow as `log` and
// additionally exposes a read-only HTTP view: the configured devices,
// the latest reading per channel and the prometheus metrics.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll devices and serve live readings over HTTP",
	Long: "Examples:\n" +
		"  loadsetup serve --devices devices.xml --interval 5\n" +
		"  loadsetup serve -d devices.xml -i 2 --api-addr :8370",
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

		t := loadsetup.NewTelemetryLogger()
		err = t.Start(o, l, telemetryParamsFromFlags())
		if err != nil {
			log.Error().Err(err).Msg("failed to start telemetry logger")
			return
		}
		defer t.Stop()

		server := &api.Server{
			Addr:     apiAddr,
			Devices:  func() []loadsetup.Device { return devices },
			Readings: t.LatestReadings,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil {
				log.Error().Err(err).Msg("status API failed")
			}
		}()

		waitForInterrupt(t.Done())
	},
}

func init() {
	serveCmd.Flags().StringVar(&apiAddr, "api-addr", ":8370", "set the status API listen address")
	serveCmd.Flags().IntVarP(&interval, "interval", "i", 5, "set the polling interval in seconds")
	serveCmd.Flags().IntVar(&cycles, "cycles", 0, "stop after N poll cycles (0 = run until interrupted)")
	serveCmd.Flags().StringVarP(&outputPath, "output", "o", "log_data.csv", "set the CSV log file path")
	rootCmd.AddCommand(serveCmd)
}
