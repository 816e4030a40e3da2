package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/cache/sqlite"
	ilog "github.com/fuzun45/FBCM-LoadSetup-Software/internal/log"
)

var (
	interval   int
	cycles     int
	outputPath string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Periodically poll devices and log measurements",
	Long: "Initializes the devices from the device document, then polls every\n" +
		"active channel for current, voltage and resistance on a fixed interval.\n" +
		"Readings append to a CSV log and mirror into the telemetry cache.\n" +
		"Runs until interrupted, or for --cycles cycles.\n\n" +
		"Examples:\n" +
		"  loadsetup log --devices devices.xml --interval 5\n" +
		"  loadsetup log -d devices.xml -i 2 --cycles 10 -o run1.csv",
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
		if len(o.ActiveLinks()) == 0 {
			log.Error().Msg("no devices came up; nothing to poll")
			return
		}

		t := loadsetup.NewTelemetryLogger()
		err = t.Start(o, l, telemetryParamsFromFlags())
		if err != nil {
			log.Error().Err(err).Msg("failed to start telemetry logger")
			return
		}
		defer t.Stop()
		log.Info().Int("interval", interval).Str("output", outputPath).Msg("logging started")

		waitForInterrupt(t.Done())
		log.Info().Msg("logging stopped")
	},
}

// telemetryParamsFromFlags() wires the CSV output, the sqlite cache
// mirror and the live reading display into the logger parameters.
func telemetryParamsFromFlags() *loadsetup.TelemetryParams {
	cachePath := viper.GetString("cache")
	return &loadsetup.TelemetryParams{
		Interval:   time.Duration(interval) * time.Second,
		OutputPath: outputPath,
		Cycles:     cycles,
		Observer: func(rec loadsetup.TelemetryRecord) {
			if verbose {
				log.Info().
					Str("addr", rec.Address).
					Int("channel", rec.Channel).
					Str("current", rec.Current).
					Str("voltage", rec.Voltage).
					Str("resistance", rec.Resistance).
					Msg("reading")
			}
		},
		OnCycle: func(records []loadsetup.TelemetryRecord) {
			if cachePath == "" {
				return
			}
			if err := sqlite.InsertTelemetryRecords(cachePath, records...); err != nil {
				log.Error().Err(err).Msg("failed to cache telemetry records")
			}
		},
		OnError: func(addr string, err error) {
			log.Error().Err(err).Str("addr", addr).Msg("poll failed")
		},
	}
}

// waitForInterrupt() blocks until a shutdown signal arrives or the
// polling loop exits on its own (--cycles reached).
func waitForInterrupt(done <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-done:
	}
}

func init() {
	logCmd.Flags().IntVarP(&interval, "interval", "i", 5, "set the polling interval in seconds")
	logCmd.Flags().IntVar(&cycles, "cycles", 0, "stop after N poll cycles (0 = run until interrupted)")
	logCmd.Flags().StringVarP(&outputPath, "output", "o", "log_data.csv", "set the CSV log file path")
	rootCmd.AddCommand(logCmd)
}
