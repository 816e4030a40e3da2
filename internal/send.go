package loadsetup

import (
	"time"

	"github.com/fuzun45/FBCM-LoadSetup-Software/pkg/scpi"
)

// SendManualCommand() opens a fresh link to an arbitrary address,
// exchanges a single command/response pair and closes the link whether
// or not the exchange succeeded. The link is independent of the
// orchestrator's managed set and nothing is written to the telemetry
// log. Transport faults surface to the caller as *scpi.ConnectionError.
func SendManualCommand(host string, port int, command string, timeout time.Duration) (string, error) {
	client := scpi.NewClient(host, port)
	if timeout > 0 {
		client.Timeout = timeout
	}
	defer client.Close()

	if err := client.Connect(); err != nil {
		return "", err
	}
	return client.SendCommand(command)
}
