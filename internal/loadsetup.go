// Package loadsetup implements the instrument communication and
// orchestration layer behind the loadsetup CLI. Each CLI subcommand has
// a corresponding API routine here:
//
//	cmd/init.go  --> internal/initialize.go ( (*Orchestrator).Initialize() )
//	cmd/log.go   --> internal/telemetry.go  ( (*TelemetryLogger).Start() )
//	cmd/send.go  --> internal/send.go       ( SendManualCommand() )
//	cmd/list.go  --> internal/devices.go, internal/commands.go
package loadsetup

import (
	"fmt"
	"time"
)

// SCPI command vocabulary used by this system. The protocol is plain
// ASCII lines; the formatted forms are built with the Cmd* helpers.
const (
	CmdIdentify          = "*IDN?"
	CmdMeasureCurrent    = "MEASure:CURRent?"
	CmdMeasureVoltage    = "MEASure:VOLTage?"
	CmdMeasureResistance = "MEASure:RESistance?"
)

// Channel modes for electronic load channels.
const (
	ModeRES  = "RES"
	ModeCURR = "CURR"
	ModeVOLT = "VOLT"
)

// CmdSelectChannel() builds the channel-select command. Selecting a
// channel establishes context for every following command on the link.
func CmdSelectChannel(number int) string {
	return fmt.Sprintf("CHAN %d", number)
}

// CmdSelectFunction() builds the mode-select command for a load channel.
func CmdSelectFunction(mode string) string {
	return fmt.Sprintf("FUNC %s", mode)
}

// CmdSetpoint() builds the setpoint command matching a load channel
// mode. The command name mirrors the mode (RES/CURR/VOLT).
func CmdSetpoint(mode string, value float64) string {
	return fmt.Sprintf("%s %g", mode, value)
}

// CmdSetIndexed() builds the indexed set command used by power
// supplies, which carry the channel number inline instead of relying
// on a prior channel-select.
func CmdSetIndexed(name string, number int, value float64) string {
	return fmt.Sprintf("%s %d,%g", name, number, value)
}

// TelemetryRecord is one measurement row: one per (client, channel,
// poll cycle). Records are append-only and persisted in arrival order.
// The measurement fields hold the raw instrument replies.
type TelemetryRecord struct {
	Time       time.Time `json:"time" db:"time"`
	Address    string    `json:"address" db:"address"`
	Channel    int       `json:"channel" db:"channel"`
	Current    string    `json:"current" db:"current"`
	Voltage    string    `json:"voltage" db:"voltage"`
	Resistance string    `json:"resistance" db:"resistance"`
}
