package loadsetup

import (
	"encoding/xml"
	"fmt"
	"os"

	"golang.org/x/exp/slices"
)

// DeviceKind tags the two DeviceConfig variants. Call sites switch on
// the kind explicitly rather than sniffing which channel lists are set.
type DeviceKind int

const (
	DeviceLoad DeviceKind = iota
	DeviceSupply
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceLoad:
		return "load"
	case DeviceSupply:
		return "supply"
	}
	return "unknown"
}

// ValidModes lists the allowed load channel modes.
var ValidModes = []string{ModeRES, ModeCURR, ModeVOLT}

// LoadChannel is one electronic load channel: select it, set its
// function mode, then apply the setpoint matching that mode.
type LoadChannel struct {
	Number   int     `json:"number"`
	Name     string  `json:"name"`
	Mode     string  `json:"mode"`
	Setpoint float64 `json:"setpoint"`
}

// SupplyChannel is one power supply channel entry; supplies take the
// channel number inline in the set command, so there is no select step.
type SupplyChannel struct {
	Number   int     `json:"number"`
	Setpoint float64 `json:"setpoint"`
}

// Device is an immutable description of one instrument, parsed from
// the device configuration document. Channels is populated for
// DeviceLoad; VoltageChannels/CurrentChannels for DeviceSupply.
type Device struct {
	Kind            DeviceKind      `json:"kind"`
	ID              string          `json:"id"`
	Host            string          `json:"host"`
	Port            int             `json:"port"`
	Channels        []LoadChannel   `json:"channels,omitempty"`
	VoltageChannels []SupplyChannel `json:"voltage_channels,omitempty"`
	CurrentChannels []SupplyChannel `json:"current_channels,omitempty"`
}

func (d *Device) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// ConfigErrorKind distinguishes the ways loading a configuration
// document can fail.
type ConfigErrorKind int

const (
	ConfigNotFound ConfigErrorKind = iota
	ConfigMalformed
	ConfigMissingField
)

func (k ConfigErrorKind) String() string {
	switch k {
	case ConfigNotFound:
		return "not found"
	case ConfigMalformed:
		return "malformed"
	case ConfigMissingField:
		return "missing field"
	}
	return "unknown"
}

// ConfigError is fatal to the load operation that raised it; prior
// state is left intact by callers.
type ConfigError struct {
	Kind   ConfigErrorKind
	Path   string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("config %s (%s): %s", e.Path, e.Kind, e.Detail)
	}
	return fmt.Sprintf("config %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// XML document shape. Optional-looking fields use pointers so a record
// that is present but incomplete can be told apart from a zero value.
type devicesXML struct {
	ElectronicLoads []loadXML   `xml:"ElectronicLoads>ElectronicLoad"`
	PowerSupplys    []supplyXML `xml:"PowerSupplys>PowerSupply"`
}

type loadXML struct {
	ID       *string          `xml:"ID"`
	IP       *string          `xml:"IP"`
	Port     *int             `xml:"Port"`
	Channels []loadChannelXML `xml:"Channels>Channel"`
}

type loadChannelXML struct {
	Number *int     `xml:"Number"`
	Name   *string  `xml:"Name"`
	Type   *string  `xml:"Type"`
	Value  *float64 `xml:"Value"`
}

type supplyXML struct {
	ID            *string            `xml:"ID"`
	IP            *string            `xml:"IP"`
	Port          *int               `xml:"Port"`
	VoltageValues []supplyChannelXML `xml:"VoltageValues>Channel"`
	CurrentValues []supplyChannelXML `xml:"CurrentValues>Channel"`
}

type supplyChannelXML struct {
	Number *int     `xml:"Number"`
	Value  *float64 `xml:"Value"`
}

// LoadDevices() parses the device configuration document at path into
// an ordered device list: electronic loads first, then power supplies,
// each in document order. No I/O happens beyond reading the one file;
// address reachability is not checked here.
func LoadDevices(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Kind: ConfigNotFound, Path: path, Err: err}
		}
		return nil, &ConfigError{Kind: ConfigMalformed, Path: path, Err: err}
	}

	var doc devicesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Kind: ConfigMalformed, Path: path, Err: err}
	}

	devices := []Device{}
	for i, l := range doc.ElectronicLoads {
		dev, err := parseLoad(path, i, l)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	for i, s := range doc.PowerSupplys {
		dev, err := parseSupply(path, i, s)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func parseLoad(path string, idx int, l loadXML) (Device, error) {
	if l.ID == nil || l.IP == nil || l.Port == nil {
		return Device{}, &ConfigError{
			Kind:   ConfigMissingField,
			Path:   path,
			Detail: fmt.Sprintf("ElectronicLoad[%d]: ID, IP and Port are required", idx),
		}
	}
	dev := Device{
		Kind: DeviceLoad,
		ID:   *l.ID,
		Host: *l.IP,
		Port: *l.Port,
	}
	seen := map[int]bool{}
	for j, ch := range l.Channels {
		if ch.Number == nil || ch.Name == nil || ch.Type == nil || ch.Value == nil {
			return Device{}, &ConfigError{
				Kind:   ConfigMissingField,
				Path:   path,
				Detail: fmt.Sprintf("ElectronicLoad[%d]/Channel[%d]: Number, Name, Type and Value are required", idx, j),
			}
		}
		if !slices.Contains(ValidModes, *ch.Type) {
			return Device{}, &ConfigError{
				Kind:   ConfigMalformed,
				Path:   path,
				Detail: fmt.Sprintf("ElectronicLoad[%d]/Channel[%d]: invalid mode %q (options: %v)", idx, j, *ch.Type, ValidModes),
			}
		}
		if seen[*ch.Number] {
			return Device{}, &ConfigError{
				Kind:   ConfigMalformed,
				Path:   path,
				Detail: fmt.Sprintf("ElectronicLoad[%d]: duplicate channel number %d", idx, *ch.Number),
			}
		}
		seen[*ch.Number] = true
		dev.Channels = append(dev.Channels, LoadChannel{
			Number:   *ch.Number,
			Name:     *ch.Name,
			Mode:     *ch.Type,
			Setpoint: *ch.Value,
		})
	}
	return dev, validateAddress(path, dev)
}

func parseSupply(path string, idx int, s supplyXML) (Device, error) {
	if s.ID == nil || s.IP == nil || s.Port == nil {
		return Device{}, &ConfigError{
			Kind:   ConfigMissingField,
			Path:   path,
			Detail: fmt.Sprintf("PowerSupply[%d]: ID, IP and Port are required", idx),
		}
	}
	dev := Device{
		Kind: DeviceSupply,
		ID:   *s.ID,
		Host: *s.IP,
		Port: *s.Port,
	}
	var err error
	dev.VoltageChannels, err = parseSupplyChannels(path, idx, "VoltageValues", s.VoltageValues)
	if err != nil {
		return Device{}, err
	}
	dev.CurrentChannels, err = parseSupplyChannels(path, idx, "CurrentValues", s.CurrentValues)
	if err != nil {
		return Device{}, err
	}
	return dev, validateAddress(path, dev)
}

func parseSupplyChannels(path string, idx int, list string, entries []supplyChannelXML) ([]SupplyChannel, error) {
	channels := []SupplyChannel{}
	seen := map[int]bool{}
	for j, ch := range entries {
		if ch.Number == nil || ch.Value == nil {
			return nil, &ConfigError{
				Kind:   ConfigMissingField,
				Path:   path,
				Detail: fmt.Sprintf("PowerSupply[%d]/%s/Channel[%d]: Number and Value are required", idx, list, j),
			}
		}
		if seen[*ch.Number] {
			return nil, &ConfigError{
				Kind:   ConfigMalformed,
				Path:   path,
				Detail: fmt.Sprintf("PowerSupply[%d]/%s: duplicate channel number %d", idx, list, *ch.Number),
			}
		}
		seen[*ch.Number] = true
		channels = append(channels, SupplyChannel{Number: *ch.Number, Setpoint: *ch.Value})
	}
	return channels, nil
}

func validateAddress(path string, dev Device) error {
	if dev.Port <= 0 {
		return &ConfigError{
			Kind:   ConfigMalformed,
			Path:   path,
			Detail: fmt.Sprintf("device %s: port must be a positive integer, got %d", dev.ID, dev.Port),
		}
	}
	return nil
}
