package loadsetup

import (
	"fmt"
	"sync"
	"time"

	"github.com/cznic/mathutil"

	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/log"
	"github.com/fuzun45/FBCM-LoadSetup-Software/pkg/scpi"
)

// OrchestratorState is the run state of an initialization batch.
type OrchestratorState int

const (
	StateIdle OrchestratorState = iota
	StateRunning
	StateDone
)

func (s OrchestratorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// InitParams control one initialization run.
type InitParams struct {
	// Concurrency is the worker count for initializing devices in
	// parallel. Values <= 0 scale with the device count. Commands on
	// one link stay strictly sequential regardless.
	Concurrency int

	// Timeout bounds each connect and send on a link.
	Timeout time.Duration
}

// Orchestrator walks a device list, opens one SCPI client per device,
// applies each device's channel configuration and retains the clients
// that answered the identification query. The retained set is what the
// telemetry logger polls.
type Orchestrator struct {
	mu     sync.Mutex
	state  OrchestratorState
	active []*scpi.Client
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{state: StateIdle}
}

// State() reports the current run state.
func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ActiveLinks() returns a snapshot of the links that survived the last
// completed run. The slice is a copy; the underlying clients are shared.
func (o *Orchestrator) ActiveLinks() []*scpi.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	links := make([]*scpi.Client, len(o.active))
	copy(links, o.active)
	return links
}

// Close() closes every active link. Called on shutdown.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	links := o.active
	o.active = nil
	o.mu.Unlock()
	for _, c := range links {
		c.Close()
	}
}

// Initialize() runs one batch over the device list. Devices are
// initialized concurrently by a worker pool; a single device's failure
// is reported through ev and never aborts the batch. Progress events
// are monotone and end at exactly 100 no matter how many devices
// failed. The previous active set is replaced, and closed, only after
// the new run finished building its replacements.
//
// Starting a run while another is still running is an error.
func (o *Orchestrator) Initialize(devices []Device, l *log.Logger, ev *InitEvents, params *InitParams) error {
	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return fmt.Errorf("initialization already running")
	}
	o.state = StateRunning
	o.mu.Unlock()

	if params == nil {
		params = &InitParams{}
	}
	total := len(devices)
	if total == 0 {
		ev.emitProgress(100)
		o.mu.Lock()
		o.state = StateDone
		o.mu.Unlock()
		return nil
	}
	workers := params.Concurrency
	if workers <= 0 {
		workers = total
	}
	workers = mathutil.Clamp(workers, 1, 255)

	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
		completed  int
		activeMu   sync.Mutex
		active     []*scpi.Client
		chanDevice = make(chan Device, workers+1)
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for dev := range chanDevice {
				client, err := o.initializeDevice(dev, l, ev, params.Timeout)
				if err != nil {
					ev.emitError(dev.Addr(), err)
				} else if client != nil {
					activeMu.Lock()
					active = append(active, client)
					activeMu.Unlock()
				}

				// progress emission is serialized so observers see a
				// strictly non-decreasing sequence
				progressMu.Lock()
				completed++
				ev.emitProgress(completed * 100 / total)
				progressMu.Unlock()
			}
		}()
	}

	for _, dev := range devices {
		chanDevice <- dev
	}
	close(chanDevice)
	wg.Wait()

	// swap in the replacement set, then tear down the previous one
	o.mu.Lock()
	old := o.active
	o.active = active
	o.state = StateDone
	o.mu.Unlock()
	for _, c := range old {
		c.Close()
	}
	return nil
}

// initializeDevice() handles one device: connect, identify, then apply
// the channel configuration. Returns a nil client without error when
// the device answered the identification query with nothing (reported
// through ev as unreachable).
func (o *Orchestrator) initializeDevice(dev Device, l *log.Logger, ev *InitEvents, timeout time.Duration) (*scpi.Client, error) {
	client := scpi.NewClient(dev.Host, dev.Port)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if err := client.Connect(); err != nil {
		return nil, err
	}

	idn, err := client.SendCommand(CmdIdentify)
	if err != nil {
		client.Close()
		return nil, err
	}
	if idn == "" {
		client.Close()
		ev.emitError(dev.Addr(), fmt.Errorf("device %s did not answer identification query", dev.ID))
		return nil, nil
	}
	if l != nil {
		l.Log.Infof("device %s online: %s", dev.ID, idn)
	}
	ev.emitResult(fmt.Sprintf("device %s online: %s", dev.ID, idn))

	switch dev.Kind {
	case DeviceLoad:
		for _, ch := range dev.Channels {
			if err := initializeLoadChannel(client, ch); err != nil {
				client.Close()
				return nil, err
			}
		}
	case DeviceSupply:
		for _, ch := range dev.VoltageChannels {
			if _, err := client.SendCommand(CmdSetIndexed(ModeVOLT, ch.Number, ch.Setpoint)); err != nil {
				client.Close()
				return nil, err
			}
		}
		for _, ch := range dev.CurrentChannels {
			if _, err := client.SendCommand(CmdSetIndexed(ModeCURR, ch.Number, ch.Setpoint)); err != nil {
				client.Close()
				return nil, err
			}
		}
	}

	// only load channels get polled for measurements later
	client.Channels = bindChannels(dev)
	return client, nil
}

// initializeLoadChannel() applies one load channel: select it, set the
// function mode, then the setpoint command matching that mode.
func initializeLoadChannel(client *scpi.Client, ch LoadChannel) error {
	if _, err := client.SendCommand(CmdSelectChannel(ch.Number)); err != nil {
		return err
	}
	if _, err := client.SendCommand(CmdSelectFunction(ch.Mode)); err != nil {
		return err
	}
	_, err := client.SendCommand(CmdSetpoint(ch.Mode, ch.Setpoint))
	return err
}

func bindChannels(dev Device) []scpi.Channel {
	channels := []scpi.Channel{}
	for _, ch := range dev.Channels {
		channels = append(channels, scpi.Channel{
			Number:   ch.Number,
			Name:     ch.Name,
			Mode:     ch.Mode,
			Setpoint: ch.Setpoint,
		})
	}
	return channels
}
