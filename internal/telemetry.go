package loadsetup

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/log"
	"github.com/fuzun45/FBCM-LoadSetup-Software/pkg/scpi"
)

// csvHeader is the structural header written once per log file, before
// the first cycle.
var csvHeader = []string{"Time", "Address", "Channel", "Current", "Voltage", "Resistance"}

var (
	metricCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadsetup_poll_cycles_total",
		Help: "Completed telemetry poll cycles.",
	})
	metricRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadsetup_records_total",
		Help: "Telemetry records appended to the log.",
	})
	metricPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadsetup_poll_errors_total",
		Help: "Per-client failures during poll cycles.",
	})
)

// TelemetryParams control a polling run.
type TelemetryParams struct {
	// Interval between poll cycles.
	Interval time.Duration

	// OutputPath is the CSV log file. Created (or truncated) at Start.
	OutputPath string

	// Cycles stops the logger after this many cycles when > 0.
	Cycles int

	// Observer receives each record right after it was written to the
	// log, in log order. May be nil.
	Observer ReadingObserver

	// OnCycle receives the full record batch of each completed cycle,
	// after the records were written. Used by the cmd layer to mirror
	// records into the sqlite cache. May be nil.
	OnCycle func(records []TelemetryRecord)

	// OnError receives per-client failures. May be nil.
	OnError func(addr string, err error)
}

// TelemetryLogger periodically polls every active link for per-channel
// measurements and appends them to the CSV log. A single long-lived
// goroutine owns the writer and runs the cycles back to back off a
// ticker, so two cycles can never overlap and the log has a single
// writer. Ticks that fire while a cycle is still running coalesce into
// at most one pending wake.
type TelemetryLogger struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	latestMu sync.Mutex
	latest   map[string]TelemetryRecord
}

func NewTelemetryLogger() *TelemetryLogger {
	return &TelemetryLogger{
		latest: map[string]TelemetryRecord{},
	}
}

// LatestReadings() returns the most recent record per (address,
// channel), for the live display and the status API.
func (t *TelemetryLogger) LatestReadings() []TelemetryRecord {
	t.latestMu.Lock()
	defer t.latestMu.Unlock()
	records := make([]TelemetryRecord, 0, len(t.latest))
	for _, rec := range t.latest {
		records = append(records, rec)
	}
	return records
}

// Start() opens the log file, writes the header and begins polling the
// orchestrator's active-link set every params.Interval. Starting an
// already-running logger is an error.
func (t *TelemetryLogger) Start(o *Orchestrator, l *log.Logger, params *TelemetryParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("telemetry logger already running")
	}
	if params == nil || params.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}

	file, err := os.Create(params.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %v", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		file.Close()
		return fmt.Errorf("failed to write log header: %v", err)
	}
	writer.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.run(ctx, o, l, params, file, writer)
	return nil
}

// Done() reports when the polling loop has exited, either from Stop()
// or from reaching the configured cycle count.
func (t *TelemetryLogger) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Stop() halts polling. When it returns, no further records will be
// appended, even if a tick was about to fire.
func (t *TelemetryLogger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.cancel()
	<-t.done
	t.running = false
}

func (t *TelemetryLogger) run(ctx context.Context, o *Orchestrator, l *log.Logger, params *TelemetryParams, file *os.File, writer *csv.Writer) {
	defer close(t.done)
	defer file.Close()

	ticker := time.NewTicker(params.Interval)
	defer ticker.Stop()

	cycles := 0
	for {
		select {
		case <-ctx.Done():
			writer.Flush()
			return
		case <-ticker.C:
		}

		records := t.pollCycle(ctx, o.ActiveLinks(), l, params, writer)
		metricCycles.Inc()
		if params.OnCycle != nil && len(records) > 0 {
			params.OnCycle(records)
		}

		cycles++
		if params.Cycles > 0 && cycles >= params.Cycles {
			writer.Flush()
			return
		}
	}
}

// pollCycle() runs one complete round: every client is polled
// concurrently, channels of one client strictly sequentially. Records
// are gathered per client and appended in client order so the log
// stays deterministic within a cycle. A client failure skips that
// client's remaining channels for this cycle only.
func (t *TelemetryLogger) pollCycle(ctx context.Context, clients []*scpi.Client, l *log.Logger, params *TelemetryParams, writer *csv.Writer) []TelemetryRecord {
	var wg sync.WaitGroup
	results := make([][]TelemetryRecord, len(clients))

	wg.Add(len(clients))
	for i, client := range clients {
		go func(i int, client *scpi.Client) {
			defer wg.Done()
			records, err := pollClient(client)
			results[i] = records
			if err != nil {
				metricPollErrors.Inc()
				if l != nil {
					l.Log.Errorf("error during logging from %s: %v", client.Addr(), err)
				}
				if params.OnError != nil {
					params.OnError(client.Addr(), err)
				}
			}
		}(i, client)
	}
	wg.Wait()

	// a stop that raced the cycle keeps its guarantee: nothing gets
	// appended once Stop() has been observed
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	appended := []TelemetryRecord{}
	for _, records := range results {
		for _, rec := range records {
			t.appendRecord(writer, rec, params.Observer)
			appended = append(appended, rec)
		}
	}
	return appended
}

// pollClient() reads all channels of one client. Returns the records
// collected before the first transport fault, if any.
func pollClient(client *scpi.Client) ([]TelemetryRecord, error) {
	records := []TelemetryRecord{}
	for _, ch := range client.Channels {
		if _, err := client.SendCommand(CmdSelectChannel(ch.Number)); err != nil {
			return records, err
		}
		current, err := client.SendCommand(CmdMeasureCurrent)
		if err != nil {
			return records, err
		}
		voltage, err := client.SendCommand(CmdMeasureVoltage)
		if err != nil {
			return records, err
		}
		resistance, err := client.SendCommand(CmdMeasureResistance)
		if err != nil {
			return records, err
		}
		records = append(records, TelemetryRecord{
			Time:       time.Now(),
			Address:    client.Addr(),
			Channel:    ch.Number,
			Current:    current,
			Voltage:    voltage,
			Resistance: resistance,
		})
	}
	return records, nil
}

func (t *TelemetryLogger) appendRecord(writer *csv.Writer, rec TelemetryRecord, observer ReadingObserver) {
	writer.Write([]string{
		rec.Time.Format(time.RFC3339),
		rec.Address,
		fmt.Sprint(rec.Channel),
		rec.Current,
		rec.Voltage,
		rec.Resistance,
	})
	writer.Flush()
	metricRecords.Inc()

	t.latestMu.Lock()
	t.latest[fmt.Sprintf("%s/%d", rec.Address, rec.Channel)] = rec
	t.latestMu.Unlock()

	// published after the write, in the same order it was logged
	if observer != nil {
		observer(rec)
	}
}
