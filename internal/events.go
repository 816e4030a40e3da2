package loadsetup

// InitEvents carries the callbacks the presentation layer (or the CLI)
// hooks into during an initialization run. Any callback may be nil;
// events are transient and never retried.
type InitEvents struct {
	// Progress receives (devices completed) * 100 / (total devices).
	// The sequence is monotonically non-decreasing and ends at 100.
	Progress func(percent int)

	// Result receives a human-readable per-device outcome.
	Result func(message string)

	// Error receives a per-device failure with the offending address.
	Error func(addr string, err error)
}

func (ev *InitEvents) emitProgress(percent int) {
	if ev != nil && ev.Progress != nil {
		ev.Progress(percent)
	}
}

func (ev *InitEvents) emitResult(message string) {
	if ev != nil && ev.Result != nil {
		ev.Result(message)
	}
}

func (ev *InitEvents) emitError(addr string, err error) {
	if ev != nil && ev.Error != nil {
		ev.Error(addr, err)
	}
}

// ReadingObserver receives each telemetry record right after it was
// appended to the log, in log order. Used for live display updates.
type ReadingObserver func(rec TelemetryRecord)
