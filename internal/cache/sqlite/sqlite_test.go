package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
)

func TestInsertAndGetTelemetryRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	records := []loadsetup.TelemetryRecord{
		{Time: base, Address: "10.0.0.11:5025", Channel: 1, Current: "0.1", Voltage: "12.0", Resistance: "120"},
		{Time: base.Add(time.Second), Address: "10.0.0.11:5025", Channel: 2, Current: "0.2", Voltage: "5.0", Resistance: "25"},
	}
	if err := InsertTelemetryRecords(path, records...); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// a second cycle appends, never replaces
	later := loadsetup.TelemetryRecord{
		Time: base.Add(2 * time.Second), Address: "10.0.0.11:5025", Channel: 1,
		Current: "0.3", Voltage: "11.9", Resistance: "119",
	}
	if err := InsertTelemetryRecords(path, later); err != nil {
		t.Fatalf("insert second cycle: %v", err)
	}

	got, err := GetTelemetryRecords(path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Channel != 1 || got[1].Channel != 2 || got[2].Current != "0.3" {
		t.Fatalf("records out of order or mangled: %+v", got)
	}
}

func TestGetTelemetryRecordsMissingFile(t *testing.T) {
	_, err := GetTelemetryRecords(filepath.Join(t.TempDir(), "missing.db"))
	if err == nil {
		t.Fatal("expected an error for a missing database file")
	}
}
