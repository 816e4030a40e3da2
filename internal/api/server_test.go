package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
)

func TestServerEndpoints(t *testing.T) {
	devices := []loadsetup.Device{
		{Kind: loadsetup.DeviceLoad, ID: "LOAD1", Host: "10.0.0.11", Port: 5025},
	}
	readings := []loadsetup.TelemetryRecord{
		{Time: time.Now(), Address: "10.0.0.11:5025", Channel: 1, Current: "0.1", Voltage: "12.0", Resistance: "120"},
	}
	s := &Server{
		Devices:  func() []loadsetup.Device { return devices },
		Readings: func() []loadsetup.TelemetryRecord { return readings },
	}
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/devices")
	if err != nil {
		t.Fatalf("get devices: %v", err)
	}
	defer res.Body.Close()
	var gotDevices []loadsetup.Device
	if err := json.NewDecoder(res.Body).Decode(&gotDevices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if len(gotDevices) != 1 || gotDevices[0].ID != "LOAD1" {
		t.Fatalf("unexpected devices: %+v", gotDevices)
	}

	res, err = http.Get(ts.URL + "/readings")
	if err != nil {
		t.Fatalf("get readings: %v", err)
	}
	defer res.Body.Close()
	var gotReadings []loadsetup.TelemetryRecord
	if err := json.NewDecoder(res.Body).Decode(&gotReadings); err != nil {
		t.Fatalf("decode readings: %v", err)
	}
	if len(gotReadings) != 1 || gotReadings[0].Channel != 1 {
		t.Fatalf("unexpected readings: %+v", gotReadings)
	}

	res, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", res.StatusCode)
	}
}

func TestServerNilCallbacks(t *testing.T) {
	s := &Server{}
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	for _, path := range []string{"/devices", "/readings"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s returned %d", path, res.StatusCode)
		}
	}
}
