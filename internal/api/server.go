// The api package serves a read-only HTTP view over a running
// controller: the configured devices, the latest reading per channel
// and the prometheus metrics. It is an observer surface only; no
// instrument commands can be issued through it.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	loadsetup "github.com/fuzun45/FBCM-LoadSetup-Software/internal"
)

// Server exposes the status endpoints. Devices and Readings are
// snapshot callbacks so the server never holds controller state.
type Server struct {
	Addr     string
	Devices  func() []loadsetup.Device
	Readings func() []loadsetup.TelemetryRecord
}

// Router() builds the chi router with the usual middleware stack.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/devices", s.handleDevices)
	router.Get("/readings", s.handleReadings)
	router.Handle("/metrics", promhttp.Handler())
	return router
}

// ListenAndServe() blocks serving the status API until the listener
// fails. A closed server returns nil.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.Addr).Msg("starting status API")
	err := http.ListenAndServe(s.Addr, s.Router())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices := []loadsetup.Device{}
	if s.Devices != nil {
		devices = s.Devices()
	}
	writeJSON(w, devices)
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	readings := []loadsetup.TelemetryRecord{}
	if s.Readings != nil {
		readings = s.Readings()
	}
	writeJSON(w, readings)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
