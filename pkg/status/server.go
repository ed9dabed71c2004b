// Package status serves the supervisor's observable state over a loopback
// HTTP listener: liveness for the container runtime, a JSON document for
// operators, Prometheus metrics for scrapers.
package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/procinfo"
	"github.com/app-tools/appwarden/pkg/supervisor"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAddress binds loopback only: the admin surface is for the
// container's own runtime and sidecars, never for publishing.
const DefaultAddress = "127.0.0.1:8500"

const readHeaderTimeout = 5 * time.Second

// Source is the supervisor view the server renders.
type Source interface {
	Snapshot() (supervisor.Status, bool)
}

// Server is the admin HTTP endpoint. Zero value is not usable; construct
// with NewServer.
type Server struct {
	address string
	source  Source
	logger  logging.Logger

	listener net.Listener
	server   *http.Server
}

func NewServer(address string, source Source, logger logging.Logger) *Server {
	if address == "" {
		address = DefaultAddress
	}
	return &Server{
		address: address,
		source:  source,
		logger:  logger,
	}
}

// Start binds the admin listener and serves in the background until
// Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.NewNetworkError("admin listener failed on "+s.address, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Admin server failed, address: %s, error: %v", s.address, err)
		}
	}()

	s.logger.Infof("Admin server listening, address: %s", listener.Addr())
	return nil
}

// Addr is the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Shutdown stops serving, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleHealthz answers liveness for container runtimes: 200 only while the
// supervised service is healthy.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status, ok := s.source.Snapshot()
	if ok && status.State == supervisor.StateHealthy {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
		return
	}

	state := "none"
	if ok {
		state = status.State.String()
	}
	http.Error(w, state, http.StatusServiceUnavailable)
}

type probeDocument struct {
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMS float64   `json:"latency_ms"`
}

type outputDocument struct {
	Lines    int64      `json:"lines"`
	Bytes    int64      `json:"bytes"`
	LastLine *time.Time `json:"last_line,omitempty"`
}

type statusDocument struct {
	Supervised          bool            `json:"supervised"`
	ServiceName         string          `json:"service_name,omitempty"`
	State               string          `json:"state,omitempty"`
	PID                 int             `json:"pid,omitempty"`
	StartTime           *time.Time      `json:"start_time,omitempty"`
	UptimeSeconds       float64         `json:"uptime_seconds,omitempty"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	LastProbe           *probeDocument  `json:"last_probe,omitempty"`
	Output              *outputDocument `json:"output,omitempty"`
	Resources           *procinfo.Usage `json:"resources,omitempty"`
}

// handleStatus renders the full status document. Resource figures are best
// effort; their absence never fails the request.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status, ok := s.source.Snapshot()
	if !ok {
		json.NewEncoder(w).Encode(statusDocument{Supervised: false})
		return
	}

	document := statusDocument{
		Supervised:          true,
		ServiceName:         status.ServiceName,
		State:               status.State.String(),
		PID:                 status.PID,
		ConsecutiveFailures: status.ConsecutiveFailures,
	}
	if !status.StartTime.IsZero() {
		start := status.StartTime
		document.StartTime = &start
		document.UptimeSeconds = time.Since(start).Seconds()
	}
	if status.LastProbe != nil {
		document.LastProbe = &probeDocument{
			Healthy:   status.LastProbe.Healthy,
			Message:   status.LastProbe.Message,
			Timestamp: status.LastProbe.Timestamp,
			LatencyMS: float64(status.LastProbe.Latency) / float64(time.Millisecond),
		}
	}

	output := outputDocument{Lines: status.Output.Lines, Bytes: status.Output.Bytes}
	if !status.Output.LastLine.IsZero() {
		last := status.Output.LastLine
		output.LastLine = &last
	}
	document.Output = &output

	if status.PID > 0 && status.State != supervisor.StateTerminated {
		if usage, err := procinfo.GetProcessUsage(status.PID); err == nil {
			document.Resources = usage
		}
	}

	if err := json.NewEncoder(w).Encode(document); err != nil {
		s.logger.Errorf("Failed to encode status document, error: %v", err)
	}
}
