package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/logstream"
	"github.com/app-tools/appwarden/pkg/metrics"
	"github.com/app-tools/appwarden/pkg/probe"
	"github.com/app-tools/appwarden/pkg/process"

	"github.com/google/uuid"
)

const (
	DefaultGracePeriod        = 30 * time.Second
	DefaultProbeTimeout       = 5 * time.Second
	DefaultProbeInterval      = 30 * time.Second
	DefaultUnhealthyThreshold = 3

	// DefaultLaunchCheckWindow is how long a fresh process must survive
	// for Start to report success instead of a launch error.
	DefaultLaunchCheckWindow = 200 * time.Millisecond

	// killWaitTimeout bounds the wait for exit after SIGKILL.
	killWaitTimeout = 5 * time.Second

	// eventBufferSize decouples the supervision loop from its consumer.
	eventBufferSize = 64
)

// Options configures a Supervisor.
type Options struct {
	// GracePeriod between the termination signal and SIGKILL during Stop.
	GracePeriod time.Duration

	// ProbeTimeout bounds a single probe attempt.
	ProbeTimeout time.Duration

	// LaunchCheckWindow is how long Start watches a fresh process for an
	// immediate crash before declaring the launch successful.
	LaunchCheckWindow time.Duration

	// Probe overrides the liveness check. Zero value means an HTTP probe
	// against the service's health endpoint.
	Probe probe.Config

	// ExecuteCmd overrides how the service process is launched.
	ExecuteCmd process.ExecuteCmd

	// Prober overrides probe construction entirely.
	Prober probe.Prober
}

// SuperviseOptions configures the periodic probe loop.
type SuperviseOptions struct {
	// Interval between probe evaluations.
	Interval time.Duration

	// UnhealthyThreshold is the number of consecutive failures, while
	// healthy, that flips the service to unhealthy.
	UnhealthyThreshold int

	// InitialDelay before the first probe, giving slow interpreters room
	// to boot without burning failed probes.
	InitialDelay time.Duration
}

// Supervisor owns the lifecycle of exactly one service process: launch,
// liveness probing, state machine, termination. The supervised application
// is an opaque collaborator reached only over the network.
type Supervisor struct {
	id      string
	options Options
	logger  logging.Logger

	mutex               sync.Mutex
	state               State
	spec                ServiceSpec
	handle              *ServiceHandle
	prober              probe.Prober
	streamer            *logstream.Streamer
	consecutiveFailures int
	lastProbe           *probe.Result
	stopRequested       bool
	supervising         bool
	launching           bool
}

func New(id string, options Options, logger logging.Logger) *Supervisor {
	if options.GracePeriod <= 0 {
		options.GracePeriod = DefaultGracePeriod
	}
	if options.ProbeTimeout <= 0 {
		options.ProbeTimeout = DefaultProbeTimeout
	}
	if options.LaunchCheckWindow <= 0 {
		options.LaunchCheckWindow = DefaultLaunchCheckWindow
	}

	return &Supervisor{
		id:      id,
		options: options,
		logger:  logger,
	}
}

// Start launches the service described by spec. It fails with a bind error
// when the listen port is occupied (checked before anything is launched),
// and with a launch error when the process cannot start or dies within the
// launch check window. On success the service is in the starting state and
// the returned handle identifies it until termination.
//
// At most one service is under supervision at a time; starting over a live
// handle is a conflict. After the previous service reached terminated, the
// Supervisor can start a new one.
func (s *Supervisor) Start(ctx context.Context, spec ServiceSpec) (*ServiceHandle, error) {
	if ctx == nil {
		return nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", s.id)
	}

	spec = spec.withDefaults()

	s.logger.Infof("Starting service, id: %s, name: %s, command: %v, listen: %s",
		s.id, spec.Name, spec.Command, spec.ListenAddress())

	if err := ValidateServiceSpec(spec); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	if s.launching {
		s.mutex.Unlock()
		return nil, errors.NewConflictError("another start is already in progress", nil).WithContext("id", s.id)
	}
	if s.handle != nil && s.state != StateTerminated {
		current := s.handle.ID
		s.mutex.Unlock()
		return nil, errors.NewConflictError("a service is already under supervision", nil).
			WithContext("id", s.id).WithContext("handle", current)
	}
	s.launching = true
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		s.launching = false
		s.mutex.Unlock()
	}()

	// Fail fast on an occupied port: no process is created.
	if err := checkPortAvailable(spec.Host, spec.Port); err != nil {
		s.logger.Errorf("Port availability check failed, id: %s, error: %v", s.id, err)
		return nil, err
	}

	executeCmd := s.options.ExecuteCmd
	if executeCmd == nil {
		executeCmd = process.NewExecuteCmd(process.ExecutionConfig{
			Command:          spec.Command,
			Environment:      spec.Environment,
			WorkingDirectory: spec.WorkingDirectory,
		}, spec.Name, s.logger)
	}

	proc, stdout, err := executeCmd(ctx)
	if err != nil {
		return nil, err
	}

	handle := &ServiceHandle{
		ID:            uuid.NewString(),
		PID:           proc.Pid,
		StartTime:     time.Now(),
		ListenAddress: spec.ListenAddress(),
		ProbeURL:      spec.ProbeURL(),
		process:       proc,
		exitCh:        make(chan struct{}),
	}

	go func() {
		state, waitErr := proc.Wait()
		handle.setExitResult(state, waitErr)
		close(handle.exitCh)
	}()

	// Service output flows into the structured log for the lifetime of
	// the process, including a crash during the launch check.
	streamer := logstream.New(spec.Name, s.logger)
	if stdout != nil {
		streamer.Run(stdout)
	}

	// The launch check catches immediate crashes: misspelled entrypoints,
	// missing interpreters, bad flags.
	select {
	case <-handle.exitCh:
		reason := handle.exitReason()
		s.logger.Errorf("Service exited during launch check, id: %s, name: %s, reason: %s", s.id, spec.Name, reason)
		return nil, errors.NewLaunchError("service exited during launch: "+reason, nil).
			WithContext("id", s.id).WithContext("pid", proc.Pid)
	case <-time.After(s.options.LaunchCheckWindow):
	case <-ctx.Done():
		proc.Kill()
		return nil, errors.NewCancelledError("startup cancelled", ctx.Err()).WithContext("id", s.id)
	}

	prober := s.options.Prober
	if prober == nil {
		prober, err = probe.New(s.resolveProbeConfig(spec, proc.Pid), spec.Name, s.logger)
		if err != nil {
			proc.Kill()
			return nil, err
		}
	}

	s.mutex.Lock()
	s.state = StateStarting
	s.spec = spec
	s.handle = handle
	s.prober = prober
	s.streamer = streamer
	s.consecutiveFailures = 0
	s.lastProbe = nil
	s.stopRequested = false
	s.supervising = false
	s.mutex.Unlock()

	metrics.SetLifecycleState(spec.Name, string(StateStarting))
	metrics.SetServiceUp(spec.Name, true)

	s.logger.Infof("Service started, id: %s, name: %s, PID: %d, handle: %s, probe: %s",
		s.id, spec.Name, proc.Pid, handle.ID, handle.ProbeURL)

	return handle, nil
}

// resolveProbeConfig fills the probe configuration from the service spec:
// the HTTP URL from the health endpoint, loopback TCP from the listen port,
// the PID for process probes, the supervisor's probe timeout.
func (s *Supervisor) resolveProbeConfig(spec ServiceSpec, pid int) probe.Config {
	config := s.options.Probe

	if config.Type == "" {
		config.Type = probe.TypeHTTP
	}
	if config.Type == probe.TypeHTTP && config.HTTP.URL == "" {
		config.HTTP.URL = spec.ProbeURL()
	}
	if config.Type == probe.TypeTCP && config.TCP.Address == "" {
		config.TCP.Address = "127.0.0.1"
		if config.TCP.Port == 0 {
			config.TCP.Port = spec.Port
		}
	}
	if config.Type == probe.TypeProcess && config.Process.PID == 0 {
		config.Process.PID = pid
	}
	if config.Timeout <= 0 {
		config.Timeout = s.options.ProbeTimeout
	}

	return config
}

// Probe performs one synchronous liveness check against the service. A
// failed probe is an outcome, not an error, and lifecycle state is never
// changed here: only the supervision loop moves the state machine.
func (s *Supervisor) Probe(ctx context.Context, handle *ServiceHandle) probe.Result {
	s.mutex.Lock()
	current := s.handle
	prober := s.prober
	name := s.spec.Name
	s.mutex.Unlock()

	if handle == nil || current == nil || handle.ID != current.ID || prober == nil {
		return probe.Result{
			Healthy:   false,
			Message:   "handle is not under supervision",
			Timestamp: time.Now(),
		}
	}

	result := prober.Check(ctx)

	s.mutex.Lock()
	last := result
	s.lastProbe = &last
	s.mutex.Unlock()

	metrics.RecordProbe(name, result.Healthy, result.Latency)

	return result
}

// Supervise runs the periodic probe loop for the handle and returns a
// stream of state events: one when supervision begins, one per probe
// evaluation, and a final terminated event after which the stream closes.
//
// Cancelling the context detaches the observer and closes the stream; the
// service itself is unaffected. The stream is buffered and never blocks
// probing; a consumer that stops draining loses events.
func (s *Supervisor) Supervise(ctx context.Context, handle *ServiceHandle, options SuperviseOptions) (<-chan StateEvent, error) {
	if ctx == nil {
		return nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", s.id)
	}
	if options.Interval < 0 || options.InitialDelay < 0 {
		return nil, errors.NewValidationError("supervise intervals cannot be negative", nil).WithContext("id", s.id)
	}
	if options.UnhealthyThreshold < 0 {
		return nil, errors.NewValidationError("unhealthy threshold cannot be negative", nil).WithContext("id", s.id)
	}

	if options.Interval == 0 {
		options.Interval = DefaultProbeInterval
	}
	if options.UnhealthyThreshold == 0 {
		options.UnhealthyThreshold = DefaultUnhealthyThreshold
	}

	s.mutex.Lock()
	if handle == nil || s.handle == nil || handle.ID != s.handle.ID {
		s.mutex.Unlock()
		return nil, errors.NewNotFoundError("handle is not under supervision", nil).WithContext("id", s.id)
	}
	if s.supervising {
		s.mutex.Unlock()
		return nil, errors.NewConflictError("supervision is already running for this handle", nil).WithContext("id", s.id)
	}
	s.supervising = true
	initialState := s.state
	s.mutex.Unlock()

	s.logger.Infof("Supervision started, id: %s, interval: %v, threshold: %d, initial_delay: %v",
		s.id, options.Interval, options.UnhealthyThreshold, options.InitialDelay)

	events := make(chan StateEvent, eventBufferSize)
	s.emit(events, StateEvent{
		State:     initialState,
		Timestamp: time.Now(),
		Reason:    "supervision started",
	})

	go s.superviseLoop(ctx, handle, options, events, initialState)

	return events, nil
}

func (s *Supervisor) superviseLoop(ctx context.Context, handle *ServiceHandle, options SuperviseOptions, events chan<- StateEvent, lastState State) {
	defer close(events)
	defer func() {
		s.mutex.Lock()
		s.supervising = false
		s.mutex.Unlock()
	}()

	sendTerminated := func() {
		event := s.makeTerminatedEvent(handle)
		event.Transition = event.State != lastState
		s.emit(events, event)
	}

	if options.InitialDelay > 0 {
		select {
		case <-time.After(options.InitialDelay):
		case <-handle.exitCh:
			sendTerminated()
			return
		case <-ctx.Done():
			s.logger.Infof("Supervision detached, id: %s", s.id)
			return
		}
	}

	ticker := time.NewTicker(options.Interval)
	defer ticker.Stop()

	evaluate := func() bool {
		result := s.Probe(ctx, handle)

		// A result that raced with termination is discarded.
		if handle.hasExited() {
			sendTerminated()
			return false
		}
		if s.isStopping() {
			return true
		}

		event := s.applyProbeResult(result, options)
		event.Transition = event.State != lastState
		lastState = event.State
		s.emit(events, event)
		return true
	}

	// First evaluation happens immediately after the initial delay.
	if !evaluate() {
		return
	}

	for {
		select {
		case <-ticker.C:
			if !evaluate() {
				return
			}
		case <-handle.exitCh:
			sendTerminated()
			return
		case <-ctx.Done():
			s.logger.Infof("Supervision detached, id: %s", s.id)
			return
		}
	}
}

// applyProbeResult advances the state machine by one evaluation. Failures
// while starting carry no weight; one success resets the failure count and
// makes the service healthy; threshold consecutive failures while healthy
// make it unhealthy.
func (s *Supervisor) applyProbeResult(result probe.Result, options SuperviseOptions) StateEvent {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if result.Healthy {
		s.consecutiveFailures = 0
		if s.state == StateStarting || s.state == StateUnhealthy {
			s.transitionLocked(StateHealthy, result.Message)
		}
	} else {
		if s.state == StateStarting {
			s.logger.Debugf("Probe failed while starting, not counted, id: %s, message: %s", s.id, result.Message)
		} else {
			s.consecutiveFailures++
			if s.state == StateHealthy && s.consecutiveFailures >= options.UnhealthyThreshold {
				s.transitionLocked(StateUnhealthy, result.Message)
			} else {
				s.logger.Warnf("Probe failed, id: %s, state: %s, consecutive_failures: %d, message: %s",
					s.id, s.state, s.consecutiveFailures, result.Message)
			}
		}
	}

	last := result
	return StateEvent{
		State:               s.state,
		Timestamp:           result.Timestamp,
		Probe:               &last,
		ConsecutiveFailures: s.consecutiveFailures,
		Reason:              result.Message,
	}
}

func (s *Supervisor) makeTerminatedEvent(handle *ServiceHandle) StateEvent {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	reason := handle.exitReason()
	if s.stopRequested {
		reason = "service stopped"
	}

	s.transitionLocked(StateTerminated, reason)

	return StateEvent{
		State:               StateTerminated,
		Timestamp:           time.Now(),
		ConsecutiveFailures: s.consecutiveFailures,
		Reason:              reason,
	}
}

// transitionLocked moves the state machine along a valid edge and records
// it. Same-state calls are no-ops. Callers hold s.mutex.
func (s *Supervisor) transitionLocked(to State, reason string) {
	from := s.state
	if from == to {
		return
	}
	if !ValidTransition(from, to) {
		s.logger.Errorf("Invalid state transition attempted, id: %s, from: %s, to: %s", s.id, from, to)
		return
	}

	s.state = to
	name := s.spec.Name

	if to == StateUnhealthy {
		s.logger.Warnf("Service state changed, id: %s, name: %s, %s -> %s, reason: %s", s.id, name, from, to, reason)
	} else {
		s.logger.Infof("Service state changed, id: %s, name: %s, %s -> %s, reason: %s", s.id, name, from, to, reason)
	}

	metrics.SetLifecycleState(name, string(to))
	metrics.RecordTransition(name, string(from), string(to))
	if to == StateTerminated {
		metrics.SetServiceUp(name, false)
	}
}

// Stop terminates the service: termination signal to the process group, a
// grace period to exit, then SIGKILL. The state is terminated when Stop
// returns, whatever the process did. Safe to call in any state; stopping an
// already terminated handle is a no-op.
func (s *Supervisor) Stop(ctx context.Context, handle *ServiceHandle) error {
	if ctx == nil {
		return errors.NewValidationError("context cannot be nil", nil).WithContext("id", s.id)
	}

	s.mutex.Lock()
	if handle == nil || s.handle == nil || handle.ID != s.handle.ID {
		s.mutex.Unlock()
		return errors.NewNotFoundError("handle is not under supervision", nil).WithContext("id", s.id)
	}
	if s.state == StateTerminated {
		s.mutex.Unlock()
		s.logger.Debugf("Stop on terminated service, id: %s", s.id)
		return nil
	}
	alreadyStopping := s.stopRequested
	s.stopRequested = true
	name := s.spec.Name
	s.mutex.Unlock()

	// A concurrent Stop owns the termination; wait for it to finish.
	if alreadyStopping {
		select {
		case <-handle.exitCh:
			return nil
		case <-ctx.Done():
			return errors.NewCancelledError("stop cancelled", ctx.Err()).WithContext("id", s.id)
		}
	}

	s.logger.Infof("Stopping service, id: %s, name: %s, PID: %d, grace: %v",
		s.id, name, handle.PID, s.options.GracePeriod)

	err := s.terminate(ctx, handle)

	s.mutex.Lock()
	s.transitionLocked(StateTerminated, "service stopped")
	s.mutex.Unlock()

	if err != nil {
		return err
	}

	s.logger.Infof("Service stopped, id: %s, name: %s", s.id, name)
	return nil
}

// terminate performs the two-phase shutdown outside the supervisor lock.
func (s *Supervisor) terminate(ctx context.Context, handle *ServiceHandle) error {
	pid := handle.PID
	grace := s.options.GracePeriod

	if handle.hasExited() {
		s.logger.Debugf("Process already exited, id: %s, PID: %d", s.id, pid)
		return nil
	}

	s.logger.Infof("Sending termination signal, id: %s, PID: %d", s.id, pid)
	if err := process.SendTerminationSignal(pid, false, grace); err != nil {
		s.logger.Warnf("Failed to send termination signal, id: %s, PID: %d, error: %v", s.id, pid, err)
	}

	select {
	case <-handle.exitCh:
		s.logger.Infof("Service terminated gracefully, id: %s, PID: %d", s.id, pid)
		return nil
	case <-time.After(grace):
		timeout := errors.NewShutdownTimeoutError(
			fmt.Sprintf("service did not exit within grace period %v", grace), nil).WithContext("pid", pid)
		s.logger.Warnf("Escalating to SIGKILL, id: %s, error: %v", s.id, timeout)
	case <-ctx.Done():
		s.logger.Warnf("Context cancelled during graceful shutdown, escalating to SIGKILL, id: %s, PID: %d", s.id, pid)
	}

	if err := handle.process.Kill(); err != nil && !handle.hasExited() {
		return errors.NewInternalError("failed to kill service process", err).WithContext("pid", pid)
	}

	select {
	case <-handle.exitCh:
		s.logger.Infof("Service force terminated, id: %s, PID: %d", s.id, pid)
		return nil
	case <-time.After(killWaitTimeout):
		return errors.NewInternalError("service did not exit after SIGKILL", nil).WithContext("pid", pid)
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Status is a point-in-time view of the supervised service.
type Status struct {
	ServiceName         string
	State               State
	PID                 int
	StartTime           time.Time
	ConsecutiveFailures int
	LastProbe           *probe.Result
	Output              logstream.Stats
}

// Snapshot reports the current supervision status. ok is false when no
// service has been started yet.
func (s *Supervisor) Snapshot() (Status, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.handle == nil {
		return Status{}, false
	}

	status := Status{
		ServiceName:         s.spec.Name,
		State:               s.state,
		PID:                 s.handle.PID,
		StartTime:           s.handle.StartTime,
		ConsecutiveFailures: s.consecutiveFailures,
	}
	if s.lastProbe != nil {
		last := *s.lastProbe
		status.LastProbe = &last
	}
	if s.streamer != nil {
		status.Output = s.streamer.Stats()
	}

	return status, true
}

func (s *Supervisor) isStopping() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stopRequested
}

// emit pushes without blocking the supervision loop.
func (s *Supervisor) emit(events chan<- StateEvent, event StateEvent) {
	select {
	case events <- event:
	default:
		s.logger.Warnf("State event dropped, consumer not draining, id: %s, state: %s", s.id, event.State)
	}
}
