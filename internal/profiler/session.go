// Package profiler measures how long each event, and each algorithm inside
// it, takes by listening to the engine's lifecycle incidents, and prints a
// summary table when the session ends.
//
// A Session has two states. Activate reads the algorithm list from the task
// configuration, builds one timer per algorithm plus one for the event, and
// registers four handlers (BeginEvent, EndEvent, BeginAlg, EndAlg).
// Deactivate unregisters them and renders the report under the shared log
// lock so it comes out as one block.
package profiler

import (
	"fmt"
	"io"
	"sync"

	"github.com/zebiner/evt-profiler/internal/incident"
	"github.com/zebiner/evt-profiler/internal/logging"
	"github.com/zebiner/evt-profiler/internal/profiling"
)

// DefaultName is the service name used in the report banner and log lines
const DefaultName = "EventProfiler"

// State is the session lifecycle state
type State int

const (
	StateInactive State = iota
	StateActive
)

// String returns the state name
func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}

// TaskConfig is the configuration the session reads at activation
type TaskConfig interface {
	TaskName() string
	AlgorithmIdentifiers() ([]string, error)
}

// Registrar subscribes handlers to named incidents
type Registrar interface {
	Register(name incident.Name, h incident.Handler) error
	Unregister(name incident.Name, h incident.Handler) bool
}

// ReportSink is where the report is written. The lock is shared with the log
// output so report lines are not interleaved with log lines.
type ReportSink interface {
	sync.Locker
	Stream() io.Writer
}

// Options configures a Session
type Options struct {
	Name       string          // Service name, DefaultName when empty
	Config     TaskConfig      // Required
	Dispatcher Registrar       // Required
	Sink       ReportSink      // Report destination, required
	Log        *logging.Entry  // Session log; its level is passed on to the end handlers
	Clock      profiling.Clock // Monotonic clock, a fresh MonotonicClock when nil
}

type binding struct {
	name    incident.Name
	handler incident.Handler
}

// Session is one profiling session
type Session struct {
	name       string
	cfg        TaskConfig
	dispatcher Registrar
	sink       ReportSink
	log        *logging.Entry
	clock      profiling.Clock

	state      State
	eventTimer *profiling.Timer
	timers     *profiling.Registry
	bindings   []binding
	report     *Report
}

// New creates an inactive session
func New(opts Options) *Session {
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard().Module(name)
	}
	clock := opts.Clock
	if clock == nil {
		clock = profiling.NewMonotonicClock()
	}

	return &Session{
		name:       name,
		cfg:        opts.Config,
		dispatcher: opts.Dispatcher,
		sink:       opts.Sink,
		log:        log,
		clock:      clock,
	}
}

// Name returns the service name
func (s *Session) Name() string {
	return s.name
}

// State returns the lifecycle state
func (s *Session) State() State {
	return s.state
}

// Report returns the report captured by the last Deactivate, or nil
func (s *Session) Report() *Report {
	return s.report
}

// Activate builds the timers and registers the incident handlers.
// On failure nothing stays registered and the session remains inactive.
func (s *Session) Activate() error {
	if s.state != StateInactive {
		return fmt.Errorf("%s: already active", s.name)
	}
	if s.cfg == nil || s.dispatcher == nil || s.sink == nil {
		return profiling.NewError(profiling.ErrCodeConfiguration, s.name, "session needs a configuration, a dispatcher and a report sink")
	}

	ids, err := s.cfg.AlgorithmIdentifiers()
	if err != nil {
		return fmt.Errorf("%s: reading algorithms: %w", s.name, err)
	}

	timers, err := profiling.BuildRegistry(ids, s.clock)
	if err != nil {
		return fmt.Errorf("%s: building timers: %w", s.name, err)
	}

	event := profiling.NewTimer("evtTimer", s.clock)

	// End handlers log at the session's level.
	endLog := s.log.WithField("service", s.name)
	endLog.SetLevel(s.log.Level())

	bindings := []binding{
		{incident.BeginEvent, &beginEventHandler{timer: event}},
		{incident.EndEvent, &endEventHandler{timer: event, log: endLog}},
		{incident.BeginAlg, &beginAlgHandler{timers: timers}},
		{incident.EndAlg, &endAlgHandler{timers: timers, log: endLog}},
	}

	for i, b := range bindings {
		if err := s.dispatcher.Register(b.name, b.handler); err != nil {
			s.unregister(bindings[:i])
			return fmt.Errorf("%s: registering %s handler: %w", s.name, b.name, err)
		}
	}

	s.eventTimer = event
	s.timers = timers
	s.bindings = bindings
	s.state = StateActive
	s.report = nil

	s.log.Infof("profiling %d algorithms of %s", timers.Len(), s.cfg.TaskName())
	return nil
}

// Deactivate unregisters the handlers, prints the report and releases the
// timers. Calling it on an inactive session returns ErrNotActive.
func (s *Session) Deactivate() (err error) {
	if s.state != StateActive {
		return profiling.NewError(profiling.ErrCodeNotActive, s.name, profiling.ErrNotActive.Message)
	}

	s.unregister(s.bindings)
	s.bindings = nil

	defer func() {
		s.timers = nil
		s.eventTimer = nil
		s.state = StateInactive
		if err != nil {
			s.log.Errorf("%v", err)
			return
		}
		s.log.Infof("finalized successfully")
	}()

	report := s.capture()
	s.report = report

	s.sink.Lock()
	defer s.sink.Unlock()

	if rerr := report.Render(s.sink.Stream()); rerr != nil {
		return fmt.Errorf("%s: writing report: %w", s.name, rerr)
	}
	return nil
}

// capture copies the timer statistics into a report
func (s *Session) capture() *Report {
	event := s.eventTimer.Stats()
	event.Name = s.cfg.TaskName()

	return &Report{
		Title:      s.name,
		Task:       s.cfg.TaskName(),
		Algorithms: s.timers.Stats(),
		Event:      event,
	}
}

func (s *Session) unregister(bindings []binding) {
	for i := len(bindings) - 1; i >= 0; i-- {
		if !s.dispatcher.Unregister(bindings[i].name, bindings[i].handler) {
			s.log.Warnf("%s handler was not registered", bindings[i].name)
		}
	}
}
