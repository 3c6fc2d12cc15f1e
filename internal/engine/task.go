// Package engine runs a task: it pushes events through the configured
// algorithms one at a time and announces every step on the incident
// dispatcher, so services such as the profiler can observe the run.
//
// For each event the dispatcher sees BeginEvent, then BeginAlg/EndAlg around
// every algorithm in configuration order, then EndEvent. Services are
// activated before the first event and deactivated in reverse order on every
// exit path.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/zebiner/evt-profiler/internal/config"
	"github.com/zebiner/evt-profiler/internal/incident"
	"github.com/zebiner/evt-profiler/internal/logging"
)

// Service is a component with an activation lifecycle around a run
type Service interface {
	Name() string
	Activate() error
	Deactivate() error
}

// Options configures a Task
type Options struct {
	Dispatcher *incident.Dispatcher // Incident bus, a new one when nil
	Log        *logging.Entry       // Engine log, discarded when nil
	EventRate  float64              // Events per second, 0 = unthrottled
	Burst      int                  // Limiter burst, 1 when zero
}

// RunStats summarizes a finished run
type RunStats struct {
	Events   uint64
	Duration time.Duration
}

// Task is a configured sequence of algorithms plus the services around it
type Task struct {
	name       string
	algorithms []Algorithm
	services   []Service
	dispatcher *incident.Dispatcher
	limiter    *rate.Limiter
	log        *logging.Entry
}

// NewTask creates a task over algs
func NewTask(name string, algs []Algorithm, opts Options) *Task {
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = incident.NewDispatcher()
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard().Module("engine")
	}

	t := &Task{
		name:       name,
		algorithms: algs,
		dispatcher: dispatcher,
		log:        log,
	}

	if opts.EventRate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.EventRate), burst)
	}
	return t
}

// FromConfig builds a task from a task description. A zero EventRate in
// opts falls back to the description's event_rate.
func FromConfig(cfg *config.Task, opts Options) (*Task, error) {
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}
	algs, err := BuildAlgorithms(specs)
	if err != nil {
		return nil, err
	}
	if opts.EventRate == 0 {
		opts.EventRate = cfg.EventRate
	}
	return NewTask(cfg.TaskName(), algs, opts), nil
}

// Name returns the task name
func (t *Task) Name() string {
	return t.name
}

// Dispatcher returns the incident bus services subscribe to
func (t *Task) Dispatcher() *incident.Dispatcher {
	return t.dispatcher
}

// Algorithms returns the algorithms in execution order
func (t *Task) Algorithms() []Algorithm {
	return t.algorithms
}

// AddService appends a service. Services activate in the order added.
func (t *Task) AddService(s Service) {
	t.services = append(t.services, s)
}

// Run processes events events. Any algorithm or dispatch failure stops the
// run; services are deactivated regardless and their errors joined in.
func (t *Task) Run(ctx context.Context, events int) (stats RunStats, err error) {
	if events < 0 {
		return stats, fmt.Errorf("%s: event count must not be negative, got %d", t.name, events)
	}

	active, err := t.activate()
	if err != nil {
		return stats, err
	}
	defer func() {
		if derr := t.deactivate(active); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	t.log.Infof("running %d events through %d algorithms", events, len(t.algorithms))
	start := time.Now()

	for seq := uint64(0); seq < uint64(events); seq++ {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return stats, fmt.Errorf("%s: waiting for event %d: %w", t.name, seq, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%s: stopped before event %d: %w", t.name, seq, err)
		}

		if err := t.process(ctx, seq); err != nil {
			return stats, err
		}
		stats.Events++
	}

	stats.Duration = time.Since(start)
	t.log.Infof("processed %d events in %v", stats.Events, stats.Duration)
	return stats, nil
}

// process runs one event through every algorithm
func (t *Task) process(ctx context.Context, seq uint64) error {
	evt := &Event{Seq: seq, Store: make(map[string]interface{})}

	if err := t.fire(incident.NewEvent(incident.BeginEvent, seq)); err != nil {
		return err
	}

	for _, alg := range t.algorithms {
		if err := t.fire(incident.NewAlgorithm(incident.BeginAlg, alg)); err != nil {
			return err
		}
		if err := execute(ctx, alg, evt); err != nil {
			return fmt.Errorf("%s: event %d: algorithm %s: %w", t.name, seq, alg.Name(), err)
		}
		if err := t.fire(incident.NewAlgorithm(incident.EndAlg, alg)); err != nil {
			return err
		}
	}

	if err := t.fire(incident.NewEvent(incident.EndEvent, seq)); err != nil {
		return err
	}
	t.log.Tracef("event %d done", seq)
	return nil
}

func (t *Task) fire(inc incident.Incident) error {
	if err := t.dispatcher.Fire(inc); err != nil {
		return fmt.Errorf("%s: dispatching %s: %w", t.name, inc.IncidentName(), err)
	}
	return nil
}

// activate starts services in order and stops the started ones if any fails
func (t *Task) activate() ([]Service, error) {
	active := make([]Service, 0, len(t.services))
	for _, s := range t.services {
		if err := s.Activate(); err != nil {
			derr := t.deactivate(active)
			return nil, errors.Join(fmt.Errorf("activating %s: %w", s.Name(), err), derr)
		}
		t.log.Debugf("activated %s", s.Name())
		active = append(active, s)
	}
	return active, nil
}

// deactivate stops services in reverse order, collecting every error
func (t *Task) deactivate(services []Service) error {
	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Deactivate(); err != nil {
			t.log.Warnf("deactivating %s: %v", services[i].Name(), err)
			errs = append(errs, fmt.Errorf("deactivating %s: %w", services[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// execute runs one algorithm, turning a panic into an error
func execute(ctx context.Context, alg Algorithm, evt *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return alg.Execute(ctx, evt)
}
