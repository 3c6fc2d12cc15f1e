// Package profiler provides the incident handlers that drive the timers
package profiler

import (
	"github.com/zebiner/evt-profiler/internal/incident"
	"github.com/zebiner/evt-profiler/internal/logging"
	"github.com/zebiner/evt-profiler/internal/profiling"
)

// beginEventHandler starts the event timer
type beginEventHandler struct {
	timer *profiling.Timer
}

func (h *beginEventHandler) Name() string { return "BeginEvtHandler" }

func (h *beginEventHandler) Handle(incident.Incident) error {
	return h.timer.Start()
}

// endEventHandler stops the event timer and logs the event duration
type endEventHandler struct {
	timer *profiling.Timer
	log   *logging.Entry
}

func (h *endEventHandler) Name() string { return "EndEvtHandler" }

func (h *endEventHandler) Handle(inc incident.Incident) error {
	elapsed, err := h.timer.Stop()
	if err != nil {
		return err
	}
	if evt, ok := inc.(incident.EventIncident); ok {
		h.log.WithField("event", evt.Seq).Debugf("the event took %.5f ms", profiling.Milliseconds(elapsed))
	} else {
		h.log.Debugf("the event took %.5f ms", profiling.Milliseconds(elapsed))
	}
	return nil
}

// beginAlgHandler starts the timer of the algorithm named in the incident
type beginAlgHandler struct {
	timers *profiling.Registry
}

func (h *beginAlgHandler) Name() string { return "BeginAlgHandler" }

func (h *beginAlgHandler) Handle(inc incident.Incident) error {
	timer, err := algorithmTimer(h.timers, inc)
	if err != nil {
		return err
	}
	return timer.Start()
}

// endAlgHandler stops the timer of the algorithm named in the incident
type endAlgHandler struct {
	timers *profiling.Registry
	log    *logging.Entry
}

func (h *endAlgHandler) Name() string { return "EndAlgHandler" }

func (h *endAlgHandler) Handle(inc incident.Incident) error {
	timer, err := algorithmTimer(h.timers, inc)
	if err != nil {
		return err
	}
	elapsed, err := timer.Stop()
	if err != nil {
		return err
	}
	h.log.WithField("algorithm", timer.Name()).Debugf("the algorithm %s took %.5f ms", timer.Name(), profiling.Milliseconds(elapsed))
	return nil
}

// algorithmTimer resolves the timer for an algorithm-scoped incident
func algorithmTimer(timers *profiling.Registry, inc incident.Incident) (*profiling.Timer, error) {
	switch v := inc.(type) {
	case incident.AlgorithmIncident:
		if v.Algorithm == nil {
			return nil, profiling.NewError(profiling.ErrCodePayloadTypeMismatch, string(v.Kind), "incident carries no algorithm")
		}
		return timers.Get(v.Algorithm.Name())
	default:
		name := "<nil>"
		if inc != nil {
			name = string(inc.IncidentName())
		}
		return nil, profiling.NewError(profiling.ErrCodePayloadTypeMismatch, name, "expected an algorithm incident")
	}
}
