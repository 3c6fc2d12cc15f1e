// Package incident provides named lifecycle notifications and their dispatch.
//
// A host execution engine fires incidents as it processes events and runs
// algorithms; observers register handlers against an incident name and are
// called synchronously on the firing goroutine.
//
// Incidents form a closed set of variants:
//
//   - EventIncident: event-scoped, carries no payload
//   - AlgorithmIncident: algorithm-scoped, carries the algorithm that fired
//
// Handlers type-switch on the variant instead of casting an untyped payload.
package incident

import "fmt"

// Name identifies an incident stream
type Name string

// Well-known incident names fired by the engine
const (
	BeginEvent Name = "BeginEvent"
	EndEvent   Name = "EndEvent"
	BeginAlg   Name = "BeginAlg"
	EndAlg     Name = "EndAlg"
)

// Algorithm is the view of a running algorithm that incidents expose
type Algorithm interface {
	Name() string
}

// Incident is a notification delivered to handlers.
// The unexported method keeps the set of variants closed to this package.
type Incident interface {
	IncidentName() Name
	incident()
}

// EventIncident marks the beginning or end of one event
type EventIncident struct {
	Kind Name
	// Seq is the zero-based index of the event within the run.
	Seq uint64
}

// IncidentName returns the incident stream name
func (e EventIncident) IncidentName() Name { return e.Kind }

func (EventIncident) incident() {}

// AlgorithmIncident marks the beginning or end of one algorithm execution
type AlgorithmIncident struct {
	Kind      Name
	Algorithm Algorithm
}

// IncidentName returns the incident stream name
func (a AlgorithmIncident) IncidentName() Name { return a.Kind }

func (AlgorithmIncident) incident() {}

// NewEvent creates an event-scoped incident
func NewEvent(kind Name, seq uint64) EventIncident {
	return EventIncident{Kind: kind, Seq: seq}
}

// NewAlgorithm creates an algorithm-scoped incident
func NewAlgorithm(kind Name, alg Algorithm) AlgorithmIncident {
	return AlgorithmIncident{Kind: kind, Algorithm: alg}
}

// Handler handles one incident. A non-nil error means handling failed.
type Handler interface {
	// Name identifies the handler in logs and errors.
	Name() string
	Handle(inc Incident) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc struct {
	Label string
	Fn    func(inc Incident) error
}

// Name returns the handler label
func (h *HandlerFunc) Name() string { return h.Label }

// Handle calls Fn
func (h *HandlerFunc) Handle(inc Incident) error {
	if h.Fn == nil {
		return nil
	}
	return h.Fn(inc)
}

// HandlerError records which handler failed on which incident
type HandlerError struct {
	Handler  string
	Incident Name
	Err      error
}

// Error implements the error interface
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s: %v", e.Handler, e.Incident, e.Err)
}

// Unwrap returns the handler's error
func (e *HandlerError) Unwrap() error {
	return e.Err
}
