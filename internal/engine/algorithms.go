package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zebiner/evt-profiler/internal/config"
	"github.com/zebiner/evt-profiler/internal/profiling"
)

// Event is the unit of work passed through every algorithm
type Event struct {
	Seq   uint64
	Store map[string]interface{} // Scratch space shared by the algorithms of one event
}

// Algorithm processes one event
type Algorithm interface {
	Name() string
	Execute(ctx context.Context, evt *Event) error
}

// Factory builds an algorithm from its configuration entry
type Factory func(spec config.AlgorithmSpec) (Algorithm, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		"":      newNoop,
		"Noop":  newNoop,
		"Sleep": newSleep,
		"Spin":  newSpin,
	}
)

// RegisterAlgorithm makes a factory available under an identifier namespace
func RegisterAlgorithm(namespace string, f Factory) error {
	if namespace == "" {
		return fmt.Errorf("algorithm namespace must not be empty")
	}
	if f == nil {
		return fmt.Errorf("nil factory for %s", namespace)
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := factories[namespace]; exists {
		return fmt.Errorf("algorithm namespace %s already registered", namespace)
	}
	factories[namespace] = f
	return nil
}

// Namespaces lists the registered namespaces, sorted
func Namespaces() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for ns := range factories {
		if ns != "" {
			names = append(names, ns)
		}
	}
	sort.Strings(names)
	return names
}

// BuildAlgorithms instantiates the configured algorithms in order
func BuildAlgorithms(specs []config.AlgorithmSpec) ([]Algorithm, error) {
	algs := make([]Algorithm, 0, len(specs))
	for i, spec := range specs {
		factoriesMu.RLock()
		f, ok := factories[spec.Namespace()]
		factoriesMu.RUnlock()
		if !ok {
			return nil, profiling.NewError(profiling.ErrCodeConfiguration, spec.Identifier,
				fmt.Sprintf("algorithms[%d]: no algorithm type %q", i, spec.Namespace()))
		}

		alg, err := f(spec)
		if err != nil {
			return nil, profiling.WrapError(profiling.ErrCodeConfiguration, spec.Identifier,
				fmt.Sprintf("algorithms[%d]: cannot build algorithm", i), err)
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

// noop does nothing
type noop struct {
	name string
}

func newNoop(spec config.AlgorithmSpec) (Algorithm, error) {
	return &noop{name: spec.Name()}, nil
}

func (a *noop) Name() string { return a.name }

func (a *noop) Execute(context.Context, *Event) error { return nil }

// sleep blocks for a fixed duration or until the context ends
type sleep struct {
	name     string
	duration time.Duration
}

func newSleep(spec config.AlgorithmSpec) (Algorithm, error) {
	d, err := durationParam(spec.Params, "duration")
	if err != nil {
		return nil, err
	}
	return &sleep{name: spec.Name(), duration: d}, nil
}

func (a *sleep) Name() string { return a.name }

func (a *sleep) Execute(ctx context.Context, _ *Event) error {
	if a.duration <= 0 {
		return nil
	}
	timer := time.NewTimer(a.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spin burns CPU for a fixed duration
type spin struct {
	name     string
	duration time.Duration
}

func newSpin(spec config.AlgorithmSpec) (Algorithm, error) {
	d, err := durationParam(spec.Params, "duration")
	if err != nil {
		return nil, err
	}
	return &spin{name: spec.Name(), duration: d}, nil
}

func (a *spin) Name() string { return a.name }

func (a *spin) Execute(ctx context.Context, _ *Event) error {
	deadline := time.Now().Add(a.duration)
	for i := 0; time.Now().Before(deadline); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// durationParam reads a duration parameter. Strings use time.ParseDuration
// syntax, bare numbers are milliseconds. A missing key means zero.
func durationParam(params map[string]interface{}, key string) (time.Duration, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, nil
	}

	var d time.Duration
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("param %s: %w", key, err)
		}
		d = parsed
	case int:
		d = time.Duration(v) * time.Millisecond
	case float64:
		d = time.Duration(v * float64(time.Millisecond))
	default:
		return 0, fmt.Errorf("param %s: unsupported type %T", key, raw)
	}

	if d < 0 {
		return 0, fmt.Errorf("param %s must not be negative", key)
	}
	return d, nil
}
