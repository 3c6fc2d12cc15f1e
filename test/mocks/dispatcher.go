// Package mocks provides shared mock implementations for testing the profiler.
// This package consolidates mock collaborators to avoid duplication across test files.
package mocks

import (
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/zebiner/evt-profiler/internal/incident"
)

// MockDispatcher mocks handler registration against the incident dispatcher
type MockDispatcher struct {
	mock.Mock
}

// Register mocks subscribing a handler
func (m *MockDispatcher) Register(name incident.Name, h incident.Handler) error {
	args := m.Called(name, h)
	return args.Error(0)
}

// Unregister mocks removing a handler
func (m *MockDispatcher) Unregister(name incident.Name, h incident.Handler) bool {
	args := m.Called(name, h)
	return args.Bool(0)
}

// MockTaskConfig mocks the task configuration read at activation
type MockTaskConfig struct {
	mock.Mock
}

// TaskName mocks the task name accessor
func (m *MockTaskConfig) TaskName() string {
	args := m.Called()
	return args.String(0)
}

// AlgorithmIdentifiers mocks the algorithm list accessor
func (m *MockTaskConfig) AlgorithmIdentifiers() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// NopSink is a report sink with a no-op lock that records lock usage
type NopSink struct {
	W       io.Writer
	mu      sync.Mutex
	Locks   int
	Unlocks int
}

// Lock records the acquisition
func (s *NopSink) Lock() {
	s.mu.Lock()
	s.Locks++
	s.mu.Unlock()
}

// Unlock records the release
func (s *NopSink) Unlock() {
	s.mu.Lock()
	s.Unlocks++
	s.mu.Unlock()
}

// Stream returns the wrapped writer, io.Discard when unset
func (s *NopSink) Stream() io.Writer {
	if s.W == nil {
		return io.Discard
	}
	return s.W
}

// FailingWriter fails every write with Err
type FailingWriter struct {
	Err error
}

// Write returns the configured error
func (w FailingWriter) Write([]byte) (int, error) {
	return 0, w.Err
}

// Algorithm is a named algorithm reference for incidents
type Algorithm string

// Name returns the algorithm name
func (a Algorithm) Name() string {
	return string(a)
}
