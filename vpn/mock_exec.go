package vpn

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MockExec is a deterministic executor used by unit tests. Results are
// keyed by the space-joined command line.
type MockExec struct {
	mu sync.Mutex

	RunCalls    [][]string
	OutputCalls [][]string

	RunErrors    map[string]error
	OutputErrors map[string]error
	Stdout       map[string]string
	Stderr       map[string]string
}

func (m *MockExec) Run(_ context.Context, name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := append([]string{name}, args...)
	m.RunCalls = append(m.RunCalls, call)
	return m.RunErrors[strings.Join(call, " ")]
}

func (m *MockExec) Output(_ context.Context, name string, args ...string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := append([]string{name}, args...)
	m.OutputCalls = append(m.OutputCalls, call)
	key := strings.Join(call, " ")
	stdout, ok := m.Stdout[key]
	if err, failed := m.OutputErrors[key]; failed {
		return stdout, m.Stderr[key], err
	}
	if !ok {
		return "", "", errors.New("mock output not configured: " + key)
	}
	return stdout, m.Stderr[key], nil
}
