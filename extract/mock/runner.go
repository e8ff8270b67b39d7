package mock

import (
	"context"
	"errors"
	"os"
	"sync"
)

// Call records one invocation of MockRunner.Run.
type Call struct {
	Name string
	Args []string
}

// MockRunner is a test double for extract.CommandRunner.
type MockRunner struct {
	// RunFunc is called by Run if set.
	// If nil, the last argument is treated as a file and its contents returned.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// Missing lists executables LookPath should fail to find.
	Missing map[string]bool

	mu    sync.Mutex
	calls []Call
}

// NewMockRunner creates a runner that echoes file contents.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// LookPath implements extract.CommandRunner.
func (m *MockRunner) LookPath(name string) (string, error) {
	if m.Missing[name] {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

// Run implements extract.CommandRunner.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Name: name, Args: append([]string(nil), args...)})
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	if len(args) == 0 {
		return nil, nil
	}
	return os.ReadFile(args[len(args)-1])
}

// Calls returns a copy of the recorded invocations.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of times Run was called.
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
