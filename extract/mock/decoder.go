package mock

import (
	"context"
	"os"
	"sync/atomic"
)

// MockDecoder is a test double for extract.Decoder.
type MockDecoder struct {
	// DecodeFunc is called by Decode if set.
	// If nil, the file contents are returned verbatim.
	DecodeFunc func(ctx context.Context, path string) (string, error)

	// CheckFunc is called by Check if set.
	CheckFunc func(ctx context.Context) error

	callCount atomic.Int64
}

// NewMockDecoder creates a mock decoder that echoes file contents.
func NewMockDecoder() *MockDecoder {
	return &MockDecoder{}
}

// Decode implements extract.Decoder.
func (m *MockDecoder) Decode(ctx context.Context, path string) (string, error) {
	m.callCount.Add(1)

	if m.DecodeFunc != nil {
		return m.DecodeFunc(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Check implements extract.Checker.
func (m *MockDecoder) Check(ctx context.Context) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Decode was called.
func (m *MockDecoder) CallCount() int {
	return int(m.callCount.Load())
}
