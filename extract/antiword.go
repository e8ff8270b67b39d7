package extract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultAntiwordPath is the executable looked up on PATH.
	DefaultAntiwordPath = "antiword"

	// DefaultDecodeTimeout bounds a single antiword invocation.
	DefaultDecodeTimeout = 10 * time.Second
)

// AntiwordDecoder decodes legacy .doc files by running antiword in text mode.
type AntiwordDecoder struct {
	runner  CommandRunner
	command string
	timeout time.Duration
}

// AntiwordOption configures an AntiwordDecoder.
type AntiwordOption func(*AntiwordDecoder)

// WithCommand overrides the antiword executable.
func WithCommand(command string) AntiwordOption {
	return func(d *AntiwordDecoder) {
		if command != "" {
			d.command = command
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) AntiwordOption {
	return func(d *AntiwordDecoder) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewAntiwordDecoder creates a decoder that runs antiword through runner.
// A nil runner uses ExecRunner.
func NewAntiwordDecoder(runner CommandRunner, opts ...AntiwordOption) *AntiwordDecoder {
	if runner == nil {
		runner = ExecRunner{}
	}
	d := &AntiwordDecoder{
		runner:  runner,
		command: DefaultAntiwordPath,
		timeout: DefaultDecodeTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check verifies antiword can be found.
func (d *AntiwordDecoder) Check(ctx context.Context) error {
	if _, err := d.runner.LookPath(d.command); err != nil {
		return fmt.Errorf("%w: %s not found: %w", ErrDecoderUnavailable, d.command, err)
	}
	return nil
}

// Decode runs `antiword -t path` and returns its output.
func (d *AntiwordDecoder) Decode(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.runner.Run(ctx, d.command, "-t", path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrDecodeTimeout, d.timeout)
		}
		return "", err
	}
	return string(out), nil
}

// Timeout returns the per-call bound.
func (d *AntiwordDecoder) Timeout() time.Duration {
	return d.timeout
}
