// Package enginetest provides a scripted engine.Runner for tests.
package enginetest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"grabarr/internal/domain/errs"
	"grabarr/internal/engine"
)

// FakeRunner records calls and answers them from the configured funcs.
type FakeRunner struct {
	mu    sync.Mutex
	calls []engine.Cmd

	// OutputFunc answers Output calls. Nil returns empty output.
	OutputFunc func(ctx context.Context, c engine.Cmd) ([]byte, error)
	// StreamFunc answers Stream calls. Nil returns nil.
	StreamFunc func(ctx context.Context, c engine.Cmd, onLine func(string)) error
	// Missing lists executables LookPath should fail for.
	Missing []string
}

// Output implements engine.Runner.
func (f *FakeRunner) Output(ctx context.Context, c engine.Cmd) ([]byte, error) {
	f.record(c)
	if f.OutputFunc == nil {
		return nil, nil
	}
	return f.OutputFunc(ctx, c)
}

// Stream implements engine.Runner.
func (f *FakeRunner) Stream(ctx context.Context, c engine.Cmd, onLine func(string)) error {
	f.record(c)
	if f.StreamFunc == nil {
		return nil
	}
	return f.StreamFunc(ctx, c, onLine)
}

// LookPath implements engine.Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	if slices.Contains(f.Missing, name) {
		return "", fmt.Errorf("%w: %q not found", errs.ErrEnvironment, name)
	}
	return "/usr/bin/" + name, nil
}

func (f *FakeRunner) record(c engine.Cmd) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of the recorded calls.
func (f *FakeRunner) Calls() []engine.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CountArg returns how many recorded calls contain arg.
func (f *FakeRunner) CountArg(arg string) int {
	n := 0
	for _, c := range f.Calls() {
		if slices.Contains(c.Args, arg) {
			n++
		}
	}
	return n
}

// HasArg reports whether c contains arg.
func HasArg(c engine.Cmd, arg string) bool {
	return slices.Contains(c.Args, arg)
}

// LastArg returns the final argument of c.
func LastArg(c engine.Cmd) string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// ArgAfter returns the argument following flag, if present.
func ArgAfter(c engine.Cmd, flag string) string {
	for i, a := range c.Args {
		if a == flag && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}

// HasPrefixArg reports whether any argument starts with prefix.
func HasPrefixArg(c engine.Cmd, prefix string) bool {
	for _, a := range c.Args {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}
