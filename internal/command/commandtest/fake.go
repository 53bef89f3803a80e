// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rohankatakam/classharvest/internal/command"
)

// Handler reacts to one invocation; it may touch the filesystem to simulate a tool
type Handler func(spec command.Spec) ([]byte, error)

// Fake records every invocation and dispatches to handlers keyed by command prefix
type Fake struct {
	mu       sync.Mutex
	Calls    []command.Spec
	handlers []route
}

type route struct {
	prefix  string
	handler Handler
}

// New creates an empty fake; unmatched commands succeed with no output
func New() *Fake {
	return &Fake{}
}

// On registers a handler for commands whose "name arg0 arg1..." line starts with prefix
func (f *Fake) On(prefix string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, route{prefix: prefix, handler: h})
	return f
}

// Fail makes commands starting with prefix fail
func (f *Fake) Fail(prefix string) *Fake {
	return f.On(prefix, func(spec command.Spec) ([]byte, error) {
		return []byte("simulated failure"), &command.ExitError{
			Command: spec.String(),
			Dir:     spec.Dir,
			Err:     errors.New("exit status 1"),
			Tail:    "simulated failure",
		}
	})
}

// Output makes commands starting with prefix print out
func (f *Fake) Output(prefix, out string) *Fake {
	return f.On(prefix, func(command.Spec) ([]byte, error) {
		return []byte(out), nil
	})
}

// Run implements command.Runner
func (f *Fake) Run(_ context.Context, spec command.Spec) ([]byte, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, spec)
	handlers := append([]route(nil), f.handlers...)
	f.mu.Unlock()

	line := Line(spec)
	// later registrations win so tests can override defaults
	for i := len(handlers) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, handlers[i].prefix) {
			return handlers[i].handler(spec)
		}
	}
	return nil, nil
}

// Lines returns every recorded invocation as "name arg..." strings
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = Line(c)
	}
	return lines
}

// Count returns how many invocations start with prefix
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// Line joins name and args with single spaces, unquoted
func Line(spec command.Spec) string {
	return strings.Join(append([]string{spec.Name}, spec.Args...), " ")
}
