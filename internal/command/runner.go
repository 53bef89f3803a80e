// Package command runs external tools (git, gradle, mvn, javac) as subprocesses.
package command

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"bitbucket.org/creachadair/shell"
	"github.com/sirupsen/logrus"
)

const (
	// tailLines is how much output a failure error carries
	tailLines = 20
	// waitDelay bounds waiting on pipes held open by daemons a build leaves behind
	waitDelay = 10 * time.Second
)

// Spec describes one subprocess invocation
type Spec struct {
	Dir  string
	Name string
	Args []string
	Env  []string // appended to os.Environ()
}

// String renders the command line with shell quoting
func (s Spec) String() string {
	return shell.Join(append([]string{s.Name}, s.Args...))
}

// Runner executes subprocesses; tests substitute a fake
type Runner interface {
	// Run executes the command and returns its combined output
	Run(ctx context.Context, spec Spec) ([]byte, error)
}

// ExitError is returned when a command ran but failed
type ExitError struct {
	Command string
	Dir     string
	Err     error
	Tail    string
}

func (e *ExitError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %v, output: %s", e.Command, e.Err, e.Tail)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec and streams their output to the logger
type ExecRunner struct {
	logger *logrus.Logger
}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner(logger *logrus.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes spec, logging each output line at debug level
func (r *ExecRunner) Run(ctx context.Context, spec Spec) ([]byte, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	entry := r.logger.WithFields(logrus.Fields{
		"cmd": spec.String(),
		"dir": spec.Dir,
	})
	entry.Debug("Running command")

	var out lockedBuffer
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			out.WriteLine(line)
			entry.Debug(line)
		}
		// drain anything left after an over-long line
		io.Copy(io.Discard, pr)
	}()

	err := cmd.Run()
	pw.Close()
	<-done

	output := out.Bytes()
	if err != nil {
		return output, &ExitError{
			Command: spec.String(),
			Dir:     spec.Dir,
			Err:     err,
			Tail:    Tail(output, tailLines),
		}
	}
	return output, nil
}

// Tail returns the last n lines of output
func Tail(output []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(line)
	b.buf.WriteByte('\n')
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// LookPath reports whether a binary can be found on PATH
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
