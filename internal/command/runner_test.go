package command

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"bitbucket.org/creachadair/shell"
	"github.com/rohankatakam/classharvest/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecStringQuotes(t *testing.T) {
	spec := Spec{Name: "javac", Args: []string{"-d", "/tmp/out dir", "Foo.java"}}

	words, ok := shell.Split(spec.String())
	require.True(t, ok)
	assert.Equal(t, []string{"javac", "-d", "/tmp/out dir", "Foo.java"}, words)
}

func TestTail(t *testing.T) {
	out := []byte("one\ntwo\nthree\nfour\n")
	assert.Equal(t, "three\nfour", Tail(out, 2))
	assert.Equal(t, "one\ntwo\nthree\nfour", Tail(out, 10))
	assert.Equal(t, "", Tail(nil, 3))
}

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	runner := NewExecRunner(logging.Discard())
	ctx := context.Background()

	t.Run("captures output", func(t *testing.T) {
		out, err := runner.Run(ctx, Spec{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
		require.NoError(t, err)
		assert.Contains(t, string(out), "out\n")
		assert.Contains(t, string(out), "err\n")
	})

	t.Run("runs in dir with env", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runner.Run(ctx, Spec{
			Dir:  dir,
			Name: "sh",
			Args: []string{"-c", "pwd; echo $HARVEST_TEST_VALUE"},
			Env:  []string{"HARVEST_TEST_VALUE=42"},
		})
		require.NoError(t, err)
		assert.Contains(t, string(out), "42")
		assert.Contains(t, string(out), filepath.Base(dir))
	})

	t.Run("failure carries tail", func(t *testing.T) {
		_, err := runner.Run(ctx, Spec{Name: "sh", Args: []string{"-c", "echo broken build; exit 3"}})
		require.Error(t, err)

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, "broken build", exitErr.Tail)
		assert.Contains(t, err.Error(), "sh -c")
	})
}
