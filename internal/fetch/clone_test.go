package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/command/commandtest"
	"github.com/rohankatakam/classharvest/internal/logging"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClone simulates git clone by creating <dest>/.git
func fakeClone(spec command.Spec) ([]byte, error) {
	dest := spec.Args[len(spec.Args)-1]
	return nil, os.MkdirAll(filepath.Join(dest, ".git"), 0755)
}

func TestEnsureIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "projects")
	fake := commandtest.New().On("git clone", fakeClone)
	f := NewFetcher(root, fake, logging.Discard(), Options{})
	project := models.Project{Name: "signal-server", URL: "https://github.com/signalapp/Signal-Server.git"}

	path, cloned, err := f.Ensure(context.Background(), project)
	require.NoError(t, err)
	assert.True(t, cloned)
	assert.Equal(t, filepath.Join(root, "signal-server"), path)
	assert.Equal(t, []string{"git clone https://github.com/signalapp/Signal-Server.git " + path}, fake.Lines())
	assert.Contains(t, fake.Calls[0].Env, "GIT_TERMINAL_PROMPT=0")

	// Second run: no clone call at all
	path2, cloned, err := f.Ensure(context.Background(), project)
	require.NoError(t, err)
	assert.False(t, cloned)
	assert.Equal(t, path, path2)
	assert.Equal(t, 1, fake.Count("git clone"))
}

func TestEnsureShallow(t *testing.T) {
	fake := commandtest.New().On("git clone", fakeClone)
	f := NewFetcher(t.TempDir(), fake, logging.Discard(), Options{Shallow: true, GitBinary: "/usr/bin/git"})

	_, _, err := f.Ensure(context.Background(), models.Project{Name: "p", URL: "u"})
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "/usr/bin/git", fake.Calls[0].Name)
	assert.Equal(t, []string{"clone", "--depth", "1", "u"}, fake.Calls[0].Args[:4])
}

func TestEnsureRejectsNonRepoDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "p", "src"), 0755))
	fake := commandtest.New()
	f := NewFetcher(root, fake, logging.Discard(), Options{})

	_, cloned, err := f.Ensure(context.Background(), models.Project{Name: "p", URL: "u"})
	require.Error(t, err)
	assert.False(t, cloned)
	assert.Empty(t, fake.Calls)

	// the directory is left alone
	_, statErr := os.Stat(filepath.Join(root, "p", "src"))
	assert.NoError(t, statErr)
}

func TestEnsureAllContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	fake := commandtest.New().
		On("git clone", fakeClone).
		Fail("git clone https://broken")
	f := NewFetcher(root, fake, logging.Discard(), Options{})

	failures := f.EnsureAll(context.Background(), []models.Project{
		{Name: "broken", URL: "https://broken/repo.git"},
		{Name: "ok", URL: "https://ok/repo.git"},
	})

	require.Len(t, failures, 1)
	assert.Contains(t, failures["broken"].Error(), "git clone https://broken/repo.git failed")
	assert.DirExists(t, filepath.Join(root, "ok", ".git"))
	assert.Equal(t, 2, fake.Count("git clone"))
}

func TestEnsureRemovesPartialClone(t *testing.T) {
	root := t.TempDir()
	fake := commandtest.New().On("git clone", func(spec command.Spec) ([]byte, error) {
		dest := spec.Args[len(spec.Args)-1]
		require.NoError(t, os.MkdirAll(filepath.Join(dest, ".git"), 0755))
		return nil, &command.ExitError{Command: spec.String(), Err: os.ErrDeadlineExceeded}
	})
	f := NewFetcher(root, fake, logging.Discard(), Options{})

	_, cloned, err := f.Ensure(context.Background(), models.Project{Name: "p", URL: "u"})
	require.Error(t, err)
	assert.False(t, cloned)
	assert.NoDirExists(t, filepath.Join(root, "p"))
}
