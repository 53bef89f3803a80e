package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohankatakam/classharvest/internal/command"
	"github.com/rohankatakam/classharvest/internal/command/commandtest"
	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/logging"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository with two commits and returns their SHAs
func initRepo(t *testing.T) (dir, first, second string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir = t.TempDir()
	run := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}

	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.java"), []byte("class A {}\n"), 0644))
	run("add", "A.java")
	run("commit", "-m", "Initial commit")
	first = run("rev-parse", "HEAD")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.java"), []byte("class A { int x; }\n"), 0644))
	run("commit", "-am", "Second commit")
	second = run("rev-parse", "HEAD")

	return dir, first, second
}

func TestResolveTarget(t *testing.T) {
	dir, first, second := initRepo(t)
	repo := NewRepo(dir, command.NewExecRunner(logging.Discard()), "")
	ctx := context.Background()

	t.Run("before resolves to parent", func(t *testing.T) {
		got, err := repo.ResolveTarget(ctx, second, models.StageBefore)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	})

	t.Run("after is the commit itself", func(t *testing.T) {
		got, err := repo.ResolveTarget(ctx, second, models.StageAfter)
		require.NoError(t, err)
		assert.Equal(t, second, got)
	})

	t.Run("root commit has no parent", func(t *testing.T) {
		_, err := repo.ResolveTarget(ctx, first, models.StageBefore)
		require.Error(t, err)
		assert.True(t, errors.IsSkip(err))
		assert.Contains(t, err.Error(), "likely the first commit")
	})

	t.Run("unknown commit", func(t *testing.T) {
		_, err := repo.ResolveTarget(ctx, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", models.StageBefore)
		assert.True(t, errors.IsSkip(err))
	})
}

func TestPrepareStashesAndChecksOut(t *testing.T) {
	dir, first, second := initRepo(t)
	repo := NewRepo(dir, command.NewExecRunner(logging.Discard()), "git")
	ctx := context.Background()

	// A dirty working copy must not block the checkout
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.java"), []byte("class A { dirty }\n"), 0644))

	require.NoError(t, repo.Prepare(ctx, first))
	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, head)

	content, err := os.ReadFile(filepath.Join(dir, "A.java"))
	require.NoError(t, err)
	assert.Equal(t, "class A {}\n", string(content))

	require.NoError(t, repo.Prepare(ctx, second))
	head, err = repo.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, head)

	err = repo.Prepare(ctx, "no-such-ref")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeExternal, errors.GetType(err))
}

func TestPrepareCommandSequence(t *testing.T) {
	fake := commandtest.New()
	repo := NewRepo("/work/p", fake, "git")

	require.NoError(t, repo.Prepare(context.Background(), "abc123"))
	assert.Equal(t, []string{"git stash", "git checkout abc123"}, fake.Lines())
	for _, call := range fake.Calls {
		assert.Equal(t, "/work/p", call.Dir)
		assert.Contains(t, call.Env, "GIT_TERMINAL_PROMPT=0")
	}
}

func TestPrepareStopsWhenStashFails(t *testing.T) {
	fake := commandtest.New().Fail("git stash")
	repo := NewRepo("/work/p", fake, "git")

	err := repo.Prepare(context.Background(), "abc123")
	require.Error(t, err)
	assert.Equal(t, 0, fake.Count("git checkout"))
}

func TestResolveAfterNeedsNoGit(t *testing.T) {
	fake := commandtest.New()
	repo := NewRepo("/work/p", fake, "git")

	got, err := repo.ResolveTarget(context.Background(), "abc123", models.StageAfter)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)
	assert.Empty(t, fake.Calls)
}

func TestIsWorkingCopy(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsWorkingCopy(dir))

	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))
	assert.True(t, IsWorkingCopy(dir))
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url, owner, repo string
	}{
		{"https://github.com/signalapp/Signal-Server.git", "signalapp", "Signal-Server"},
		{"https://github.com/square/okhttp", "square", "okhttp"},
		{"git@github.com:JabRef/jabref.git", "JabRef", "jabref"},
		{"git://github.com/h2database/h2database.git", "h2database", "h2database"},
	}
	for _, tt := range tests {
		owner, repo, err := ParseRepoURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.owner, owner)
		assert.Equal(t, tt.repo, repo)
	}

	_, _, err := ParseRepoURL("not a url")
	assert.Error(t, err)
}
