package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/classharvest/internal/logging"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *ManifestStore {
	t.Helper()
	store, err := Open("sqlite3", filepath.Join(t.TempDir(), "db", "manifest.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func artifact(run, stage, commit, class string) *models.Artifact {
	return &models.Artifact{
		RunID:      run,
		Project:    "p",
		Stage:      stage,
		Commit:     commit,
		SourceFile: "Foo.java",
		ClassPath:  class,
		TargetPath: "/data/" + stage + "/p/" + commit + "/compiled/" + class,
		Size:       128,
		SHA256:     "deadbeef",
	}
}

func TestSaveAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []*models.Artifact{
		artifact("r1", "after", "abc", "Foo.class"),
		artifact("r1", "after", "abc", "Foo$1.class"),
		artifact("r1", "before", "abc", "Foo.class"),
	}))
	require.NoError(t, store.Save(ctx, []*models.Artifact{
		artifact("r2", "after", "def", "Foo.class"),
	}))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.NotZero(t, all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero())
	assert.Equal(t, "abc", all[0].Commit)

	after, err := store.List(ctx, Filter{RunID: "r1", Stage: "after"})
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "Foo.class", after[0].ClassPath)
	assert.Equal(t, "Foo$1.class", after[1].ClassPath)

	byCommit, err := store.List(ctx, Filter{Commit: "def"})
	require.NoError(t, err)
	assert.Len(t, byCommit, 1)

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest)
}

func TestLatestRunEmpty(t *testing.T) {
	store := newStore(t)
	_, err := store.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveEmptyIsNoop(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Save(context.Background(), nil))

	all, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x", logging.Discard())
	assert.ErrorContains(t, err, "unsupported manifest driver")
}
