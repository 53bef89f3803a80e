package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestCommitDirs(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root)

	touch(t, filepath.Join(root, "after", "p", "bbb", "B.java"))
	touch(t, filepath.Join(root, "after", "p", "aaa", "A.java"))
	touch(t, filepath.Join(root, "after", "p", "README"))

	dirs, err := layout.CommitDirs(models.StageAfter, "p")
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, models.CommitDir{
		Project: "p",
		Stage:   models.StageAfter,
		Commit:  "aaa",
		Path:    filepath.Join(root, "after", "p", "aaa"),
	}, dirs[0])
	assert.Equal(t, "bbb", dirs[1].Commit)
	assert.Equal(t, "after/p/aaa", dirs[0].Key())
}

func TestCommitDirsMissingStage(t *testing.T) {
	layout := NewLayout(t.TempDir())

	_, err := layout.CommitDirs(models.StageBefore, "p")
	require.Error(t, err)
	assert.True(t, errors.IsSkip(err))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestSourceFilesSkipsOutputFolder(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root)
	dir := models.CommitDir{Project: "p", Stage: models.StageAfter, Commit: "c", Path: filepath.Join(root, "after", "p", "c")}

	touch(t, filepath.Join(dir.Path, "Foo.java"))
	touch(t, filepath.Join(dir.Path, "com", "acme", "Bar.java"))
	touch(t, filepath.Join(dir.Path, "notes.txt"))
	touch(t, filepath.Join(dir.Path, "compiled", "Stale.java"))
	touch(t, filepath.Join(dir.Path, "compiled", "Foo.class"))

	files, err := layout.SourceFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "Foo.java", files[0].Rel)
	assert.Equal(t, "Foo", files[0].Stem)
	assert.False(t, files[0].HasPackage())

	assert.Equal(t, "com/acme/Bar.java", files[1].Rel)
	assert.Equal(t, "com/acme/Bar.class", files[1].ClassPath())
	assert.True(t, files[1].HasPackage())
}

func TestSourceFilesEmpty(t *testing.T) {
	dir := models.CommitDir{Path: t.TempDir()}
	files, err := NewLayout("").SourceFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}
