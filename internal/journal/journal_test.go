package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func record(t *testing.T, j *Journal, run, key string, states ...models.State) {
	t.Helper()
	for _, s := range states {
		tr := models.Transition{RunID: run, Key: key, State: s}
		if s == models.StateSkipped {
			tr.Reason = "no compiled output"
		}
		if s == models.StateFailed {
			tr.Reason = "build failed"
		}
		require.NoError(t, j.Record(tr))
	}
}

func TestSummaryCountsFinalStates(t *testing.T) {
	j := openTemp(t)
	require.NoError(t, j.Begin("run-1", time.Now()))

	record(t, j, "run-1", "after/p/a", models.StatePending, models.StateResolved, models.StateCheckedOut, models.StateBuilt, models.StateMatched)
	record(t, j, "run-1", "after/p/b", models.StatePending, models.StateResolved, models.StateCheckedOut, models.StateFailed)
	record(t, j, "run-1", "before/p/c", models.StatePending, models.StateSkipped)
	record(t, j, "run-1", "before/p/d", models.StatePending, models.StateSkipped)

	s, err := j.Summary("run-1")
	require.NoError(t, err)

	assert.Equal(t, 4, s.Total())
	assert.Equal(t, 1, s.Count(models.StateMatched))
	assert.Equal(t, 1, s.Count(models.StateFailed))
	assert.Equal(t, 2, s.Count(models.StateSkipped))
	assert.Zero(t, s.Count(models.StatePending))
	assert.Equal(t, map[string]int{
		"skipped: no compiled output": 2,
		"failed: build failed":        1,
	}, s.Reasons)
	assert.Equal(t, "run-1", s.Run.ID)
}

func TestHistoryKeepsOrder(t *testing.T) {
	j := openTemp(t)
	require.NoError(t, j.Begin("r", time.Now()))
	record(t, j, "r", "after/p/a", models.StatePending, models.StateResolved, models.StateCheckedOut)

	h, err := j.History("r")
	require.NoError(t, err)
	require.Len(t, h["after/p/a"], 3)
	assert.Equal(t, models.StateCheckedOut, h["after/p/a"][2].State)
	assert.False(t, h["after/p/a"][0].Timestamp.IsZero())
}

func TestLatestAndRuns(t *testing.T) {
	j := openTemp(t)

	_, err := j.Latest()
	assert.ErrorIs(t, err, ErrNoRuns)

	start := time.Now()
	require.NoError(t, j.Begin("first", start))
	require.NoError(t, j.Begin("second", start.Add(time.Minute)))
	require.NoError(t, j.Finish("second", start.Add(2*time.Minute)))

	latest, err := j.Latest()
	require.NoError(t, err)
	assert.Equal(t, "second", latest)

	runs, err := j.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].ID)
	assert.True(t, runs[0].FinishedAt.IsZero())
	assert.False(t, runs[1].FinishedAt.IsZero())
}

func TestUnknownRun(t *testing.T) {
	j := openTemp(t)

	err := j.Record(models.Transition{RunID: "missing", Key: "k", State: models.StatePending})
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = j.Summary("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Begin("r", time.Now()))
	record(t, j, "r", "after/p/a", models.StatePending, models.StateMatched)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	s, err := j.Summary("r")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(models.StateMatched))
}

func TestReadOnlyWhileRunIsWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Begin("r", time.Now()))
	record(t, w, "r", "after/p/a", models.StatePending, models.StateResolved)

	r, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer r.Close()

	latest, err := r.Latest()
	require.NoError(t, err)
	assert.Equal(t, "r", latest)
	s, err := r.Summary("r")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(models.StateResolved))

	// the writer keeps going after the reader looked
	record(t, w, "r", "after/p/a", models.StateMatched)
	s, err = r.Summary("r")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(models.StateMatched))

	assert.Error(t, r.Record(models.Transition{RunID: "r", Key: "k", State: models.StatePending}))
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "absent.db"))
	assert.ErrorIs(t, err, ErrNoRuns)
}
