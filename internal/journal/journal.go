// Package journal persists per-commit-directory state transitions of each run in a bbolt file.
package journal

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rohankatakam/classharvest/internal/models"
	bolt "go.etcd.io/bbolt"
)

const (
	runsBucket  = "runs"
	metaBucket  = "meta"
	unitsBucket = "units"
	infoKey     = "info"
	latestKey   = "latest"
)

// ErrNoRuns is returned when the journal holds no run
var ErrNoRuns = stderrors.New("no runs recorded")

// ErrRunNotFound is returned for an unknown run id
var ErrRunNotFound = stderrors.New("run not found")

// RunInfo describes one invocation of the harvester
type RunInfo struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Journal records state transitions keyed by run, then by <stage>/<project>/<commit>.
// The file lock is held only for the duration of each transaction, so status
// readers can inspect a journal while a run keeps writing to it.
type Journal struct {
	path     string
	readOnly bool
	timeout  time.Duration
}

// Open opens (creating if needed) the journal file
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	j := &Journal{path: path, timeout: 5 * time.Second}
	// fail early on an unusable file
	if err := j.update(func(*bolt.Tx) error { return nil }); err != nil {
		return nil, err
	}
	return j, nil
}

// OpenReadOnly opens an existing journal for queries; it never creates the file
func OpenReadOnly(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{path: path, readOnly: true, timeout: 5 * time.Second}, nil
}

// Close releases the journal; every transaction already closed its file handle
func (j *Journal) Close() error {
	return nil
}

func (j *Journal) open() (*bolt.DB, error) {
	db, err := bolt.Open(j.path, 0600, &bolt.Options{Timeout: j.timeout, ReadOnly: j.readOnly})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", j.path, err)
	}
	return db, nil
}

func (j *Journal) update(fn func(*bolt.Tx) error) error {
	if j.readOnly {
		return fmt.Errorf("journal %s is open read-only", j.path)
	}
	db, err := j.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

func (j *Journal) view(fn func(*bolt.Tx) error) error {
	db, err := j.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (j *Journal) Begin(runID string, startedAt time.Time) error {
	return j.update(func(tx *bolt.Tx) error {
		runs, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		if err != nil {
			return err
		}
		run, err := runs.CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}
		if _, err := run.CreateBucketIfNotExists([]byte(unitsBucket)); err != nil {
			return err
		}
		if err := putJSON(run, infoKey, RunInfo{ID: runID, StartedAt: startedAt}); err != nil {
			return err
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}
		return meta.Put([]byte(latestKey), []byte(runID))
	})
}

// Finish stamps the run's end time
func (j *Journal) Finish(runID string, finishedAt time.Time) error {
	return j.update(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		var info RunInfo
		if err := getJSON(run, infoKey, &info); err != nil {
			return err
		}
		info.FinishedAt = finishedAt
		return putJSON(run, infoKey, info)
	})
}

// Record appends a transition to its unit's history; the run must have been begun
func (j *Journal) Record(t models.Transition) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}

	return j.update(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, t.RunID)
		if err != nil {
			return err
		}
		units := run.Bucket([]byte(unitsBucket))

		var history []models.Transition
		if data := units.Get([]byte(t.Key)); data != nil {
			if err := json.Unmarshal(data, &history); err != nil {
				return fmt.Errorf("decode history of %s: %w", t.Key, err)
			}
		}
		history = append(history, t)
		return putJSON(units, t.Key, history)
	})
}

// Latest returns the id of the most recently begun run
func (j *Journal) Latest() (string, error) {
	var id string
	err := j.view(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta == nil {
			return ErrNoRuns
		}
		data := meta.Get([]byte(latestKey))
		if data == nil {
			return ErrNoRuns
		}
		id = string(data)
		return nil
	})
	return id, err
}

// Runs lists every run, oldest first
func (j *Journal) Runs() ([]RunInfo, error) {
	var runs []RunInfo
	err := j.view(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		if b == nil {
			return nil
		}
		return b.ForEachBucket(func(k []byte) error {
			var info RunInfo
			if err := getJSON(b.Bucket(k), infoKey, &info); err != nil {
				return err
			}
			runs = append(runs, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, k int) bool {
		return runs[i].StartedAt.Before(runs[k].StartedAt)
	})
	return runs, nil
}

// History returns every unit's transitions for a run
func (j *Journal) History(runID string) (map[string][]models.Transition, error) {
	history := make(map[string][]models.Transition)
	err := j.view(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		return run.Bucket([]byte(unitsBucket)).ForEach(func(k, v []byte) error {
			var ts []models.Transition
			if err := json.Unmarshal(v, &ts); err != nil {
				return fmt.Errorf("decode history of %s: %w", k, err)
			}
			history[string(k)] = ts
			return nil
		})
	})
	return history, err
}

// UnitStatus is the last known state of one unit
type UnitStatus struct {
	Key    string       `json:"key"`
	State  models.State `json:"state"`
	Target string       `json:"target,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Summary aggregates the final state of every unit in a run
type Summary struct {
	Run     RunInfo              `json:"run"`
	States  map[models.State]int `json:"states"`
	Reasons map[string]int       `json:"reasons,omitempty"` // "<state>: <reason>" for skipped and failed units
	Units   []UnitStatus         `json:"units"`
}

// Total returns the number of units in the run
func (s *Summary) Total() int {
	return len(s.Units)
}

// Count returns how many units ended in state
func (s *Summary) Count(state models.State) int {
	return s.States[state]
}

// Summary computes final-state counts for a run
func (j *Journal) Summary(runID string) (*Summary, error) {
	summary := &Summary{
		States:  make(map[models.State]int),
		Reasons: make(map[string]int),
	}

	err := j.view(func(tx *bolt.Tx) error {
		run, err := runBucket(tx, runID)
		if err != nil {
			return err
		}
		if err := getJSON(run, infoKey, &summary.Run); err != nil {
			return err
		}

		return run.Bucket([]byte(unitsBucket)).ForEach(func(k, v []byte) error {
			var ts []models.Transition
			if err := json.Unmarshal(v, &ts); err != nil {
				return fmt.Errorf("decode history of %s: %w", k, err)
			}
			if len(ts) == 0 {
				return nil
			}

			last := ts[len(ts)-1]
			summary.States[last.State]++
			if last.State == models.StateSkipped || last.State == models.StateFailed {
				summary.Reasons[fmt.Sprintf("%s: %s", last.State, last.Reason)]++
			}
			summary.Units = append(summary.Units, UnitStatus{
				Key:    string(k),
				State:  last.State,
				Target: last.Target,
				Reason: last.Reason,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func runBucket(tx *bolt.Tx, runID string) (*bolt.Bucket, error) {
	runs := tx.Bucket([]byte(runsBucket))
	if runs == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run := runs.Bucket([]byte(runID))
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

func putJSON(b *bolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getJSON(b *bolt.Bucket, key string, v interface{}) error {
	data := b.Get([]byte(key))
	if data == nil {
		return fmt.Errorf("missing %s", key)
	}
	return json.Unmarshal(data, v)
}
