// Package storage records copied class files in a SQL manifest.
package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a query matches nothing
var ErrNotFound = stderrors.New("not found")

// Filter narrows List results; empty fields match everything
type Filter struct {
	RunID   string
	Project string
	Stage   string
	Commit  string
}

// ManifestStore persists artifact records in sqlite or postgres
type ManifestStore struct {
	db     *sqlx.DB
	driver string
	logger *logrus.Logger
}

// Open connects to the manifest database and creates the schema if needed.
// driver is "sqlite3" or "postgres"; for sqlite the DSN is a file path.
func Open(driver, dsn string, logger *logrus.Logger) (*ManifestStore, error) {
	switch driver {
	case "sqlite3", "":
		driver = "sqlite3"
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported manifest driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
		db.Exec("PRAGMA journal_mode = WAL")
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	store := &ManifestStore{db: db, driver: driver, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *ManifestStore) initSchema() error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "DATETIME"
	if s.driver == "postgres" {
		id = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS artifacts (
		id %s,
		run_id TEXT NOT NULL,
		project TEXT NOT NULL,
		stage TEXT NOT NULL,
		commit_ref TEXT NOT NULL,
		source_file TEXT NOT NULL,
		class_path TEXT NOT NULL,
		target_path TEXT NOT NULL,
		size BIGINT NOT NULL,
		sha256 TEXT NOT NULL,
		created_at %s NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_unit ON artifacts(project, stage, commit_ref);
	`, id, ts)

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *ManifestStore) Close() error {
	return s.db.Close()
}

// Save inserts artifact records in one transaction
func (s *ManifestStore) Save(ctx context.Context, artifacts []*models.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO artifacts
		(run_id, project, stage, commit_ref, source_file, class_path, target_path, size, sha256, created_at)
		VALUES (:run_id, :project, :stage, :commit_ref, :source_file, :class_path, :target_path, :size, :sha256, :created_at)
	`
	for _, a := range artifacts {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, a); err != nil {
			return fmt.Errorf("save artifact %s: %w", a.ClassPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.WithField("count", len(artifacts)).Debug("Saved artifacts to manifest")
	return nil
}

// List returns artifact records matching filter, ordered by insertion
func (s *ManifestStore) List(ctx context.Context, filter Filter) ([]*models.Artifact, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value != "" {
			where = append(where, column+" = ?")
			args = append(args, value)
		}
	}
	add("run_id", filter.RunID)
	add("project", filter.Project)
	add("stage", filter.Stage)
	add("commit_ref", filter.Commit)

	query := `SELECT id, run_id, project, stage, commit_ref, source_file, class_path, target_path, size, sha256, created_at FROM artifacts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	var artifacts []*models.Artifact
	if err := s.db.SelectContext(ctx, &artifacts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return artifacts, nil
}

// LatestRun returns the run id of the most recently saved artifact
func (s *ManifestStore) LatestRun(ctx context.Context) (string, error) {
	var runID string
	err := s.db.GetContext(ctx, &runID, `SELECT run_id FROM artifacts ORDER BY id DESC LIMIT 1`)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("latest run: %w", err)
	}
	return runID, nil
}
