// Package journal records module load attempts in SQLite, so a host can
// tell which files were tried, what they registered and why they failed.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
)

// Entry is one load attempt
type Entry struct {
	ID      int64     `json:"id"`
	Time    time.Time `json:"time"`
	Path    string    `json:"path"`
	Module  guid.GUID `json:"module"`
	Name    string    `json:"name,omitempty"`
	Version string    `json:"version,omitempty"`
	// Kind is empty for successful loads
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the attempt registered a module
func (e Entry) OK() bool {
	return e.Kind == ""
}

// Journal is a SQLite-backed list of load attempts
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one connection, so an in-memory journal is a single database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, stmt := range allStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an entry and returns its id. A zero Time is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Time.IsZero() {
		e.Time = j.now()
	}
	res, err := j.db.ExecContext(ctx, insertLoad,
		e.Time.UTC().Format(time.RFC3339Nano), e.Path, e.Module.String(), e.Name, e.Version, e.Kind, e.Message)
	if err != nil {
		return 0, fmt.Errorf("recording load of %s: %w", e.Path, err)
	}
	return res.LastInsertId()
}

// Observe records the outcome of sys.LoadModuleFile(path)
func (j *Journal) Observe(ctx context.Context, sys *bus.System, path string, loadErr error) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	e := Entry{Path: path}
	if loadErr != nil {
		e.Kind = diag.KindOf(loadErr).String()
		e.Message = loadErr.Error()
	} else {
		for _, info := range sys.ListModules() {
			if info.Path == path {
				e.Module, e.Name, e.Version = info.GUID, info.Name, info.Version
				break
			}
		}
	}
	_, err := j.Record(ctx, e)
	return err
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.query(ctx, selectRecent, limit)
}

// Failures returns up to limit failed attempts, newest first
func (j *Journal) Failures(ctx context.Context, limit int) ([]Entry, error) {
	return j.query(ctx, selectFailures, limit)
}

// Last returns the newest entry for path
func (j *Journal) Last(ctx context.Context, path string) (Entry, bool, error) {
	row := j.db.QueryRowContext(ctx, selectLast, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (j *Journal) query(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var at, module string
	if err := s.Scan(&e.ID, &at, &e.Path, &module, &e.Name, &e.Version, &e.Kind, &e.Message); err != nil {
		return Entry{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing time of entry %d: %w", e.ID, err)
	}
	e.Time = t

	if e.Module, err = guid.Parse(module); err != nil {
		return Entry{}, fmt.Errorf("parsing module of entry %d: %w", e.ID, err)
	}
	return e, nil
}
