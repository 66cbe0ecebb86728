// Package store persists cooked scenario sets in SQLite so a valuation run can
// reload the exact curves a calibration produced.
package store

import (
	"context"
	"database/sql"
	"encoding"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/scenario"
	"github.com/meenmo/mcurve/utils"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run describes one stored cook.
type Run struct {
	ID        string
	Label     market.Label
	AsOf      time.Time
	Mask      scenario.Bump
	Bump      float64
	CreatedAt time.Time
	Variants  int
}

type SQLite struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies Schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveSet writes set as a new run and returns its ID. run.ID and
// run.CreatedAt are filled in when empty.
func (s *SQLite) SaveSet(ctx context.Context, run Run, set scenario.Set) (string, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.ID == "" {
		run.ID = NewRunID(run.CreatedAt)
	}
	entries := set.Entries()
	if len(entries) == 0 {
		return "", fmt.Errorf("run %s has no curves", run.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, label, as_of, mask, bump, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label.String(), run.AsOf.Format(utils.DateLayout), run.Mask.String(), run.Bump, run.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	for _, e := range entries {
		m, ok := e.Curve.(encoding.BinaryMarshaler)
		if !ok {
			return "", fmt.Errorf("variant %s: %T cannot be stored", e.Key, e.Curve)
		}
		body, err := m.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("variant %s: %w", e.Key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO curves (run_id, variant, label, body)
			VALUES (?, ?, ?, ?)`,
			run.ID, e.Key, e.Curve.Label().String(), body,
		); err != nil {
			return "", fmt.Errorf("insert variant %s: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// LoadSet reads back a run and its curves.
func (s *SQLite) LoadSet(ctx context.Context, runID string) (Run, scenario.Set, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return Run{}, scenario.Set{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT variant, label, body
		FROM curves
		WHERE run_id = ?
		ORDER BY variant ASC`, runID)
	if err != nil {
		return Run{}, scenario.Set{}, err
	}
	defer rows.Close()

	var entries []scenario.Entry
	for rows.Next() {
		var (
			key, labelText string
			body           []byte
		)
		if err := rows.Scan(&key, &labelText, &body); err != nil {
			return Run{}, scenario.Set{}, err
		}
		label, err := market.ParseLabel(labelText)
		if err != nil {
			return Run{}, scenario.Set{}, fmt.Errorf("variant %s: %w", key, err)
		}
		c, err := curve.Decode(label.Kind, body)
		if err != nil {
			return Run{}, scenario.Set{}, fmt.Errorf("variant %s: %w", key, err)
		}
		entries = append(entries, scenario.Entry{Key: key, Curve: c})
	}
	if err := rows.Err(); err != nil {
		return Run{}, scenario.Set{}, err
	}

	set, err := scenario.SetFromEntries(entries)
	if err != nil {
		return Run{}, scenario.Set{}, err
	}
	return run, set, nil
}

const runColumns = `
	SELECT r.run_id, r.label, r.as_of, r.mask, r.bump, r.created_at, COUNT(c.variant)
	FROM runs r LEFT JOIN curves c ON c.run_id = r.run_id`

// GetRun returns a run's metadata.
func (s *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+`
		WHERE r.run_id = ?
		GROUP BY r.run_id`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
		}
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns runs oldest first. A zero label lists every run.
func (s *SQLite) ListRuns(ctx context.Context, label market.Label) ([]Run, error) {
	query := runColumns
	var args []any
	if !label.IsZero() {
		query += ` WHERE r.label = ?`
		args = append(args, label.String())
	}
	rows, err := s.db.QueryContext(ctx, query+`
		GROUP BY r.run_id
		ORDER BY r.run_id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                            Run
		labelText, asOf, mask, created string
	)
	if err := row.Scan(&run.ID, &labelText, &asOf, &mask, &run.Bump, &created, &run.Variants); err != nil {
		return Run{}, err
	}
	var err error
	if run.Label, err = market.ParseLabel(labelText); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.AsOf, err = utils.ParseDate(asOf); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Mask, err = scenario.ParseBump(mask); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
