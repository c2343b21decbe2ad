// Package catalog records extraction runs and their flat parts in a SQLite
// database, so BOMs from many files can be listed and compared later.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/stepbom/pkg/bom"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is not in the catalog.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source_file TEXT NOT NULL,
	extracted_at TEXT NOT NULL,
	kernel TEXT NOT NULL,
	total_parts INTEGER NOT NULL,
	hierarchy_depth INTEGER NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_file);

CREATE TABLE IF NOT EXISTS parts (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	part_id TEXT NOT NULL,
	name TEXT NOT NULL,
	node_type TEXT NOT NULL,
	volume REAL,
	surface_area REAL,
	hex TEXT,
	record JSON NOT NULL,
	PRIMARY KEY (run_id, part_id)
);
`

// Run is one extraction of one source file.
type Run struct {
	ID             string    `json:"id"`
	SourceFile     string    `json:"source_file"`
	ExtractedAt    time.Time `json:"extracted_at"`
	Kernel         string    `json:"kernel"`
	TotalParts     int       `json:"total_parts"`
	HierarchyDepth int       `json:"hierarchy_depth"`
	Error          string    `json:"error,omitempty"`
}

// Part is a catalogued flat part. Record holds the full PartRecord JSON.
type Part struct {
	RunID       string          `json:"run_id"`
	PartID      string          `json:"part_id"`
	Name        string          `json:"name"`
	NodeType    string          `json:"node_type"`
	Volume      *float64        `json:"volume,omitempty"`
	SurfaceArea *float64        `json:"surface_area,omitempty"`
	Hex         string          `json:"hex,omitempty"`
	Record      json.RawMessage `json:"record"`
}

// Store is a SQLite-backed catalog.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; the CLI never shares a store across goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and its parts in one transaction. Recording a run id
// again replaces the earlier entry.
func (s *Store) Record(ctx context.Context, run Run, parts []bom.PartRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{`DELETE FROM parts WHERE run_id = ?`, `DELETE FROM runs WHERE id = ?`} {
		if _, err = tx.ExecContext(ctx, q, run.ID); err != nil {
			return fmt.Errorf("replace run %s: %w", run.ID, err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source_file, extracted_at, kernel, total_parts, hierarchy_depth, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceFile, run.ExtractedAt.UTC().Format(timeLayout),
		run.Kernel, run.TotalParts, run.HierarchyDepth, nullString(run.Error))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO parts (run_id, part_id, name, node_type, volume, surface_area, hex, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range parts {
		record, merr := json.Marshal(p)
		if merr != nil {
			err = fmt.Errorf("marshal part %s: %w", p.PartID, merr)
			return err
		}
		var volume, area sql.NullFloat64
		if gp := p.ShapeAnalysis.GeometryProperties; gp != nil {
			if gp.Volume != nil {
				volume = sql.NullFloat64{Float64: *gp.Volume, Valid: true}
			}
			if gp.SurfaceArea != nil {
				area = sql.NullFloat64{Float64: *gp.SurfaceArea, Valid: true}
			}
		}
		_, err = stmt.ExecContext(ctx, run.ID, p.PartID, p.Name, p.NodeType,
			volume, area, nullString(p.ColorData.Hex), string(record))
		if err != nil {
			return fmt.Errorf("insert part %s: %w", p.PartID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Runs lists every run, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, extracted_at, kernel, total_parts, hierarchy_depth, error
		FROM runs ORDER BY extracted_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns one run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_file, extracted_at, kernel, total_parts, hierarchy_depth, error
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// Parts lists the parts of a run in part id order. Ids compare by their
// numeric suffix, so part_10000 follows part_9999.
func (s *Store) Parts(ctx context.Context, runID string) ([]Part, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, part_id, name, node_type, volume, surface_area, hex, record
		FROM parts WHERE run_id = ?
		ORDER BY CAST(substr(part_id, instr(part_id, '_') + 1) AS INTEGER), part_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var (
			p            Part
			volume, area sql.NullFloat64
			hex          sql.NullString
			record       string
		)
		if err := rows.Scan(&p.RunID, &p.PartID, &p.Name, &p.NodeType, &volume, &area, &hex, &record); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		if volume.Valid {
			p.Volume = &volume.Float64
		}
		if area.Valid {
			p.SurfaceArea = &area.Float64
		}
		p.Hex = hex.String
		p.Record = json.RawMessage(record)
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r       Run
		at      string
		errText sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.SourceFile, &at, &r.Kernel, &r.TotalParts, &r.HierarchyDepth, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, at)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: extracted_at: %w", r.ID, err)
	}
	r.ExtractedAt = t
	r.Error = errText.String
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
