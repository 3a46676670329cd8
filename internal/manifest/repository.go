package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for manifest persistence operations.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)

	AddEntity(ctx context.Context, entity *Entity) error
	AddEntities(ctx context.Context, entities []Entity) error
	ListEntities(ctx context.Context, runID string) ([]Entity, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a manifest repository. The runs and entities
// tables must already exist (see the migrations package).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun inserts a run. An empty ID is filled with a new UUID and a zero
// StartedAt with the current time.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	if run.Scenario == "" {
		return fmt.Errorf("%w: scenario is required", ErrInvalidRun)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	const query = `INSERT INTO runs (id, scenario, environment, seed, started_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Scenario, run.Environment, int64(run.Seed), formatTime(run.StartedAt)) //nolint:gosec // Seed round-trips through int64
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stamps the run's finished_at.
func (r *SQLiteRepository) FinishRun(ctx context.Context, runID string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE runs SET finished_at = ? WHERE id = ?",
		formatTime(time.Now().UTC()), runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // SQLite always reports rows affected
		return ErrRunNotFound
	}
	return nil
}

// GetRun returns a run by ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	const query = `SELECT id, scenario, environment, seed, started_at, finished_at
		FROM runs WHERE id = ?`
	return scanRun(r.db.QueryRowContext(ctx, query, runID))
}

// LatestRun returns the most recently started run.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (*Run, error) {
	const query = `SELECT id, scenario, environment, seed, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`
	return scanRun(r.db.QueryRowContext(ctx, query))
}

// AddEntity appends one entity to its run. A zero Seq is assigned the next
// position in the run.
func (r *SQLiteRepository) AddEntity(ctx context.Context, entity *Entity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := insertEntity(ctx, tx, entity); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entity %s: %w", entity.Name, err)
	}
	return nil
}

// AddEntities appends a batch of entities in one transaction. Either all
// are stored or none.
func (r *SQLiteRepository) AddEntities(ctx context.Context, entities []Entity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for i := range entities {
		if err := insertEntity(ctx, tx, &entities[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %d entities: %w", len(entities), err)
	}
	return nil
}

// ListEntities returns a run's entities in insertion order.
func (r *SQLiteRepository) ListEntities(ctx context.Context, runID string) ([]Entity, error) {
	const query = `SELECT run_id, seq, name, level, entity_type, label, parent, attributes, error
		FROM entities WHERE run_id = ? ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		var attrs string
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Name, &e.Level, &e.Type,
			&e.Label, &e.Parent, &attrs, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &e.Attributes); err != nil {
			return nil, fmt.Errorf("decoding attributes of %s: %w", e.Name, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}
	return out, nil
}

func insertEntity(ctx context.Context, tx *sql.Tx, e *Entity) error {
	if e.Seq == 0 {
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(seq), 0) + 1 FROM entities WHERE run_id = ?", e.RunID,
		).Scan(&e.Seq); err != nil {
			return fmt.Errorf("allocating sequence for %s: %w", e.Name, err)
		}
	}

	attrs := "{}"
	if e.Attributes != nil {
		b, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("encoding attributes of %s: %w", e.Name, err)
		}
		attrs = string(b)
	}

	const query = `INSERT INTO entities (run_id, seq, name, level, entity_type, label, parent, attributes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		e.RunID, e.Seq, e.Name, e.Level, e.Type, e.Label, e.Parent, attrs, e.Error); err != nil {
		return fmt.Errorf("inserting entity %s: %w", e.Name, err)
	}
	return nil
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var seed int64
	var startedAt string
	var finishedAt sql.NullString

	err := row.Scan(&run.ID, &run.Scenario, &run.Environment, &seed, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.Seed = uint64(seed) //nolint:gosec // Stored from a uint64
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
