package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/weekcopy/internal/models"
	"github.com/desertthunder/weekcopy/internal/shared"
)

// ErrRunNotFound is returned when no live journal row matches.
var ErrRunNotFound = errors.New("copy run not found")

const runColumns = `
	id, sequence, triggered_by, week, target_name, source_playlist_id,
	dest_playlist_id, track_count, status, error, created_at, updated_at, deleted_at
`

// RunRepository implements models.Repository[*models.CopyRun] for the run journal.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run with a generated ID and the next journal sequence number
func (r *RunRepository) Create(run *models.CopyRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	var sequence int
	err := withTx(r.db, func(tx *sql.Tx) error {
		var err error
		if sequence, err = NextSequence(tx, "copy_runs"); err != nil {
			return err
		}

		query := `
			INSERT INTO copy_runs (
				id, sequence, triggered_by, week, target_name, source_playlist_id,
				dest_playlist_id, track_count, status, error, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.Exec(query,
			id,
			sequence,
			string(run.Trigger()),
			run.Week(),
			run.TargetName(),
			run.SourcePlaylistID(),
			run.DestPlaylistID(),
			run.TrackCount(),
			string(run.Status()),
			run.ErrorMessage(),
			run.CreatedAt(),
			run.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert copy run: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.CopyRun, error) {
	query := `SELECT` + runColumns + `FROM copy_runs WHERE id = ? AND deleted_at IS NULL`
	return scanRun(r.db.QueryRow(query, id))
}

// Latest returns the run with the highest sequence number
func (r *RunRepository) Latest() (*models.CopyRun, error) {
	query := `SELECT` + runColumns + `FROM copy_runs WHERE deleted_at IS NULL ORDER BY sequence DESC LIMIT 1`
	return scanRun(r.db.QueryRow(query))
}

// Update writes the mutable outcome fields of a run and bumps updated_at
func (r *RunRepository) Update(run *models.CopyRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE copy_runs
		SET dest_playlist_id = ?, track_count = ?, status = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		run.DestPlaylistID(),
		run.TrackCount(),
		string(run.Status()),
		run.ErrorMessage(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update copy run: %w", err)
	}
	if err := expectOneRow(result, run.ID()); err != nil {
		return err
	}

	run.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE copy_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete copy run: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves runs matching criteria, newest first.
//
// Recognised keys: "status" (string), "trigger" (string), "since" ([time.Time]) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.CopyRun, error) {
	query := `SELECT` + runColumns + `FROM copy_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if trigger, ok := criteria["trigger"].(string); ok && trigger != "" {
		query += " AND triggered_by = ?"
		args = append(args, trigger)
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query copy runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.CopyRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one row selected with runColumns into a [models.CopyRun]
func scanRun(row rowScanner) (*models.CopyRun, error) {
	var (
		id               string
		sequence         int
		trigger          string
		week             int
		targetName       string
		sourcePlaylistID string
		destPlaylistID   string
		trackCount       int
		status           string
		errorMessage     string
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &trigger, &week, &targetName, &sourcePlaylistID,
		&destPlaylistID, &trackCount, &status, &errorMessage, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan copy run: %w", err)
	}

	run := models.NewCopyRun(models.Trigger(trigger), week, targetName, sourcePlaylistID, createdAt)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetDestPlaylistID(destPlaylistID)
	run.SetTrackCount(trackCount)
	run.SetStatus(models.RunStatus(status))
	run.SetErrorMessage(errorMessage)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
