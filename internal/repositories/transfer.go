package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
)

// TransferRepository implements models.Repository[*models.TransferRecord] for the cloud transfer log.
type TransferRepository struct {
	db *sql.DB
}

// NewTransferRepository creates a new TransferRepository with the given database connection
func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

const transferColumns = `id, sequence, direction, kind, project_name, bytes, outcome, error, created_at, updated_at`

// Create inserts a new transfer record with generated ID and sequence
func (r *TransferRepository) Create(rec *models.TransferRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "transfers")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage any = rec.Error()
	if errorMessage == "" {
		errorMessage = nil
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		string(rec.Direction()),
		rec.Kind().String(),
		rec.ProjectName(),
		rec.Bytes(),
		string(rec.Outcome()),
		errorMessage,
		rec.CreatedAt(),
		rec.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	rec.SetID(id)
	rec.SetSequence(sequence)
	return nil
}

// Get retrieves a transfer record by ID, excluding soft-deleted rows
func (r *TransferRepository) Get(id string) (*models.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Update rewrites the outcome fields of an existing transfer record
func (r *TransferRepository) Update(rec *models.TransferRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var errorMessage any = rec.Error()
	if errorMessage == "" {
		errorMessage = nil
	}

	query := `
		UPDATE transfers
		SET bytes = ?, outcome = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, rec.Bytes(), string(rec.Outcome()), errorMessage, time.Now(), rec.ID())
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	return expectRow(result, "transfer", rec.ID())
}

// Delete soft-deletes a transfer record by ID
func (r *TransferRepository) Delete(id string) error {
	query := `
		UPDATE transfers
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}
	return expectRow(result, "transfer", id)
}

// List retrieves transfer records, newest first.
//
// Supported criteria: "project_name", "direction", "kind", "outcome" (strings) and "limit" (int).
func (r *TransferRepository) List(criteria map[string]any) ([]*models.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE deleted_at IS NULL`
	args := []any{}

	for _, column := range []string{"project_name", "direction", "kind", "outcome"} {
		if value, ok := criteria[column].(string); ok && value != "" {
			query += " AND " + column + " = ?"
			args = append(args, value)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var records []*models.TransferRecord
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

func (r *TransferRepository) scan(row scanner) (*models.TransferRecord, error) {
	var (
		id          string
		sequence    int
		direction   string
		kind        string
		projectName string
		size        int64
		outcome     string
		errMsg      sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &sequence, &direction, &kind, &projectName, &size, &outcome, &errMsg, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transfer", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	transferKind, err := models.ParseTransferKind(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	return models.RestoreTransferRecord(
		id, sequence, models.TransferDirection(direction), transferKind, projectName,
		size, models.TransferOutcome(outcome), errMsg.String, createdAt, updatedAt,
	), nil
}
