package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
)

// ProjectRepository implements models.Repository[*models.RecentProject] for the recent-projects list.
//
// Rows are keyed by .lap path; opening the same project again refreshes its row.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository with the given database connection
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const recentColumns = `id, lap_path, name, designer, bga_count, opened_at, created_at, updated_at`

// Create inserts a new recent project with a generated ID
func (r *ProjectRepository) Create(project *models.RecentProject) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO recent_projects (` + recentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		id,
		project.LapPath(),
		project.Name(),
		project.Designer(),
		project.BGACount(),
		project.OpenedAt(),
		project.CreatedAt(),
		project.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recent project: %w", err)
	}

	project.SetID(id)
	return nil
}

// Touch records project as opened now, inserting it or refreshing the row for its .lap path.
//
// A previously deleted row for the same path is restored.
func (r *ProjectRepository) Touch(project *models.RecentProject) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO recent_projects (` + recentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(lap_path) DO UPDATE SET
			name = excluded.name,
			designer = excluded.designer,
			bga_count = excluded.bga_count,
			opened_at = excluded.opened_at,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`
	_, err := r.db.Exec(query,
		shared.GenerateID(),
		project.LapPath(),
		project.Name(),
		project.Designer(),
		project.BGACount(),
		project.OpenedAt(),
		project.CreatedAt(),
		project.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recent project: %w", err)
	}

	var id string
	if err := r.db.QueryRow(`SELECT id FROM recent_projects WHERE lap_path = ?`, project.LapPath()).Scan(&id); err != nil {
		return fmt.Errorf("failed to read recent project id: %w", err)
	}
	project.SetID(id)
	return nil
}

// Get retrieves a recent project by ID, excluding soft-deleted rows
func (r *ProjectRepository) Get(id string) (*models.RecentProject, error) {
	query := `SELECT ` + recentColumns + ` FROM recent_projects WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByPath retrieves a recent project by its .lap path
func (r *ProjectRepository) GetByPath(lapPath string) (*models.RecentProject, error) {
	query := `SELECT ` + recentColumns + ` FROM recent_projects WHERE lap_path = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, lapPath))
}

// Update modifies an existing recent project
func (r *ProjectRepository) Update(project *models.RecentProject) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE recent_projects
		SET name = ?, designer = ?, bga_count = ?, opened_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		project.Name(),
		project.Designer(),
		project.BGACount(),
		project.OpenedAt(),
		now,
		project.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update recent project: %w", err)
	}

	if err := expectRow(result, "recent project", project.ID()); err != nil {
		return err
	}
	project.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a recent project by ID
func (r *ProjectRepository) Delete(id string) error {
	query := `
		UPDATE recent_projects
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete recent project: %w", err)
	}
	return expectRow(result, "recent project", id)
}

// List retrieves recent projects, most recently opened first.
//
// Supported criteria: "name" (substring match) and "limit" (int).
func (r *ProjectRepository) List(criteria map[string]any) ([]*models.RecentProject, error) {
	query := `SELECT ` + recentColumns + ` FROM recent_projects WHERE deleted_at IS NULL`
	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+name+"%")
	}

	query += " ORDER BY opened_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.RecentProject
	for rows.Next() {
		project, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) scan(row scanner) (*models.RecentProject, error) {
	var (
		id        string
		lapPath   string
		name      string
		designer  string
		bgaCount  int
		openedAt  time.Time
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&id, &lapPath, &name, &designer, &bgaCount, &openedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: recent project", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent project: %w", err)
	}

	return models.RestoreRecentProject(id, lapPath, name, designer, bgaCount, openedAt, createdAt, updatedAt), nil
}
