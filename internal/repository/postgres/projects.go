package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

const projectColumns = `id, name, description, priority, start_date, due_date, completion_date, status, manager_id, team_id, created_at, updated_at`

// CreateProject inserts a project.
func (s *txStore) CreateProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.tx.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		string(project.Priority),
		domain.DateOf(project.StartDate),
		domain.DateOf(project.DueDate),
		timePtrToNil(project.CompletionDate),
		string(project.Status),
		project.ManagerID,
		nilIfEmpty(project.TeamID),
		project.CreatedAt,
		project.UpdatedAt,
	)
	return mapWriteError(err)
}

// UpdateProject persists every mutable project column.
func (s *txStore) UpdateProject(ctx context.Context, project *domain.Project) error {
	const query = `UPDATE projects
		SET name = $2,
			description = $3,
			priority = $4,
			start_date = $5,
			due_date = $6,
			completion_date = $7,
			status = $8,
			manager_id = $9,
			team_id = $10,
			updated_at = $11
		WHERE id = $1`
	return expectAffected(s.tx.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		string(project.Priority),
		domain.DateOf(project.StartDate),
		domain.DateOf(project.DueDate),
		timePtrToNil(project.CompletionDate),
		string(project.Status),
		project.ManagerID,
		nilIfEmpty(project.TeamID),
		project.UpdatedAt,
	))
}

// GetProjectByID fetches project details.
func (s *txStore) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	project, err := scanProject(s.tx.QueryRow(ctx, query, projectID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return project, nil
}

// ProjectNameExists reports whether another project uses name, ignoring case.
func (s *txStore) ProjectNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM projects WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := s.tx.QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountActiveProjectsByManager locks the manager and counts live projects.
func (s *txStore) CountActiveProjectsByManager(ctx context.Context, managerID string) (int, error) {
	if err := s.lockRow(ctx, "users", managerID); err != nil {
		return 0, err
	}
	const query = `SELECT COUNT(1) FROM projects WHERE manager_id = $1 AND status = ANY($2)`
	var count int
	if err := s.tx.QueryRow(ctx, query, managerID, activeStatusStrings()).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountActiveProjectsByTeam locks the team and counts live projects.
func (s *txStore) CountActiveProjectsByTeam(ctx context.Context, teamID string) (int, error) {
	if err := s.lockRow(ctx, "teams", teamID); err != nil {
		return 0, err
	}
	const query = `SELECT COUNT(1) FROM projects WHERE team_id = $1 AND status = ANY($2)`
	var count int
	if err := s.tx.QueryRow(ctx, query, teamID, activeStatusStrings()).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListProjects returns projects matching the filter.
func (s *txStore) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	var where whereBuilder
	if filter.ManagerID != "" {
		where.add("manager_id = ?", filter.ManagerID)
	}
	if filter.TeamID != "" {
		where.add("team_id = ?", filter.TeamID)
	}
	if len(filter.Statuses) > 0 {
		where.add("status = ANY(?)", statusStrings(filter.Statuses))
	}
	query := `SELECT ` + projectColumns + ` FROM projects` + where.sql() + ` ORDER BY created_at, id`
	query += where.page(filter.Page)

	rows, err := s.tx.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p                domain.Project
		priority, status string
		completion       sql.NullTime
		teamID           sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&priority,
		&p.StartDate,
		&p.DueDate,
		&completion,
		&status,
		&p.ManagerID,
		&teamID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Priority = domain.Priority(priority)
	p.Status = domain.Status(status)
	p.StartDate = domain.DateOf(p.StartDate)
	p.DueDate = domain.DateOf(p.DueDate)
	p.CompletionDate = nullTimePtr(completion)
	if teamID.Valid {
		p.TeamID = teamID.String
	}
	return &p, nil
}
