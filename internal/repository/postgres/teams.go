package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

const (
	teamColumns   = `id, name, active, created_at, updated_at`
	memberColumns = `id, team_id, user_id, joined_at, removed_at, active`
)

// CreateTeam creates a team record.
func (s *txStore) CreateTeam(ctx context.Context, team *domain.Team) error {
	const query = `INSERT INTO teams (` + teamColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.tx.Exec(ctx, query, team.ID, team.Name, team.Active, team.CreatedAt, team.UpdatedAt)
	return mapWriteError(err)
}

// UpdateTeam persists team name and activation.
func (s *txStore) UpdateTeam(ctx context.Context, team *domain.Team) error {
	const query = `UPDATE teams SET name = $2, active = $3, updated_at = $4 WHERE id = $1`
	return expectAffected(s.tx.Exec(ctx, query, team.ID, team.Name, team.Active, team.UpdatedAt))
}

// GetTeamByID returns a team by identifier.
func (s *txStore) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	var team domain.Team
	if err := s.tx.QueryRow(ctx, query, teamID).Scan(&team.ID, &team.Name, &team.Active, &team.CreatedAt, &team.UpdatedAt); err != nil {
		return nil, mapReadError(err)
	}
	return &team, nil
}

// TeamNameExists reports whether another team uses name, ignoring case.
func (s *txStore) TeamNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teams WHERE LOWER(name) = LOWER($1) AND id <> $2)`
	var exists bool
	if err := s.tx.QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListTeams returns teams matching the filter.
func (s *txStore) ListTeams(ctx context.Context, filter repository.TeamFilter) ([]domain.Team, error) {
	var where whereBuilder
	if filter.Active != nil {
		where.add("active = ?", *filter.Active)
	}
	query := `SELECT ` + teamColumns + ` FROM teams` + where.sql() + ` ORDER BY created_at, id`
	query += where.page(filter.Page)

	rows, err := s.tx.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Active, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// CreateMember inserts a membership row. A partial unique index keeps one
// active membership per user.
func (s *txStore) CreateMember(ctx context.Context, member *domain.TeamMember) error {
	const query = `INSERT INTO team_members (` + memberColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.tx.Exec(ctx, query, member.ID, member.TeamID, member.UserID, domain.DateOf(member.JoinedAt), timePtrToNil(member.RemovedAt), member.Active)
	return mapWriteError(err)
}

// UpdateMember persists membership deactivation.
func (s *txStore) UpdateMember(ctx context.Context, member *domain.TeamMember) error {
	const query = `UPDATE team_members SET removed_at = $2, active = $3 WHERE id = $1`
	return expectAffected(s.tx.Exec(ctx, query, member.ID, timePtrToNil(member.RemovedAt), member.Active))
}

// GetActiveMembership locks the user row and returns the active membership.
func (s *txStore) GetActiveMembership(ctx context.Context, userID string) (*domain.TeamMember, error) {
	if err := s.lockRow(ctx, "users", userID); err != nil {
		return nil, err
	}
	const query = `SELECT ` + memberColumns + ` FROM team_members WHERE user_id = $1 AND active`
	member, err := scanMember(s.tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return member, nil
}

// ListMembers returns membership rows for a team ordered by join date.
func (s *txStore) ListMembers(ctx context.Context, teamID string, activeOnly bool) ([]domain.TeamMember, error) {
	query := `SELECT ` + memberColumns + ` FROM team_members WHERE team_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY joined_at, id`

	rows, err := s.tx.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.TeamMember, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, rows.Err()
}

func scanMember(row pgx.Row) (*domain.TeamMember, error) {
	var (
		m       domain.TeamMember
		removed sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.TeamID, &m.UserID, &m.JoinedAt, &removed, &m.Active); err != nil {
		return nil, err
	}
	m.JoinedAt = domain.DateOf(m.JoinedAt)
	m.RemovedAt = nullTimePtr(removed)
	return &m, nil
}
