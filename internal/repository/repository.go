package repository

import (
	"context"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

// Page bounds a list query. Zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role   domain.Role
	Active *bool
	Page
}

// TeamFilter narrows team listings.
type TeamFilter struct {
	Active *bool
	Page
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	ManagerID string
	TeamID    string
	Statuses  []domain.Status
	Page
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	ProjectID  string
	AssigneeID string
	Statuses   []domain.Status
	Page
}

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

// TeamRepository manages teams and memberships.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	UpdateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	// TeamNameExists compares case-insensitively, ignoring excludeID.
	TeamNameExists(ctx context.Context, name, excludeID string) (bool, error)
	ListTeams(ctx context.Context, filter TeamFilter) ([]domain.Team, error)
	CreateMember(ctx context.Context, member *domain.TeamMember) error
	UpdateMember(ctx context.Context, member *domain.TeamMember) error
	// GetActiveMembership returns the user's single active membership or ErrNotFound.
	// Implementations serialize concurrent membership writers for the same user.
	GetActiveMembership(ctx context.Context, userID string) (*domain.TeamMember, error)
	ListMembers(ctx context.Context, teamID string, activeOnly bool) ([]domain.TeamMember, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	UpdateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	// ProjectNameExists compares case-insensitively, ignoring excludeID.
	ProjectNameExists(ctx context.Context, name, excludeID string) (bool, error)
	// CountActiveProjectsByManager counts non-terminal projects. Implementations
	// must serialize concurrent writers counting the same manager.
	CountActiveProjectsByManager(ctx context.Context, managerID string) (int, error)
	// CountActiveProjectsByTeam counts non-terminal projects. Implementations
	// must serialize concurrent writers counting the same team.
	CountActiveProjectsByTeam(ctx context.Context, teamID string) (int, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
}

// TaskRepository persists tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error)
	// TaskNameExists compares case-insensitively within projectID, ignoring excludeID.
	TaskNameExists(ctx context.Context, projectID, name, excludeID string) (bool, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
}

// Store groups the repositories visible inside one transaction.
type Store interface {
	UserRepository
	TeamRepository
	ProjectRepository
	TaskRepository
}

// Transactor runs fn against a transactional Store. Writes made by fn commit
// together when it returns nil and are discarded otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
