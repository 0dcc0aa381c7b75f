package allocation

import (
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	ManagerID   string
	Name        string
	Description string
	StartDate   time.Time
	DueDate     time.Time
}

// UpdateProjectInput carries the generic project edit. Nil fields are left unchanged.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	DueDate     *time.Time
}

// CreateTaskInput describes a new task.
type CreateTaskInput struct {
	ProjectID   string
	Name        string
	Description string
	Priority    domain.Priority
	StartDate   time.Time
	DueDate     time.Time
}

// UpdateTaskInput carries the generic task edit. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Name        *string
	Description *string
	Priority    *domain.Priority
	StartDate   *time.Time
	DueDate     *time.Time
}

// CreateUserInput describes a new account. Credentials are managed elsewhere.
type CreateUserInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      domain.Role
}
