// Package lifecycle enforces project and task status transitions. Guards
// return a domain error without touching state; transitions mutate the
// entity they are given and leave persistence to the caller.
package lifecycle

import (
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

func projectMeta(project domain.Project) map[string]string {
	return map[string]string{"project_id": project.ID, "status": string(project.Status)}
}

// ValidateDateRange rejects windows whose start falls after their due date.
func ValidateDateRange(start, due time.Time) error {
	if domain.DateOf(start).After(domain.DateOf(due)) {
		return apperr.New(apperr.CodeInvalidDateRange, "start date must not be after due date")
	}
	return nil
}

// ValidateNewProject checks the dates of a project about to be created.
func ValidateNewProject(start, due, today time.Time) error {
	if domain.DateOf(start).Before(domain.DateOf(today)) {
		return apperr.New(apperr.CodeStartDateInPast, "start date must not be in the past")
	}
	return ValidateDateRange(start, due)
}

// CanUpdateProject rejects edits to terminal projects.
func CanUpdateProject(project domain.Project) error {
	if project.Status.Terminal() {
		return apperr.WithMetadata(apperr.CodeProjectTerminal, "project is closed", projectMeta(project))
	}
	return nil
}

// ValidateProjectDates checks a proposed date window for an existing project.
func ValidateProjectDates(project domain.Project, start, due, today time.Time) error {
	startChanged := !domain.DateOf(start).Equal(domain.DateOf(project.StartDate))
	if startChanged {
		if project.Status == domain.StatusInProgress {
			return apperr.WithMetadata(apperr.CodeProjectStartLocked, "start date cannot change once the project is in progress", projectMeta(project))
		}
		if domain.DateOf(start).Before(domain.DateOf(today)) {
			return apperr.New(apperr.CodeStartDateInPast, "start date must not be in the past")
		}
	}
	return ValidateDateRange(start, due)
}

// CanCompleteProject requires a live project with no task still in progress.
func CanCompleteProject(project domain.Project, tasks []domain.Task) error {
	if project.Status.Terminal() {
		return apperr.WithMetadata(apperr.CodeProjectTerminal, "project is closed", projectMeta(project))
	}
	for _, task := range tasks {
		if task.Status == domain.StatusInProgress {
			return apperr.WithMetadata(apperr.CodeProjectTasksInProgress,
				"project still has tasks in progress",
				map[string]string{"project_id": project.ID, "task_id": task.ID})
		}
	}
	return nil
}

// CanRemoveProject rejects cancelling a project twice or cancelling a completed one.
func CanRemoveProject(project domain.Project) error {
	switch project.Status {
	case domain.StatusCancelled:
		return apperr.WithMetadata(apperr.CodeProjectAlreadyCancelled, "project is already cancelled", projectMeta(project))
	case domain.StatusCompleted:
		return apperr.WithMetadata(apperr.CodeProjectTerminal, "project is closed", projectMeta(project))
	}
	return nil
}

func checkTeamActive(team domain.Team) error {
	if !team.Active {
		return apperr.WithMetadata(apperr.CodeTeamInactive, "team is inactive", map[string]string{"team_id": team.ID})
	}
	return nil
}

// CanAssignTeam checks the project side of a first team assignment. The
// team ceiling is checked separately against a locked count.
func CanAssignTeam(project domain.Project, team domain.Team) error {
	if err := CanUpdateProject(project); err != nil {
		return err
	}
	if project.HasTeam() {
		return apperr.WithMetadata(apperr.CodeProjectHasTeam, "project already has a team", map[string]string{"project_id": project.ID, "team_id": project.TeamID})
	}
	return checkTeamActive(team)
}

// CanReassignTeam checks swapping the project's current team for team.
func CanReassignTeam(project domain.Project, team domain.Team) error {
	if err := CanUpdateProject(project); err != nil {
		return err
	}
	if !project.HasTeam() {
		return apperr.WithMetadata(apperr.CodeProjectHasNoTeam, "project has no team to replace", projectMeta(project))
	}
	if project.TeamID == team.ID {
		return apperr.WithMetadata(apperr.CodeProjectSameTeam, "team already staffs this project", map[string]string{"project_id": project.ID, "team_id": team.ID})
	}
	return checkTeamActive(team)
}

// CanChangeManager checks the project side of a manager change.
func CanChangeManager(project domain.Project, managerID string) error {
	if err := CanUpdateProject(project); err != nil {
		return err
	}
	if project.ManagerID == managerID {
		return apperr.WithMetadata(apperr.CodeProjectSameManager, "user already manages this project", map[string]string{"project_id": project.ID, "manager_id": managerID})
	}
	return nil
}

// NewProject builds a project in its initial state.
func NewProject(id, managerID, name, description string, start, due, now time.Time) domain.Project {
	return domain.Project{
		ID:          id,
		Name:        name,
		Description: description,
		Priority:    domain.PriorityLow,
		StartDate:   domain.DateOf(start),
		DueDate:     domain.DateOf(due),
		Status:      domain.StatusNotStarted,
		ManagerID:   managerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StartProject promotes a not-started project and reports whether it changed.
func StartProject(project *domain.Project, now time.Time) bool {
	if project.Status != domain.StatusNotStarted {
		return false
	}
	project.Status = domain.StatusInProgress
	project.UpdatedAt = now
	return true
}

// CompleteProject closes project as of now.
func CompleteProject(project *domain.Project, now time.Time) {
	completed := domain.DateOf(now)
	project.Status = domain.StatusCompleted
	project.Priority = domain.PriorityLow
	project.CompletionDate = &completed
	project.UpdatedAt = now
}

// CancelProject marks project cancelled.
func CancelProject(project *domain.Project, now time.Time) {
	project.Status = domain.StatusCancelled
	project.Priority = domain.PriorityLow
	project.UpdatedAt = now
}
