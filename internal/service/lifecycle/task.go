package lifecycle

import (
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

func taskMeta(task domain.Task) map[string]string {
	return map[string]string{"task_id": task.ID, "status": string(task.Status)}
}

// CanCreateTask requires a live project.
func CanCreateTask(project domain.Project) error {
	return CanUpdateProject(project)
}

// ValidateTaskDates checks a task window is ordered and nested inside the project's.
func ValidateTaskDates(project domain.Project, start, due time.Time) error {
	if err := ValidateDateRange(start, due); err != nil {
		return err
	}
	if !project.Contains(start, due) {
		return apperr.WithMetadata(apperr.CodeDatesOutside,
			"task dates must fall within the project dates",
			map[string]string{
				"project_start": domain.DateOf(project.StartDate).Format(time.DateOnly),
				"project_due":   domain.DateOf(project.DueDate).Format(time.DateOnly),
			})
	}
	return nil
}

// ValidateTaskPriority accepts only caller-assignable priorities.
func ValidateTaskPriority(priority domain.Priority) error {
	if !priority.Assignable() {
		return apperr.Validation("priority", "priority must be LOW, MEDIUM or HIGH")
	}
	return nil
}

// CanUpdateTask rejects edits to closed tasks or tasks of closed projects.
func CanUpdateTask(task domain.Task, project domain.Project) error {
	if err := CanUpdateProject(project); err != nil {
		return err
	}
	if task.Status.Terminal() {
		return apperr.WithMetadata(apperr.CodeTaskTerminal, "task is closed", taskMeta(task))
	}
	return nil
}

// CanAssignTask checks a first assignment. Assignee eligibility is checked separately.
func CanAssignTask(task domain.Task, project domain.Project) error {
	if err := CanUpdateTask(task, project); err != nil {
		return err
	}
	if task.Assigned() {
		return apperr.WithMetadata(apperr.CodeTaskAlreadyAssigned, "task already has an assignee", taskMeta(task))
	}
	if !project.HasTeam() {
		return apperr.WithMetadata(apperr.CodeProjectHasNoTeam, "project has no team to draw assignees from", projectMeta(project))
	}
	return nil
}

// CanReassignTask checks moving an assigned task to userID.
func CanReassignTask(task domain.Task, project domain.Project, userID string) error {
	if err := CanUpdateTask(task, project); err != nil {
		return err
	}
	if !task.Assigned() {
		return apperr.WithMetadata(apperr.CodeTaskNotAssigned, "task has no assignee to replace", taskMeta(task))
	}
	if task.AssigneeID == userID {
		return apperr.WithMetadata(apperr.CodeTaskSameAssignee, "user is already assigned to this task", taskMeta(task))
	}
	if !project.HasTeam() {
		return apperr.WithMetadata(apperr.CodeProjectHasNoTeam, "project has no team to draw assignees from", projectMeta(project))
	}
	return nil
}

// CanCompleteTask rejects completing a closed task or a task of a closed project.
func CanCompleteTask(task domain.Task, project domain.Project) error {
	switch task.Status {
	case domain.StatusCompleted:
		return apperr.WithMetadata(apperr.CodeTaskAlreadyCompleted, "task is already completed", taskMeta(task))
	case domain.StatusCancelled:
		return apperr.WithMetadata(apperr.CodeTaskTerminal, "task is cancelled", taskMeta(task))
	}
	return CanUpdateProject(project)
}

// CanRemoveTask checks a standalone removal. Cascading removals skip it.
func CanRemoveTask(task domain.Task, project domain.Project) error {
	return CanUpdateTask(task, project)
}

// NewTask builds a task in its initial state.
func NewTask(id, projectID, name, description string, priority domain.Priority, start, due, now time.Time) domain.Task {
	return domain.Task{
		ID:          id,
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		Priority:    priority,
		StartDate:   domain.DateOf(start),
		DueDate:     domain.DateOf(due),
		Status:      domain.StatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AssignTask gives task to userID and starts it.
func AssignTask(task *domain.Task, userID string, now time.Time) {
	task.AssigneeID = userID
	task.Status = domain.StatusInProgress
	task.UpdatedAt = now
}

// UnassignTask clears the assignee and leaves the status as it was.
func UnassignTask(task *domain.Task, now time.Time) {
	task.AssigneeID = ""
	task.UpdatedAt = now
}

// CompleteTask closes task as of now.
func CompleteTask(task *domain.Task, now time.Time) {
	completed := domain.DateOf(now)
	task.Status = domain.StatusCompleted
	task.Priority = domain.PriorityCompleted
	task.CompletionDate = &completed
	task.UpdatedAt = now
}

// CancelTask detaches the assignee and cancels task.
func CancelTask(task *domain.Task, now time.Time) {
	task.AssigneeID = ""
	task.Status = domain.StatusCancelled
	task.UpdatedAt = now
}
