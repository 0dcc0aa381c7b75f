package domain

import "time"

// Task is a unit of work inside a project, optionally assigned to one team member.
type Task struct {
	ID             string
	ProjectID      string
	Name           string
	Description    string
	Priority       Priority
	StartDate      time.Time
	DueDate        time.Time
	CompletionDate *time.Time
	Status         Status
	AssigneeID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assigned reports whether the task has an assignee.
func (t Task) Assigned() bool {
	return t.AssigneeID != ""
}
