package domain

import "time"

// Project is a dated unit of work owned by one project manager and staffed
// by at most one team.
type Project struct {
	ID             string
	Name           string
	Description    string
	Priority       Priority
	StartDate      time.Time
	DueDate        time.Time
	CompletionDate *time.Time
	Status         Status
	ManagerID      string
	TeamID         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasTeam reports whether a team staffs the project.
func (p Project) HasTeam() bool {
	return p.TeamID != ""
}

// Contains reports whether the [start, due] window lies inside the project's dates.
func (p Project) Contains(start, due time.Time) bool {
	start, due = DateOf(start), DateOf(due)
	return !start.Before(DateOf(p.StartDate)) && !due.After(DateOf(p.DueDate))
}
