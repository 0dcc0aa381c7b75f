// Package priority derives project priority from the calendar.
package priority

import (
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

const (
	highWithinDays   = 7
	mediumWithinDays = 30
)

// Compute returns the date-driven priority for project as of today.
// Terminal projects keep their stored priority.
func Compute(project domain.Project, today time.Time) domain.Priority {
	if project.Status.Terminal() {
		return project.Priority
	}
	today = domain.DateOf(today)
	if !today.After(domain.DateOf(project.StartDate)) {
		return domain.PriorityLow
	}

	remaining := domain.DaysBetween(today, project.DueDate)
	switch {
	case remaining <= highWithinDays:
		return domain.PriorityHigh
	case remaining <= mediumWithinDays:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Refresh recomputes project's priority in place and reports whether it changed.
func Refresh(project *domain.Project, today time.Time) bool {
	next := Compute(*project, today)
	if next == project.Priority {
		return false
	}
	project.Priority = next
	return true
}
