package domain

import "time"

// EventType names a committed allocation change.
type EventType string

const (
	EventProjectCreated        EventType = "project.created"
	EventProjectUpdated        EventType = "project.updated"
	EventProjectTeamAssigned   EventType = "project.team_assigned"
	EventProjectTeamReassigned EventType = "project.team_reassigned"
	EventProjectManagerChanged EventType = "project.manager_changed"
	EventProjectStarted        EventType = "project.started"
	EventProjectCompleted      EventType = "project.completed"
	EventProjectCancelled      EventType = "project.cancelled"

	EventTaskCreated    EventType = "task.created"
	EventTaskUpdated    EventType = "task.updated"
	EventTaskAssigned   EventType = "task.assigned"
	EventTaskUnassigned EventType = "task.unassigned"
	EventTaskCompleted  EventType = "task.completed"
	EventTaskCancelled  EventType = "task.cancelled"

	EventTeamCreated       EventType = "team.created"
	EventTeamUpdated       EventType = "team.updated"
	EventTeamActivated     EventType = "team.activated"
	EventTeamDeactivated   EventType = "team.deactivated"
	EventTeamMemberAdded   EventType = "team.member_added"
	EventTeamMemberRemoved EventType = "team.member_removed"

	EventUserCreated     EventType = "user.created"
	EventUserActivated   EventType = "user.activated"
	EventUserDeactivated EventType = "user.deactivated"
)

// Event describes one committed change. Only identifiers are carried;
// subscribers fetch current state through the read operations.
type Event struct {
	Type       EventType
	ProjectID  string
	TaskID     string
	TeamID     string
	UserID     string
	ActorID    string
	OccurredAt time.Time
}
