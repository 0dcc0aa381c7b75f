package domain

import "time"

// Team represents a named group of users staffing at most one live project.
type Team struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeamMember links a user to a team. Rows are never deleted: removal flips
// Active and stamps RemovedAt.
type TeamMember struct {
	ID        string
	TeamID    string
	UserID    string
	JoinedAt  time.Time
	RemovedAt *time.Time
	Active    bool
}
