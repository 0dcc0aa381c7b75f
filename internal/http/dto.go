package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

const dateLayout = "2006-01-02"

// date is a calendar day encoded as YYYY-MM-DD.
type date struct {
	time.Time
}

func (d *date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("date must not be null")
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("date %q must use YYYY-MM-DD", raw)
	}
	d.Time = parsed
	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func datePtr(d *date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type teamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTeamResponse(t domain.Team) teamResponse {
	return teamResponse{ID: t.ID, Name: t.Name, Active: t.Active, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

type memberResponse struct {
	ID        string  `json:"id"`
	TeamID    string  `json:"team_id"`
	UserID    string  `json:"user_id"`
	Active    bool    `json:"active"`
	JoinedAt  string  `json:"joined_at"`
	RemovedAt *string `json:"removed_at,omitempty"`
}

func toMemberResponse(m domain.TeamMember) memberResponse {
	return memberResponse{
		ID:        m.ID,
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		Active:    m.Active,
		JoinedAt:  formatDate(m.JoinedAt),
		RemovedAt: formatOptionalDate(m.RemovedAt),
	}
}

type projectResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date"`
	DueDate        string    `json:"due_date"`
	CompletionDate *string   `json:"completion_date"`
	ManagerID      string    `json:"manager_id"`
	TeamID         *string   `json:"team_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProjectResponse(p domain.Project) projectResponse {
	resp := projectResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Priority:       string(p.Priority),
		Status:         string(p.Status),
		StartDate:      formatDate(p.StartDate),
		DueDate:        formatDate(p.DueDate),
		CompletionDate: formatOptionalDate(p.CompletionDate),
		ManagerID:      p.ManagerID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.HasTeam() {
		teamID := p.TeamID
		resp.TeamID = &teamID
	}
	return resp
}

type taskResponse struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date"`
	DueDate        string    `json:"due_date"`
	CompletionDate *string   `json:"completion_date"`
	AssigneeID     *string   `json:"assignee_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toTaskResponse(t domain.Task) taskResponse {
	resp := taskResponse{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		Name:           t.Name,
		Description:    t.Description,
		Priority:       string(t.Priority),
		Status:         string(t.Status),
		StartDate:      formatDate(t.StartDate),
		DueDate:        formatDate(t.DueDate),
		CompletionDate: formatOptionalDate(t.CompletionDate),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.Assigned() {
		assignee := t.AssigneeID
		resp.AssigneeID = &assignee
	}
	return resp
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
