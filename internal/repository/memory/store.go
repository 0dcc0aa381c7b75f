// Package memory provides an in-process Persistence Gateway. Transactions run
// one at a time against a copy of the state that replaces the committed state
// only when the transaction succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

// Store is an in-memory repository.Transactor.
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ repository.Transactor = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

// WithinTx runs fn against a private snapshot and publishes it on success.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &tx{st: snapshot}); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

// Ping always succeeds; it mirrors the pool health hook of the SQL store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type state struct {
	users    map[string]domain.User
	teams    map[string]domain.Team
	members  map[string]domain.TeamMember
	projects map[string]domain.Project
	tasks    map[string]domain.Task
}

func newState() *state {
	return &state{
		users:    make(map[string]domain.User),
		teams:    make(map[string]domain.Team),
		members:  make(map[string]domain.TeamMember),
		projects: make(map[string]domain.Project),
		tasks:    make(map[string]domain.Task),
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.teams {
		out.teams[k] = v
	}
	for k, v := range st.members {
		out.members[k] = cloneMember(v)
	}
	for k, v := range st.projects {
		out.projects[k] = cloneProject(v)
	}
	for k, v := range st.tasks {
		out.tasks[k] = cloneTask(v)
	}
	return out
}

func cloneMember(m domain.TeamMember) domain.TeamMember {
	if m.RemovedAt != nil {
		removed := *m.RemovedAt
		m.RemovedAt = &removed
	}
	return m
}

func cloneProject(p domain.Project) domain.Project {
	if p.CompletionDate != nil {
		completed := *p.CompletionDate
		p.CompletionDate = &completed
	}
	return p
}

func cloneTask(t domain.Task) domain.Task {
	if t.CompletionDate != nil {
		completed := *t.CompletionDate
		t.CompletionDate = &completed
	}
	return t
}

// tx is the repository.Store handed to a running transaction.
type tx struct {
	st *state
}

var _ repository.Store = (*tx)(nil)

// CreateUser inserts a user.
func (t *tx) CreateUser(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.users[user.ID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range t.st.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return repository.ErrConflict
		}
	}
	t.st.users[user.ID] = *user
	return nil
}

// UpdateUser overwrites an existing user.
func (t *tx) UpdateUser(_ context.Context, user *domain.User) error {
	if user == nil {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	t.st.users[user.ID] = *user
	return nil
}

// GetUserByID retrieves a user by identifier.
func (t *tx) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := t.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

// UsernameExists reports whether a username is taken, ignoring case.
func (t *tx) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, user := range t.st.users {
		if strings.EqualFold(user.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// ListUsers returns users matching the filter ordered by creation.
func (t *tx) ListUsers(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users := make([]domain.User, 0)
	for _, user := range t.st.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return paginate(users, filter.Page), nil
}

// CreateTeam inserts a team.
func (t *tx) CreateTeam(_ context.Context, team *domain.Team) error {
	if team == nil || team.ID == "" {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.teams[team.ID]; ok {
		return repository.ErrConflict
	}
	if t.teamNameTaken(team.Name, team.ID) {
		return repository.ErrConflict
	}
	t.st.teams[team.ID] = *team
	return nil
}

// UpdateTeam overwrites an existing team.
func (t *tx) UpdateTeam(_ context.Context, team *domain.Team) error {
	if team == nil {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.teams[team.ID]; !ok {
		return repository.ErrNotFound
	}
	if t.teamNameTaken(team.Name, team.ID) {
		return repository.ErrConflict
	}
	t.st.teams[team.ID] = *team
	return nil
}

// GetTeamByID returns a team by identifier.
func (t *tx) GetTeamByID(_ context.Context, teamID string) (*domain.Team, error) {
	team, ok := t.st.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &team, nil
}

// TeamNameExists reports whether another team uses name.
func (t *tx) TeamNameExists(_ context.Context, name, excludeID string) (bool, error) {
	return t.teamNameTaken(name, excludeID), nil
}

func (t *tx) teamNameTaken(name, excludeID string) bool {
	for id, team := range t.st.teams {
		if id != excludeID && strings.EqualFold(team.Name, name) {
			return true
		}
	}
	return false
}

// ListTeams returns teams matching the filter ordered by creation.
func (t *tx) ListTeams(_ context.Context, filter repository.TeamFilter) ([]domain.Team, error) {
	teams := make([]domain.Team, 0)
	for _, team := range t.st.teams {
		if filter.Active != nil && team.Active != *filter.Active {
			continue
		}
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.Before(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	return paginate(teams, filter.Page), nil
}

// CreateMember inserts a membership row.
func (t *tx) CreateMember(_ context.Context, member *domain.TeamMember) error {
	if member == nil || member.ID == "" {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.teams[member.TeamID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := t.st.users[member.UserID]; !ok {
		return repository.ErrNotFound
	}
	if member.Active {
		for _, existing := range t.st.members {
			if existing.Active && existing.UserID == member.UserID {
				return repository.ErrConflict
			}
		}
	}
	t.st.members[member.ID] = cloneMember(*member)
	return nil
}

// UpdateMember overwrites a membership row.
func (t *tx) UpdateMember(_ context.Context, member *domain.TeamMember) error {
	if member == nil {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.members[member.ID]; !ok {
		return repository.ErrNotFound
	}
	t.st.members[member.ID] = cloneMember(*member)
	return nil
}

// GetActiveMembership returns the user's active membership.
func (t *tx) GetActiveMembership(_ context.Context, userID string) (*domain.TeamMember, error) {
	for _, member := range t.st.members {
		if member.Active && member.UserID == userID {
			out := cloneMember(member)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListMembers returns the team's membership rows ordered by join date.
func (t *tx) ListMembers(_ context.Context, teamID string, activeOnly bool) ([]domain.TeamMember, error) {
	members := make([]domain.TeamMember, 0)
	for _, member := range t.st.members {
		if member.TeamID != teamID {
			continue
		}
		if activeOnly && !member.Active {
			continue
		}
		members = append(members, cloneMember(member))
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].ID < members[j].ID
	})
	return members, nil
}

// CreateProject inserts a project.
func (t *tx) CreateProject(_ context.Context, project *domain.Project) error {
	if project == nil || project.ID == "" {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.projects[project.ID]; ok {
		return repository.ErrConflict
	}
	if t.projectNameTaken(project.Name, project.ID) {
		return repository.ErrConflict
	}
	t.st.projects[project.ID] = cloneProject(*project)
	return nil
}

// UpdateProject overwrites a project.
func (t *tx) UpdateProject(_ context.Context, project *domain.Project) error {
	if project == nil {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.projects[project.ID]; !ok {
		return repository.ErrNotFound
	}
	if t.projectNameTaken(project.Name, project.ID) {
		return repository.ErrConflict
	}
	t.st.projects[project.ID] = cloneProject(*project)
	return nil
}

// GetProjectByID fetches project details.
func (t *tx) GetProjectByID(_ context.Context, projectID string) (*domain.Project, error) {
	project, ok := t.st.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneProject(project)
	return &out, nil
}

// ProjectNameExists reports whether another project uses name.
func (t *tx) ProjectNameExists(_ context.Context, name, excludeID string) (bool, error) {
	return t.projectNameTaken(name, excludeID), nil
}

func (t *tx) projectNameTaken(name, excludeID string) bool {
	for id, project := range t.st.projects {
		if id != excludeID && strings.EqualFold(project.Name, name) {
			return true
		}
	}
	return false
}

// CountActiveProjectsByManager counts the manager's non-terminal projects.
func (t *tx) CountActiveProjectsByManager(_ context.Context, managerID string) (int, error) {
	count := 0
	for _, project := range t.st.projects {
		if project.ManagerID == managerID && !project.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

// CountActiveProjectsByTeam counts the team's non-terminal projects.
func (t *tx) CountActiveProjectsByTeam(_ context.Context, teamID string) (int, error) {
	count := 0
	for _, project := range t.st.projects {
		if project.TeamID == teamID && !project.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

// ListProjects returns projects matching the filter ordered by creation.
func (t *tx) ListProjects(_ context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	projects := make([]domain.Project, 0)
	for _, project := range t.st.projects {
		if filter.ManagerID != "" && project.ManagerID != filter.ManagerID {
			continue
		}
		if filter.TeamID != "" && project.TeamID != filter.TeamID {
			continue
		}
		if !statusMatches(project.Status, filter.Statuses) {
			continue
		}
		projects = append(projects, cloneProject(project))
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
	return paginate(projects, filter.Page), nil
}

// CreateTask inserts a task.
func (t *tx) CreateTask(_ context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.tasks[task.ID]; ok {
		return repository.ErrConflict
	}
	if _, ok := t.st.projects[task.ProjectID]; !ok {
		return repository.ErrNotFound
	}
	if t.taskNameTaken(task.ProjectID, task.Name, task.ID) {
		return repository.ErrConflict
	}
	t.st.tasks[task.ID] = cloneTask(*task)
	return nil
}

// UpdateTask overwrites a task.
func (t *tx) UpdateTask(_ context.Context, task *domain.Task) error {
	if task == nil {
		return repository.ErrInvalidArgument
	}
	if _, ok := t.st.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	if t.taskNameTaken(task.ProjectID, task.Name, task.ID) {
		return repository.ErrConflict
	}
	t.st.tasks[task.ID] = cloneTask(*task)
	return nil
}

// GetTaskByID fetches a task.
func (t *tx) GetTaskByID(_ context.Context, taskID string) (*domain.Task, error) {
	task, ok := t.st.tasks[taskID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTask(task)
	return &out, nil
}

// TaskNameExists reports whether another task in the project uses name.
func (t *tx) TaskNameExists(_ context.Context, projectID, name, excludeID string) (bool, error) {
	return t.taskNameTaken(projectID, name, excludeID), nil
}

func (t *tx) taskNameTaken(projectID, name, excludeID string) bool {
	for id, task := range t.st.tasks {
		if id != excludeID && task.ProjectID == projectID && strings.EqualFold(task.Name, name) {
			return true
		}
	}
	return false
}

// ListTasks returns tasks matching the filter ordered by creation.
func (t *tx) ListTasks(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0)
	for _, task := range t.st.tasks {
		if filter.ProjectID != "" && task.ProjectID != filter.ProjectID {
			continue
		}
		if filter.AssigneeID != "" && task.AssigneeID != filter.AssigneeID {
			continue
		}
		if !statusMatches(task.Status, filter.Statuses) {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return paginate(tasks, filter.Page), nil
}

func statusMatches(status domain.Status, allowed []domain.Status) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == status {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Offset > 0 {
		if page.Offset >= len(items) {
			return items[:0]
		}
		items = items[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
