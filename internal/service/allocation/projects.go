package allocation

import (
	"context"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/capacity"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/lifecycle"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/priority"
)

// CreateProject opens a project for a manager with spare capacity.
func (s *Service) CreateProject(ctx context.Context, caller domain.Caller, in CreateProjectInput) (*domain.Project, error) {
	var out domain.Project
	err := s.run(ctx, "create_project", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		if !caller.Is(domain.RoleAdmin) && !(caller.Is(domain.RoleProjectManager) && caller.UserID == in.ManagerID) {
			return forbidden("only admins may create projects for other managers")
		}
		name, err := validateName("name", in.Name)
		if err != nil {
			return err
		}
		if err := validateDates(in.StartDate, in.DueDate); err != nil {
			return err
		}
		if err := lifecycle.ValidateNewProject(in.StartDate, in.DueDate, t.today); err != nil {
			return err
		}

		manager, err := t.user(ctx, in.ManagerID)
		if err != nil {
			return err
		}
		if err := capacity.CheckManager(*manager); err != nil {
			return err
		}
		active, err := t.store.CountActiveProjectsByManager(ctx, manager.ID)
		if err != nil {
			return err
		}
		if err := capacity.CheckManagerCapacity(manager.ID, active); err != nil {
			return err
		}

		name, err = resolveName(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
			return t.store.ProjectNameExists(ctx, candidate, "")
		})
		if err != nil {
			return err
		}

		project := lifecycle.NewProject(s.newID(), manager.ID, name, strings.TrimSpace(in.Description), in.StartDate, in.DueDate, t.now)
		if err := t.store.CreateProject(ctx, &project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectCreated, ProjectID: project.ID, UserID: manager.ID})
		out = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", out.ID, "manager_id", out.ManagerID)
	return &out, nil
}

// UpdateProject applies the generic edit of name, description and dates.
func (s *Service) UpdateProject(ctx context.Context, caller domain.Caller, projectID string, in UpdateProjectInput) (*domain.Project, error) {
	var out domain.Project
	err := s.run(ctx, "update_project", caller, func(ctx context.Context, t *txn) error {
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		if err := lifecycle.CanUpdateProject(*project); err != nil {
			return err
		}

		start, due := project.StartDate, project.DueDate
		if in.StartDate != nil {
			start = domain.DateOf(*in.StartDate)
		}
		if in.DueDate != nil {
			due = domain.DateOf(*in.DueDate)
		}
		if err := lifecycle.ValidateProjectDates(*project, start, due, t.today); err != nil {
			return err
		}
		if !start.Equal(project.StartDate) || !due.Equal(project.DueDate) {
			window := *project
			window.StartDate, window.DueDate = start, due
			tasks, err := t.store.ListTasks(ctx, repository.TaskFilter{ProjectID: project.ID, Statuses: []domain.Status{domain.StatusNotStarted, domain.StatusInProgress, domain.StatusCompleted}})
			if err != nil {
				return err
			}
			for _, task := range tasks {
				if err := lifecycle.ValidateTaskDates(window, task.StartDate, task.DueDate); err != nil {
					return err
				}
			}
			project.StartDate, project.DueDate = start, due
		}

		if in.Name != nil {
			name, err := validateName("name", *in.Name)
			if err != nil {
				return err
			}
			if !strings.EqualFold(name, project.Name) {
				name, err = resolveName(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
					return t.store.ProjectNameExists(ctx, candidate, project.ID)
				})
				if err != nil {
					return err
				}
			}
			project.Name = name
		}
		if in.Description != nil {
			project.Description = strings.TrimSpace(*in.Description)
		}

		priority.Refresh(project, t.today)
		project.UpdatedAt = t.now
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectUpdated, ProjectID: project.ID})
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project updated", "project_id", out.ID)
	return &out, nil
}

// refreshPriority persists a recomputed priority when it drifted.
func (t *txn) refreshPriority(ctx context.Context, project *domain.Project) error {
	if !priority.Refresh(project, t.today) {
		return nil
	}
	project.UpdatedAt = t.now
	return writeErr(t.store.UpdateProject(ctx, project))
}

// GetProject returns a project with its priority brought up to date.
func (s *Service) GetProject(ctx context.Context, caller domain.Caller, projectID string) (*domain.Project, error) {
	var out domain.Project
	err := s.run(ctx, "get_project", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := t.refreshPriority(ctx, project); err != nil {
			return err
		}
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects returns filtered projects with refreshed priorities.
func (s *Service) ListProjects(ctx context.Context, caller domain.Caller, filter repository.ProjectFilter) ([]domain.Project, error) {
	var out []domain.Project
	err := s.run(ctx, "list_projects", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		projects, err := t.store.ListProjects(ctx, filter)
		if err != nil {
			return err
		}
		for i := range projects {
			if err := t.refreshPriority(ctx, &projects[i]); err != nil {
				return err
			}
		}
		out = projects
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AssignTeam staffs a project that has no team yet.
func (s *Service) AssignTeam(ctx context.Context, caller domain.Caller, projectID, teamID string) (*domain.Project, error) {
	var out domain.Project
	err := s.run(ctx, "assign_team", caller, func(ctx context.Context, t *txn) error {
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanAssignTeam(*project, *team); err != nil {
			return err
		}
		if err := t.checkTeamCapacity(ctx, team.ID); err != nil {
			return err
		}

		project.TeamID = team.ID
		priority.Refresh(project, t.today)
		project.UpdatedAt = t.now
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectTeamAssigned, ProjectID: project.ID, TeamID: team.ID})
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team assigned", "project_id", out.ID, "team_id", out.TeamID)
	return &out, nil
}

// ReassignTeam swaps the project's team. In-progress tasks held by members
// of the outgoing team lose their assignee but keep their status.
func (s *Service) ReassignTeam(ctx context.Context, caller domain.Caller, projectID, teamID string) (*domain.Project, error) {
	var (
		out     domain.Project
		oldTeam string
	)
	err := s.run(ctx, "reassign_team", caller, func(ctx context.Context, t *txn) error {
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanReassignTeam(*project, *team); err != nil {
			return err
		}
		if err := t.checkTeamCapacity(ctx, team.ID); err != nil {
			return err
		}

		oldTeam = project.TeamID
		members, err := t.store.ListMembers(ctx, oldTeam, true)
		if err != nil {
			return err
		}
		outgoing := make(map[string]struct{}, len(members))
		for _, member := range members {
			outgoing[member.UserID] = struct{}{}
		}
		err = t.unassignInProgress(ctx, repository.TaskFilter{ProjectID: project.ID}, func(task domain.Task) bool {
			_, ok := outgoing[task.AssigneeID]
			return !ok
		})
		if err != nil {
			return err
		}

		project.TeamID = team.ID
		priority.Refresh(project, t.today)
		project.UpdatedAt = t.now
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectTeamReassigned, ProjectID: project.ID, TeamID: team.ID})
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team reassigned", "project_id", out.ID, "from_team_id", oldTeam, "team_id", out.TeamID)
	return &out, nil
}

func (t *txn) checkTeamCapacity(ctx context.Context, teamID string) error {
	active, err := t.store.CountActiveProjectsByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	return capacity.CheckTeamCapacity(teamID, active)
}

// UpdateProjectManager hands a live project to another manager with spare capacity.
func (s *Service) UpdateProjectManager(ctx context.Context, caller domain.Caller, projectID, managerID string) (*domain.Project, error) {
	var out domain.Project
	err := s.run(ctx, "update_project_manager", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanChangeManager(*project, managerID); err != nil {
			return err
		}
		manager, err := t.user(ctx, managerID)
		if err != nil {
			return err
		}
		if err := capacity.CheckManager(*manager); err != nil {
			return err
		}
		active, err := t.store.CountActiveProjectsByManager(ctx, manager.ID)
		if err != nil {
			return err
		}
		if err := capacity.CheckManagerCapacity(manager.ID, active); err != nil {
			return err
		}

		project.ManagerID = manager.ID
		priority.Refresh(project, t.today)
		project.UpdatedAt = t.now
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectManagerChanged, ProjectID: project.ID, UserID: manager.ID})
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project manager changed", "project_id", out.ID, "manager_id", out.ManagerID)
	return &out, nil
}

// CompleteProject closes a project whose tasks are all finished or cancelled.
func (s *Service) CompleteProject(ctx context.Context, caller domain.Caller, projectID string) (*domain.Project, error) {
	var out domain.Project
	err := s.run(ctx, "complete_project", caller, func(ctx context.Context, t *txn) error {
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		tasks, err := t.store.ListTasks(ctx, repository.TaskFilter{ProjectID: project.ID})
		if err != nil {
			return err
		}
		if err := lifecycle.CanCompleteProject(*project, tasks); err != nil {
			return err
		}

		lifecycle.CompleteProject(project, t.now)
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectCompleted, ProjectID: project.ID})
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project completed", "project_id", out.ID)
	return &out, nil
}

// RemoveProject cancels a project and every task it still holds.
func (s *Service) RemoveProject(ctx context.Context, caller domain.Caller, projectID string) (*domain.Project, error) {
	var (
		out       domain.Project
		cancelled int
	)
	err := s.run(ctx, "remove_project", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		project, err := t.project(ctx, projectID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanRemoveProject(*project); err != nil {
			return err
		}

		tasks, err := t.store.ListTasks(ctx, repository.TaskFilter{ProjectID: project.ID})
		if err != nil {
			return err
		}
		for i := range tasks {
			if tasks[i].Status == domain.StatusCancelled {
				continue
			}
			if err := t.removeTask(ctx, &tasks[i], *project, cascadeRemoval); err != nil {
				return err
			}
			cancelled++
		}

		lifecycle.CancelProject(project, t.now)
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectCancelled, ProjectID: project.ID})
		out = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project removed", "project_id", out.ID, "tasks_cancelled", cancelled)
	return &out, nil
}
