package allocation

import (
	"context"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/capacity"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/lifecycle"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/priority"
)

// removalMode selects which guards a task removal runs.
type removalMode int

const (
	standaloneRemoval removalMode = iota
	// cascadeRemoval skips project and task state checks; the parent
	// project removal already validated them.
	cascadeRemoval
)

// CreateTask adds a task to a live project.
func (s *Service) CreateTask(ctx context.Context, caller domain.Caller, in CreateTaskInput) (*domain.Task, error) {
	var out domain.Task
	err := s.run(ctx, "create_task", caller, func(ctx context.Context, t *txn) error {
		project, err := t.project(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		if err := lifecycle.CanCreateTask(*project); err != nil {
			return err
		}
		name, err := validateName("name", in.Name)
		if err != nil {
			return err
		}
		if in.Priority == "" {
			in.Priority = domain.PriorityLow
		}
		if err := lifecycle.ValidateTaskPriority(in.Priority); err != nil {
			return err
		}
		if err := validateDates(in.StartDate, in.DueDate); err != nil {
			return err
		}
		if err := lifecycle.ValidateTaskDates(*project, in.StartDate, in.DueDate); err != nil {
			return err
		}

		name, err = resolveName(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
			return t.store.TaskNameExists(ctx, project.ID, candidate, "")
		})
		if err != nil {
			return err
		}

		task := lifecycle.NewTask(s.newID(), project.ID, name, strings.TrimSpace(in.Description), in.Priority, in.StartDate, in.DueDate, t.now)
		if err := t.store.CreateTask(ctx, &task); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventTaskCreated, ProjectID: project.ID, TaskID: task.ID})
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", out.ID, "project_id", out.ProjectID)
	return &out, nil
}

// UpdateTask applies the generic edit of name, description, priority and dates.
func (s *Service) UpdateTask(ctx context.Context, caller domain.Caller, taskID string, in UpdateTaskInput) (*domain.Task, error) {
	var out domain.Task
	err := s.run(ctx, "update_task", caller, func(ctx context.Context, t *txn) error {
		task, project, err := t.task(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		if err := lifecycle.CanUpdateTask(*task, *project); err != nil {
			return err
		}

		if in.Priority != nil {
			if err := lifecycle.ValidateTaskPriority(*in.Priority); err != nil {
				return err
			}
			task.Priority = *in.Priority
		}
		start, due := task.StartDate, task.DueDate
		if in.StartDate != nil {
			start = domain.DateOf(*in.StartDate)
		}
		if in.DueDate != nil {
			due = domain.DateOf(*in.DueDate)
		}
		if err := lifecycle.ValidateTaskDates(*project, start, due); err != nil {
			return err
		}
		task.StartDate, task.DueDate = start, due

		if in.Name != nil {
			name, err := validateName("name", *in.Name)
			if err != nil {
				return err
			}
			if !strings.EqualFold(name, task.Name) {
				name, err = resolveName(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
					return t.store.TaskNameExists(ctx, project.ID, candidate, task.ID)
				})
				if err != nil {
					return err
				}
			}
			task.Name = name
		}
		if in.Description != nil {
			task.Description = strings.TrimSpace(*in.Description)
		}

		task.UpdatedAt = t.now
		if err := t.store.UpdateTask(ctx, task); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventTaskUpdated, ProjectID: project.ID, TaskID: task.ID})
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task updated", "task_id", out.ID)
	return &out, nil
}

// GetTask returns a task.
func (s *Service) GetTask(ctx context.Context, caller domain.Caller, taskID string) (*domain.Task, error) {
	var out domain.Task
	err := s.run(ctx, "get_task", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		task, err := t.store.GetTaskByID(ctx, taskID)
		if err != nil {
			return notFound(err, apperr.CodeTaskNotFound, "task_id", taskID)
		}
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns filtered tasks.
func (s *Service) ListTasks(ctx context.Context, caller domain.Caller, filter repository.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	err := s.run(ctx, "list_tasks", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		tasks, err := t.store.ListTasks(ctx, filter)
		if err != nil {
			return err
		}
		out = tasks
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eligibleAssignee loads userID and checks they can work on project.
func (t *txn) eligibleAssignee(ctx context.Context, userID string, project domain.Project) (*domain.User, error) {
	user, err := t.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	membership, err := t.activeMembership(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := capacity.CheckAssignee(*user, membership, project.TeamID); err != nil {
		return nil, err
	}
	return user, nil
}

// startTask assigns task and promotes a not-started project.
func (t *txn) startTask(ctx context.Context, task *domain.Task, project *domain.Project, userID string) error {
	lifecycle.AssignTask(task, userID, t.now)
	if err := t.store.UpdateTask(ctx, task); err != nil {
		return writeErr(err)
	}
	if lifecycle.StartProject(project, t.now) {
		priority.Refresh(project, t.today)
		if err := t.store.UpdateProject(ctx, project); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventProjectStarted, ProjectID: project.ID})
	}
	t.emit(domain.Event{Type: domain.EventTaskAssigned, ProjectID: project.ID, TaskID: task.ID, UserID: userID})
	return nil
}

// AssignTask gives an unassigned task to an eligible member of the project team.
func (s *Service) AssignTask(ctx context.Context, caller domain.Caller, taskID, userID string) (*domain.Task, error) {
	var out domain.Task
	err := s.run(ctx, "assign_task", caller, func(ctx context.Context, t *txn) error {
		task, project, err := t.task(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		if err := lifecycle.CanAssignTask(*task, *project); err != nil {
			return err
		}
		if _, err := t.eligibleAssignee(ctx, userID, *project); err != nil {
			return err
		}
		if err := t.startTask(ctx, task, project, userID); err != nil {
			return err
		}
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task assigned", "task_id", out.ID, "user_id", out.AssigneeID)
	return &out, nil
}

// ReassignTask moves an assigned task to a different eligible member.
func (s *Service) ReassignTask(ctx context.Context, caller domain.Caller, taskID, userID string) (*domain.Task, error) {
	var (
		out      domain.Task
		previous string
	)
	err := s.run(ctx, "reassign_task", caller, func(ctx context.Context, t *txn) error {
		task, project, err := t.task(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		if err := lifecycle.CanReassignTask(*task, *project, userID); err != nil {
			return err
		}
		if _, err := t.eligibleAssignee(ctx, userID, *project); err != nil {
			return err
		}

		previous = task.AssigneeID
		t.emit(domain.Event{Type: domain.EventTaskUnassigned, ProjectID: project.ID, TaskID: task.ID, UserID: previous})
		if err := t.startTask(ctx, task, project, userID); err != nil {
			return err
		}
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task reassigned", "task_id", out.ID, "from_user_id", previous, "user_id", out.AssigneeID)
	return &out, nil
}

// CompleteTask closes a task. Assignees may complete their own tasks.
func (s *Service) CompleteTask(ctx context.Context, caller domain.Caller, taskID string) (*domain.Task, error) {
	var out domain.Task
	err := s.run(ctx, "complete_task", caller, func(ctx context.Context, t *txn) error {
		task, project, err := t.task(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireTaskCompleter(caller, *task, *project); err != nil {
			return err
		}
		if err := lifecycle.CanCompleteTask(*task, *project); err != nil {
			return err
		}

		lifecycle.CompleteTask(task, t.now)
		if err := t.store.UpdateTask(ctx, task); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventTaskCompleted, ProjectID: project.ID, TaskID: task.ID, UserID: task.AssigneeID})
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task completed", "task_id", out.ID)
	return &out, nil
}

// RemoveTask cancels a task and clears its assignee.
func (s *Service) RemoveTask(ctx context.Context, caller domain.Caller, taskID string) (*domain.Task, error) {
	var out domain.Task
	err := s.run(ctx, "remove_task", caller, func(ctx context.Context, t *txn) error {
		task, project, err := t.task(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireProjectManager(caller, *project); err != nil {
			return err
		}
		if err := t.removeTask(ctx, task, *project, standaloneRemoval); err != nil {
			return err
		}
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task removed", "task_id", out.ID)
	return &out, nil
}

func (t *txn) removeTask(ctx context.Context, task *domain.Task, project domain.Project, mode removalMode) error {
	if mode == standaloneRemoval {
		if err := lifecycle.CanRemoveTask(*task, project); err != nil {
			return err
		}
	}
	previous := task.AssigneeID
	lifecycle.CancelTask(task, t.now)
	if err := t.store.UpdateTask(ctx, task); err != nil {
		return writeErr(err)
	}
	t.emit(domain.Event{Type: domain.EventTaskCancelled, ProjectID: project.ID, TaskID: task.ID, UserID: previous})
	return nil
}
