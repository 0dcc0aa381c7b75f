package allocation

import (
	"context"
	"errors"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

func forbidden(message string) error {
	return apperr.New(apperr.CodeForbidden, message)
}

func requireAuthenticated(caller domain.Caller) error {
	if caller.UserID == "" || !caller.Role.Valid() {
		return forbidden("authentication required")
	}
	return nil
}

// checkPrincipal rejects callers whose account is unknown or deactivated.
func checkPrincipal(ctx context.Context, store repository.Store, caller domain.Caller) error {
	if caller.UserID == "" {
		return nil
	}
	user, err := store.GetUserByID(ctx, caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return forbidden("unknown principal")
	}
	if err != nil {
		return err
	}
	if !user.Active {
		return apperr.WithMetadata(apperr.CodeForbidden, "caller account is inactive", map[string]string{"user_id": caller.UserID})
	}
	return nil
}

func requireAdmin(caller domain.Caller) error {
	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	if !caller.Is(domain.RoleAdmin) {
		return forbidden("admin role required")
	}
	return nil
}

// requireProjectManager admits admins and the manager of project.
func requireProjectManager(caller domain.Caller, project domain.Project) error {
	if err := requireAuthenticated(caller); err != nil {
		return err
	}
	if caller.Is(domain.RoleAdmin) {
		return nil
	}
	if caller.Is(domain.RoleProjectManager) && project.ManagerID == caller.UserID {
		return nil
	}
	return forbidden("caller does not manage this project")
}

// requireTaskCompleter also admits the task's assignee.
func requireTaskCompleter(caller domain.Caller, task domain.Task, project domain.Project) error {
	if caller.Is(domain.RoleTeamMember) && caller.UserID != "" && task.AssigneeID == caller.UserID {
		return nil
	}
	return requireProjectManager(caller, project)
}
