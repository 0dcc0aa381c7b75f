package allocation

import (
	"context"
	"errors"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/capacity"
)

// CreateUser registers an active account.
func (s *Service) CreateUser(ctx context.Context, caller domain.Caller, in CreateUserInput) (*domain.User, error) {
	var out domain.User
	err := s.run(ctx, "create_user", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		username := strings.TrimSpace(in.Username)
		if username == "" {
			return apperr.Validation("username", "username is required")
		}
		if !in.Role.Valid() {
			return apperr.Validation("role", "role must be ADMIN, PROJECT_MANAGER or TEAM_MEMBER")
		}
		taken, err := t.store.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return apperr.WithMetadata(apperr.CodeUsernameTaken, "username is already taken", map[string]string{"username": username})
		}

		user := domain.User{
			ID:        s.newID(),
			Username:  username,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Email:     strings.TrimSpace(in.Email),
			Role:      in.Role,
			Active:    true,
			CreatedAt: t.now,
			UpdatedAt: t.now,
		}
		if err := t.store.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperr.WithMetadata(apperr.CodeUsernameTaken, "username is already taken", map[string]string{"username": username})
			}
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventUserCreated, UserID: user.ID})
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", out.ID, "role", out.Role)
	return &out, nil
}

// GetUser returns a user.
func (s *Service) GetUser(ctx context.Context, caller domain.Caller, userID string) (*domain.User, error) {
	var out domain.User
	err := s.run(ctx, "get_user", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		user, err := t.user(ctx, userID)
		if err != nil {
			return err
		}
		out = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns filtered users.
func (s *Service) ListUsers(ctx context.Context, caller domain.Caller, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	err := s.run(ctx, "list_users", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		users, err := t.store.ListUsers(ctx, filter)
		if err != nil {
			return err
		}
		out = users
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateUser disables an account. Managers must hand off their live
// projects first; team members lose their in-progress assignments.
func (s *Service) DeactivateUser(ctx context.Context, caller domain.Caller, userID string) (*domain.User, error) {
	var out domain.User
	err := s.run(ctx, "deactivate_user", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		user, err := t.user(ctx, userID)
		if err != nil {
			return err
		}
		if !user.Active {
			return apperr.WithMetadata(apperr.CodeUserAlreadyInactive, "user is already inactive", map[string]string{"user_id": user.ID})
		}

		switch user.Role {
		case domain.RoleProjectManager:
			active, err := t.store.CountActiveProjectsByManager(ctx, user.ID)
			if err != nil {
				return err
			}
			if err := capacity.CheckManagerDeactivation(*user, active); err != nil {
				return err
			}
		case domain.RoleTeamMember:
			if err := t.unassignInProgress(ctx, repository.TaskFilter{AssigneeID: user.ID}, nil); err != nil {
				return err
			}
		}

		user.Active = false
		user.UpdatedAt = t.now
		if err := t.store.UpdateUser(ctx, user); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventUserDeactivated, UserID: user.ID})
		out = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user deactivated", "user_id", out.ID)
	return &out, nil
}

// ActivateUser re-enables an account.
func (s *Service) ActivateUser(ctx context.Context, caller domain.Caller, userID string) (*domain.User, error) {
	var out domain.User
	err := s.run(ctx, "activate_user", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		user, err := t.user(ctx, userID)
		if err != nil {
			return err
		}
		if user.Active {
			return apperr.WithMetadata(apperr.CodeUserAlreadyActive, "user is already active", map[string]string{"user_id": user.ID})
		}

		user.Active = true
		user.UpdatedAt = t.now
		if err := t.store.UpdateUser(ctx, user); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventUserActivated, UserID: user.ID})
		out = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user activated", "user_id", out.ID)
	return &out, nil
}
