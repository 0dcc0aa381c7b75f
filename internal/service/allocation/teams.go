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

// CreateTeam registers an active team under a collision-free name.
func (s *Service) CreateTeam(ctx context.Context, caller domain.Caller, name string) (*domain.Team, error) {
	var out domain.Team
	err := s.run(ctx, "create_team", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		name, err := validateName("name", name)
		if err != nil {
			return err
		}
		name, err = resolveName(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
			return t.store.TeamNameExists(ctx, candidate, "")
		})
		if err != nil {
			return err
		}

		team := domain.Team{ID: s.newID(), Name: name, Active: true, CreatedAt: t.now, UpdatedAt: t.now}
		if err := t.store.CreateTeam(ctx, &team); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventTeamCreated, TeamID: team.ID})
		out = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", out.ID)
	return &out, nil
}

// UpdateTeam renames a team.
func (s *Service) UpdateTeam(ctx context.Context, caller domain.Caller, teamID, name string) (*domain.Team, error) {
	var out domain.Team
	err := s.run(ctx, "update_team", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}
		name, err := validateName("name", name)
		if err != nil {
			return err
		}
		if !strings.EqualFold(name, team.Name) {
			name, err = resolveName(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
				return t.store.TeamNameExists(ctx, candidate, team.ID)
			})
			if err != nil {
				return err
			}
		}

		team.Name = name
		team.UpdatedAt = t.now
		if err := t.store.UpdateTeam(ctx, team); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventTeamUpdated, TeamID: team.ID})
		out = *team
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team updated", "team_id", out.ID)
	return &out, nil
}

// GetTeam returns a team.
func (s *Service) GetTeam(ctx context.Context, caller domain.Caller, teamID string) (*domain.Team, error) {
	var out domain.Team
	err := s.run(ctx, "get_team", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}
		out = *team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTeams returns filtered teams.
func (s *Service) ListTeams(ctx context.Context, caller domain.Caller, filter repository.TeamFilter) ([]domain.Team, error) {
	var out []domain.Team
	err := s.run(ctx, "list_teams", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		teams, err := t.store.ListTeams(ctx, filter)
		if err != nil {
			return err
		}
		out = teams
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateTeam retires a team that staffs no live project.
func (s *Service) DeactivateTeam(ctx context.Context, caller domain.Caller, teamID string) (*domain.Team, error) {
	return s.toggleTeam(ctx, caller, teamID, false)
}

// ActivateTeam reopens a retired team.
func (s *Service) ActivateTeam(ctx context.Context, caller domain.Caller, teamID string) (*domain.Team, error) {
	return s.toggleTeam(ctx, caller, teamID, true)
}

func (s *Service) toggleTeam(ctx context.Context, caller domain.Caller, teamID string, active bool) (*domain.Team, error) {
	op, event := "deactivate_team", domain.EventTeamDeactivated
	if active {
		op, event = "activate_team", domain.EventTeamActivated
	}

	var out domain.Team
	err := s.run(ctx, op, caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}
		switch {
		case active && team.Active:
			return apperr.WithMetadata(apperr.CodeTeamAlreadyActive, "team is already active", map[string]string{"team_id": team.ID})
		case !active && !team.Active:
			return apperr.WithMetadata(apperr.CodeTeamAlreadyInactive, "team is already inactive", map[string]string{"team_id": team.ID})
		}
		if !active {
			staffed, err := t.store.CountActiveProjectsByTeam(ctx, team.ID)
			if err != nil {
				return err
			}
			if staffed > 0 {
				return apperr.WithMetadata(apperr.CodeTeamStaffsProject, "team still staffs an active project", map[string]string{"team_id": team.ID})
			}
		}

		team.Active = active
		team.UpdatedAt = t.now
		if err := t.store.UpdateTeam(ctx, team); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: event, TeamID: team.ID})
		out = *team
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team activation changed", "team_id", out.ID, "active", out.Active)
	return &out, nil
}

// AddTeamMembers enrols users who hold no other active membership. The
// batch is all-or-nothing.
func (s *Service) AddTeamMembers(ctx context.Context, caller domain.Caller, teamID string, userIDs []string) ([]domain.TeamMember, error) {
	var out []domain.TeamMember
	err := s.run(ctx, "add_team_members", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return apperr.Validation("userIds", "at least one user is required")
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}
		if !team.Active {
			return apperr.WithMetadata(apperr.CodeTeamInactive, "team is inactive", map[string]string{"team_id": team.ID})
		}

		seen := make(map[string]struct{}, len(userIDs))
		for _, userID := range userIDs {
			if _, dup := seen[userID]; dup {
				continue
			}
			seen[userID] = struct{}{}

			user, err := t.user(ctx, userID)
			if err != nil {
				return err
			}
			if err := capacity.CheckTeamMemberRole(*user); err != nil {
				return err
			}
			existing, err := t.activeMembership(ctx, user.ID)
			if err != nil {
				return err
			}
			if err := capacity.CheckSoleMembership(*user, existing); err != nil {
				return err
			}

			member := domain.TeamMember{ID: s.newID(), TeamID: team.ID, UserID: user.ID, JoinedAt: t.today, Active: true}
			if err := t.store.CreateMember(ctx, &member); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return apperr.WithMetadata(apperr.CodeUserAlreadyInTeam, "user already belongs to a team", map[string]string{"user_id": user.ID})
				}
				return writeErr(err)
			}
			t.emit(domain.Event{Type: domain.EventTeamMemberAdded, TeamID: team.ID, UserID: user.ID})
			out = append(out, member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team members added", "team_id", teamID, "count", len(out))
	return out, nil
}

// RemoveTeamMembers ends memberships and frees the in-progress tasks the
// departing users held.
func (s *Service) RemoveTeamMembers(ctx context.Context, caller domain.Caller, teamID string, userIDs []string) ([]domain.TeamMember, error) {
	var out []domain.TeamMember
	err := s.run(ctx, "remove_team_members", caller, func(ctx context.Context, t *txn) error {
		if err := requireAdmin(caller); err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return apperr.Validation("userIds", "at least one user is required")
		}
		team, err := t.team(ctx, teamID)
		if err != nil {
			return err
		}

		seen := make(map[string]struct{}, len(userIDs))
		for _, userID := range userIDs {
			if _, dup := seen[userID]; dup {
				continue
			}
			seen[userID] = struct{}{}

			membership, err := t.activeMembership(ctx, userID)
			if err != nil {
				return err
			}
			if membership == nil || membership.TeamID != team.ID {
				return apperr.WithMetadata(apperr.CodeTeamMemberNotFound, "user is not an active member of this team",
					map[string]string{"team_id": team.ID, "user_id": userID})
			}

			removed := t.today
			membership.Active = false
			membership.RemovedAt = &removed
			if err := t.store.UpdateMember(ctx, membership); err != nil {
				return writeErr(err)
			}
			if err := t.unassignInProgress(ctx, repository.TaskFilter{AssigneeID: userID}, nil); err != nil {
				return err
			}
			t.emit(domain.Event{Type: domain.EventTeamMemberRemoved, TeamID: team.ID, UserID: userID})
			out = append(out, *membership)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team members removed", "team_id", teamID, "count", len(out))
	return out, nil
}

// ListTeamMembers returns membership rows, optionally only the active ones.
func (s *Service) ListTeamMembers(ctx context.Context, caller domain.Caller, teamID string, activeOnly bool) ([]domain.TeamMember, error) {
	var out []domain.TeamMember
	err := s.run(ctx, "list_team_members", caller, func(ctx context.Context, t *txn) error {
		if err := requireAuthenticated(caller); err != nil {
			return err
		}
		if _, err := t.team(ctx, teamID); err != nil {
			return err
		}
		members, err := t.store.ListMembers(ctx, teamID, activeOnly)
		if err != nil {
			return err
		}
		out = members
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
