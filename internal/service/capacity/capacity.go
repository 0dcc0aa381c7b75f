// Package capacity holds the allocation ceilings and role eligibility checks.
// Every function is a pure predicate over state loaded by the caller.
package capacity

import (
	"strconv"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

const (
	// MaxManagerProjects is the number of non-terminal projects one manager may lead.
	MaxManagerProjects = 5
	// MaxTeamProjects is the number of non-terminal projects one team may staff.
	MaxTeamProjects = 1
)

// CheckManagerCapacity fails when a manager already leads the maximum number
// of non-terminal projects.
func CheckManagerCapacity(managerID string, activeProjects int) error {
	if activeProjects < MaxManagerProjects {
		return nil
	}
	return apperr.WithMetadata(apperr.CodeManagerCapacityExceeded,
		"project manager already leads the maximum number of active projects",
		map[string]string{
			"manager_id": managerID,
			"limit":      strconv.Itoa(MaxManagerProjects),
		})
}

// CheckTeamCapacity fails when a team already staffs a non-terminal project.
func CheckTeamCapacity(teamID string, activeProjects int) error {
	if activeProjects < MaxTeamProjects {
		return nil
	}
	return apperr.WithMetadata(apperr.CodeTeamCapacityExceeded,
		"team already staffs an active project",
		map[string]string{
			"team_id": teamID,
			"limit":   strconv.Itoa(MaxTeamProjects),
		})
}

// CheckManager verifies user can lead projects.
func CheckManager(user domain.User) error {
	if !user.Active {
		return apperr.WithMetadata(apperr.CodeUserInactive, "project manager is inactive", map[string]string{"user_id": user.ID})
	}
	if user.Role != domain.RoleProjectManager {
		return apperr.WithMetadata(apperr.CodeUserNotProjectManager, "user is not a project manager", map[string]string{"user_id": user.ID})
	}
	return nil
}

// CheckTeamMemberRole verifies user is an active team member account.
func CheckTeamMemberRole(user domain.User) error {
	if !user.Active {
		return apperr.WithMetadata(apperr.CodeUserInactive, "user is inactive", map[string]string{"user_id": user.ID})
	}
	if user.Role != domain.RoleTeamMember {
		return apperr.WithMetadata(apperr.CodeUserNotTeamMember, "user is not a team member", map[string]string{"user_id": user.ID})
	}
	return nil
}

// CheckAssignee verifies user may work on tasks of teamID. membership is the
// user's active membership, nil when there is none.
func CheckAssignee(user domain.User, membership *domain.TeamMember, teamID string) error {
	if err := CheckTeamMemberRole(user); err != nil {
		return err
	}
	if membership == nil || !membership.Active || membership.TeamID != teamID {
		return apperr.WithMetadata(apperr.CodeUserNotInProjectTeam,
			"user is not a member of the project team",
			map[string]string{"user_id": user.ID, "team_id": teamID})
	}
	return nil
}

// CheckSoleMembership rejects users that already hold an active membership.
func CheckSoleMembership(user domain.User, existing *domain.TeamMember) error {
	if existing == nil || !existing.Active {
		return nil
	}
	return apperr.WithMetadata(apperr.CodeUserAlreadyInTeam,
		"user already belongs to a team",
		map[string]string{"user_id": user.ID, "team_id": existing.TeamID})
}

// CheckManagerDeactivation rejects deactivating a manager who still leads
// non-terminal projects.
func CheckManagerDeactivation(user domain.User, activeProjects int) error {
	if user.Role != domain.RoleProjectManager || activeProjects == 0 {
		return nil
	}
	return apperr.WithMetadata(apperr.CodeManagerHasProjects,
		"project manager still leads active projects",
		map[string]string{"user_id": user.ID, "active_projects": strconv.Itoa(activeProjects)})
}
