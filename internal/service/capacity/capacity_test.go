package capacity

import (
	"testing"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

func TestManagerCapacityCeiling(t *testing.T) {
	for count := 0; count < MaxManagerProjects; count++ {
		if err := CheckManagerCapacity("m1", count); err != nil {
			t.Fatalf("count %d: unexpected error %v", count, err)
		}
	}
	err := CheckManagerCapacity("m1", MaxManagerProjects)
	if apperr.CodeOf(err) != apperr.CodeManagerCapacityExceeded {
		t.Fatalf("expected manager capacity error, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindCapacityExceeded {
		t.Fatalf("expected capacity kind, got %s", apperr.KindOf(err))
	}
}

func TestTeamCapacityCeiling(t *testing.T) {
	if err := CheckTeamCapacity("t1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apperr.CodeOf(CheckTeamCapacity("t1", 1)) != apperr.CodeTeamCapacityExceeded {
		t.Fatalf("expected team capacity error")
	}
}

func TestCheckManager(t *testing.T) {
	cases := []struct {
		name string
		user domain.User
		want apperr.Code
	}{
		{"eligible", domain.User{ID: "u", Role: domain.RoleProjectManager, Active: true}, ""},
		{"inactive", domain.User{ID: "u", Role: domain.RoleProjectManager}, apperr.CodeUserInactive},
		{"wrong role", domain.User{ID: "u", Role: domain.RoleTeamMember, Active: true}, apperr.CodeUserNotProjectManager},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckManager(tc.user)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if apperr.CodeOf(err) != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestCheckAssignee(t *testing.T) {
	member := domain.User{ID: "u", Role: domain.RoleTeamMember, Active: true}
	active := &domain.TeamMember{TeamID: "t1", UserID: "u", Active: true}

	if err := CheckAssignee(member, active, "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apperr.CodeOf(CheckAssignee(member, active, "t2")) != apperr.CodeUserNotInProjectTeam {
		t.Fatalf("expected other-team membership to be rejected")
	}
	if apperr.CodeOf(CheckAssignee(member, nil, "t1")) != apperr.CodeUserNotInProjectTeam {
		t.Fatalf("expected missing membership to be rejected")
	}
	manager := domain.User{ID: "m", Role: domain.RoleProjectManager, Active: true}
	if apperr.CodeOf(CheckAssignee(manager, active, "t1")) != apperr.CodeUserNotTeamMember {
		t.Fatalf("expected wrong role to be rejected")
	}
	inactive := member
	inactive.Active = false
	if apperr.CodeOf(CheckAssignee(inactive, active, "t1")) != apperr.CodeUserInactive {
		t.Fatalf("expected inactive user to be rejected")
	}
}

func TestCheckSoleMembership(t *testing.T) {
	user := domain.User{ID: "u"}
	if err := CheckSoleMembership(user, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	existing := &domain.TeamMember{TeamID: "t1", Active: true}
	if apperr.CodeOf(CheckSoleMembership(user, existing)) != apperr.CodeUserAlreadyInTeam {
		t.Fatalf("expected existing membership to be rejected")
	}
}

func TestCheckManagerDeactivation(t *testing.T) {
	manager := domain.User{ID: "m", Role: domain.RoleProjectManager}
	if err := CheckManagerDeactivation(manager, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if apperr.CodeOf(CheckManagerDeactivation(manager, 2)) != apperr.CodeManagerHasProjects {
		t.Fatalf("expected active projects to block deactivation")
	}
	member := domain.User{ID: "u", Role: domain.RoleTeamMember}
	if err := CheckManagerDeactivation(member, 3); err != nil {
		t.Fatalf("team member should not be blocked: %v", err)
	}
}
