package allocation

import (
	"context"
	"testing"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

func TestCreateUser(t *testing.T) {
	h := newHarness(t)
	user, err := h.svc.CreateUser(context.Background(), admin, CreateUserInput{
		Username: " jdoe ",
		Email:    "jdoe@example.com",
		Role:     domain.RoleTeamMember,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Username != "jdoe" || !user.Active {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = h.svc.CreateUser(context.Background(), admin, CreateUserInput{Username: "JDOE", Role: domain.RoleTeamMember})
	expectCode(t, err, apperr.CodeUsernameTaken)

	_, err = h.svc.CreateUser(context.Background(), admin, CreateUserInput{Username: "x", Role: "OWNER"})
	expectCode(t, err, apperr.CodeValidation)
}

func TestDeactivateManagerWithLiveProjects(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")

	_, err := h.svc.DeactivateUser(context.Background(), admin, "pm")
	expectCode(t, err, apperr.CodeManagerHasProjects)

	if _, err := h.svc.CompleteProject(context.Background(), admin, project.ID); err != nil {
		t.Fatalf("CompleteProject returned error: %v", err)
	}
	if _, err := h.svc.DeactivateUser(context.Background(), admin, "pm"); err != nil {
		t.Fatalf("DeactivateUser returned error: %v", err)
	}

	_, err = h.svc.CreateProject(context.Background(), admin, CreateProjectInput{
		ManagerID: "pm", Name: "Gemini", StartDate: h.day(0), DueDate: h.day(3),
	})
	expectCode(t, err, apperr.CodeUserInactive)
}

func TestDeactivateTeamMemberUnassignsTasks(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject("m1")
	task := h.assign(h.newTask(sp.project.ID, "Design").ID, "m1")

	user, err := h.svc.DeactivateUser(context.Background(), admin, "m1")
	if err != nil {
		t.Fatalf("DeactivateUser returned error: %v", err)
	}
	if user.Active {
		t.Fatalf("expected user inactive")
	}
	stored := h.storedTask(task.ID)
	if stored.Assigned() || stored.Status != domain.StatusInProgress {
		t.Fatalf("expected task unassigned with status kept, got %+v", stored)
	}

	_, err = h.svc.AssignTask(context.Background(), admin, task.ID, "m1")
	expectCode(t, err, apperr.CodeUserInactive)

	_, err = h.svc.DeactivateUser(context.Background(), admin, "m1")
	expectCode(t, err, apperr.CodeUserAlreadyInactive)
	if _, err := h.svc.ActivateUser(context.Background(), admin, "m1"); err != nil {
		t.Fatalf("ActivateUser returned error: %v", err)
	}
	_, err = h.svc.ActivateUser(context.Background(), admin, "m1")
	expectCode(t, err, apperr.CodeUserAlreadyActive)
}

func TestListUsersFilters(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	h.seedUser("m1", domain.RoleTeamMember)
	h.seedUser("m2", domain.RoleTeamMember)

	members, err := h.svc.ListUsers(context.Background(), admin, repository.UserFilter{Role: domain.RoleTeamMember})
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 team members, got %d", len(members))
	}
}

func TestDeactivatedCallerIsRejected(t *testing.T) {
	h := newHarness(t)
	h.seedUser("admin2", domain.RoleAdmin)
	h.seedUser("m1", domain.RoleTeamMember)
	second := domain.Caller{UserID: "admin2", Role: domain.RoleAdmin}

	if _, err := h.svc.DeactivateUser(context.Background(), admin, "admin2"); err != nil {
		t.Fatalf("DeactivateUser returned error: %v", err)
	}

	_, err := h.svc.DeactivateUser(context.Background(), second, "m1")
	expectCode(t, err, apperr.CodeForbidden)
	_, err = h.svc.ListProjects(context.Background(), second, repository.ProjectFilter{})
	expectCode(t, err, apperr.CodeForbidden)

	if _, err := h.svc.ActivateUser(context.Background(), admin, "admin2"); err != nil {
		t.Fatalf("ActivateUser returned error: %v", err)
	}
	if _, err := h.svc.DeactivateUser(context.Background(), second, "m1"); err != nil {
		t.Fatalf("reactivated admin should be accepted: %v", err)
	}
}

func TestUnknownCallerIsRejected(t *testing.T) {
	h := newHarness(t)
	ghost := domain.Caller{UserID: "ghost", Role: domain.RoleAdmin}
	_, err := h.svc.CreateTeam(context.Background(), ghost, "Core")
	expectCode(t, err, apperr.CodeForbidden)
}
