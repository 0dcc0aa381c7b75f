package allocation

import (
	"context"
	"testing"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

func TestManagerCapacityCeiling(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)

	var projects []*domain.Project
	for _, name := range []string{"P1", "P2", "P3", "P4", "P5"} {
		projects = append(projects, h.newProject("pm", name))
	}

	sixth := CreateProjectInput{ManagerID: "pm", Name: "P6", StartDate: h.day(0), DueDate: h.day(30)}
	_, err := h.svc.CreateProject(context.Background(), admin, sixth)
	expectCode(t, err, apperr.CodeManagerCapacityExceeded)

	if _, err := h.svc.CompleteProject(context.Background(), admin, projects[0].ID); err != nil {
		t.Fatalf("CompleteProject returned error: %v", err)
	}
	if _, err := h.svc.CreateProject(context.Background(), admin, sixth); err != nil {
		t.Fatalf("expected sixth project after completion, got %v", err)
	}
}

func TestCreateProjectChecksManager(t *testing.T) {
	h := newHarness(t)
	h.seedUser("member", domain.RoleTeamMember)

	in := CreateProjectInput{ManagerID: "member", Name: "Apollo", StartDate: h.day(0), DueDate: h.day(5)}
	_, err := h.svc.CreateProject(context.Background(), admin, in)
	expectCode(t, err, apperr.CodeUserNotProjectManager)

	in.ManagerID = "nobody"
	_, err = h.svc.CreateProject(context.Background(), admin, in)
	expectCode(t, err, apperr.CodeUserNotFound)
}

func TestCreateProjectValidatesInput(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)

	cases := []struct {
		name string
		in   CreateProjectInput
		want apperr.Code
	}{
		{"blank name", CreateProjectInput{ManagerID: "pm", Name: " ", StartDate: h.day(0), DueDate: h.day(1)}, apperr.CodeValidation},
		{"missing due", CreateProjectInput{ManagerID: "pm", Name: "A", StartDate: h.day(0)}, apperr.CodeValidation},
		{"past start", CreateProjectInput{ManagerID: "pm", Name: "A", StartDate: h.day(-1), DueDate: h.day(1)}, apperr.CodeStartDateInPast},
		{"reversed", CreateProjectInput{ManagerID: "pm", Name: "A", StartDate: h.day(3), DueDate: h.day(1)}, apperr.CodeInvalidDateRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.CreateProject(context.Background(), admin, tc.in)
			expectCode(t, err, tc.want)
		})
	}
}

func TestCreateProjectInitialState(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")

	if project.Status != domain.StatusNotStarted || project.Priority != domain.PriorityLow {
		t.Fatalf("unexpected initial state %s/%s", project.Status, project.Priority)
	}
	if project.HasTeam() {
		t.Fatalf("expected no team on creation")
	}
}

func TestProjectNamesAreSuffixed(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)

	h.newProject("pm", "Apollo")
	second := h.newProject("pm", "Apollo")
	third := h.newProject("pm", "APOLLO")

	if second.Name != "Apollo (1)" {
		t.Fatalf("expected Apollo (1), got %q", second.Name)
	}
	if third.Name != "APOLLO (2)" {
		t.Fatalf("expected APOLLO (2), got %q", third.Name)
	}
}

func TestTeamExclusivity(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	first := h.newProject("pm", "First")
	second := h.newProject("pm", "Second")
	team := h.newTeam("Core")
	spare := h.newTeam("Spare")

	if _, err := h.svc.AssignTeam(context.Background(), admin, first.ID, team.ID); err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}
	_, err := h.svc.AssignTeam(context.Background(), admin, second.ID, team.ID)
	expectCode(t, err, apperr.CodeTeamCapacityExceeded)

	if _, err := h.svc.AssignTeam(context.Background(), admin, second.ID, spare.ID); err != nil {
		t.Fatalf("AssignTeam spare returned error: %v", err)
	}
	_, err = h.svc.ReassignTeam(context.Background(), admin, second.ID, team.ID)
	expectCode(t, err, apperr.CodeTeamCapacityExceeded)

	if _, err := h.svc.CompleteProject(context.Background(), admin, first.ID); err != nil {
		t.Fatalf("CompleteProject returned error: %v", err)
	}
	updated, err := h.svc.ReassignTeam(context.Background(), admin, second.ID, team.ID)
	if err != nil {
		t.Fatalf("expected reassignment after completion, got %v", err)
	}
	if updated.TeamID != team.ID {
		t.Fatalf("expected team %s, got %s", team.ID, updated.TeamID)
	}
}

func TestAssignTeamGuards(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")
	team := h.newTeam("Core")
	other := h.newTeam("Other")

	if _, err := h.svc.DeactivateTeam(context.Background(), admin, other.ID); err != nil {
		t.Fatalf("DeactivateTeam returned error: %v", err)
	}
	_, err := h.svc.AssignTeam(context.Background(), admin, project.ID, other.ID)
	expectCode(t, err, apperr.CodeTeamInactive)

	_, err = h.svc.ReassignTeam(context.Background(), admin, project.ID, team.ID)
	expectCode(t, err, apperr.CodeProjectHasNoTeam)

	if _, err := h.svc.AssignTeam(context.Background(), admin, project.ID, team.ID); err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}
	_, err = h.svc.AssignTeam(context.Background(), admin, project.ID, team.ID)
	expectCode(t, err, apperr.CodeProjectHasTeam)
	_, err = h.svc.ReassignTeam(context.Background(), admin, project.ID, team.ID)
	expectCode(t, err, apperr.CodeProjectSameTeam)
}

func TestReassignTeamClearsOldTeamAssignees(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")
	oldTeam := h.newTeam("Old", "a1", "a2")
	newTeam := h.newTeam("New", "b1")
	if _, err := h.svc.AssignTeam(context.Background(), admin, project.ID, oldTeam.ID); err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}

	first := h.assign(h.newTask(project.ID, "first").ID, "a1")
	second := h.assign(h.newTask(project.ID, "second").ID, "a2")
	done := h.assign(h.newTask(project.ID, "done").ID, "a1")
	if _, err := h.svc.CompleteTask(context.Background(), admin, done.ID); err != nil {
		t.Fatalf("CompleteTask returned error: %v", err)
	}

	if _, err := h.svc.ReassignTeam(context.Background(), admin, project.ID, newTeam.ID); err != nil {
		t.Fatalf("ReassignTeam returned error: %v", err)
	}

	for _, id := range []string{first.ID, second.ID} {
		task := h.storedTask(id)
		if task.Assigned() {
			t.Fatalf("expected task %s to lose its assignee", id)
		}
		if task.Status != domain.StatusInProgress {
			t.Fatalf("expected task %s to stay IN_PROGRESS, got %s", id, task.Status)
		}
	}
	if got := h.storedTask(done.ID); got.AssigneeID != "a1" {
		t.Fatalf("expected completed task to keep its assignee, got %q", got.AssigneeID)
	}

	if _, err := h.svc.AssignTask(context.Background(), admin, first.ID, "b1"); err != nil {
		t.Fatalf("expected new team member to pick up orphaned task, got %v", err)
	}
}

func TestCompleteProjectRequiresFinishedTasks(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")
	team := h.newTeam("Core", "m1")
	if _, err := h.svc.AssignTeam(context.Background(), admin, project.ID, team.ID); err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}
	working := h.assign(h.newTask(project.ID, "working").ID, "m1")
	idle := h.newTask(project.ID, "idle")

	_, err := h.svc.CompleteProject(context.Background(), admin, project.ID)
	expectCode(t, err, apperr.CodeProjectTasksInProgress)

	member := domain.Caller{UserID: "m1", Role: domain.RoleTeamMember}
	if _, err := h.svc.CompleteTask(context.Background(), member, working.ID); err != nil {
		t.Fatalf("CompleteTask returned error: %v", err)
	}
	if _, err := h.svc.RemoveTask(context.Background(), admin, idle.ID); err != nil {
		t.Fatalf("RemoveTask returned error: %v", err)
	}

	completed, err := h.svc.CompleteProject(context.Background(), admin, project.ID)
	if err != nil {
		t.Fatalf("CompleteProject returned error: %v", err)
	}
	if completed.Status != domain.StatusCompleted || completed.Priority != domain.PriorityLow {
		t.Fatalf("unexpected completed state %s/%s", completed.Status, completed.Priority)
	}
	if completed.CompletionDate == nil || !completed.CompletionDate.Equal(h.day(0)) {
		t.Fatalf("expected completion date %v, got %v", h.day(0), completed.CompletionDate)
	}

	_, err = h.svc.UpdateProject(context.Background(), admin, project.ID, UpdateProjectInput{Description: ptr("late edit")})
	expectCode(t, err, apperr.CodeProjectTerminal)
}

func TestRemoveProjectCascades(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")
	team := h.newTeam("Core", "m1")
	if _, err := h.svc.AssignTeam(context.Background(), admin, project.ID, team.ID); err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}
	tasks := []*domain.Task{
		h.assign(h.newTask(project.ID, "one").ID, "m1"),
		h.newTask(project.ID, "two"),
		h.newTask(project.ID, "three"),
	}

	removed, err := h.svc.RemoveProject(context.Background(), admin, project.ID)
	if err != nil {
		t.Fatalf("RemoveProject returned error: %v", err)
	}
	if removed.Status != domain.StatusCancelled || removed.Priority != domain.PriorityLow {
		t.Fatalf("unexpected removed state %s/%s", removed.Status, removed.Priority)
	}
	for _, task := range tasks {
		stored := h.storedTask(task.ID)
		if stored.Status != domain.StatusCancelled || stored.Assigned() {
			t.Fatalf("expected task %s cancelled and unassigned, got %+v", task.ID, stored)
		}
	}

	assigned, err := h.svc.ListTasks(context.Background(), admin, repository.TaskFilter{AssigneeID: "m1"})
	if err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if len(assigned) != 0 {
		t.Fatalf("expected member to hold no tasks, got %d", len(assigned))
	}

	_, err = h.svc.RemoveProject(context.Background(), admin, project.ID)
	expectCode(t, err, apperr.CodeProjectAlreadyCancelled)

	other := h.newProject("pm", "Gemini")
	if _, err := h.svc.AssignTeam(context.Background(), admin, other.ID, team.ID); err != nil {
		t.Fatalf("expected team to be free after cancellation, got %v", err)
	}
}

func TestGetProjectRefreshesPriority(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project, err := h.svc.CreateProject(context.Background(), admin, CreateProjectInput{
		ManagerID: "pm",
		Name:      "Sprint",
		StartDate: h.day(1),
		DueDate:   h.day(6),
	})
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}

	h.clock.now = h.clock.now.AddDate(0, 0, 2)
	got, err := h.svc.GetProject(context.Background(), admin, project.ID)
	if err != nil {
		t.Fatalf("GetProject returned error: %v", err)
	}
	if got.Priority != domain.PriorityHigh {
		t.Fatalf("expected HIGH, got %s", got.Priority)
	}
	if stored := h.storedProject(project.ID); stored.Priority != domain.PriorityHigh {
		t.Fatalf("expected refreshed priority to be persisted, got %s", stored.Priority)
	}
}

func TestUpdateProject(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	h.newProject("pm", "Gemini")
	project := h.newProject("pm", "Apollo")

	updated, err := h.svc.UpdateProject(context.Background(), admin, project.ID, UpdateProjectInput{
		Name:      ptr("gemini"),
		StartDate: ptr(h.day(1)),
	})
	if err != nil {
		t.Fatalf("UpdateProject returned error: %v", err)
	}
	if updated.Name != "gemini (1)" {
		t.Fatalf("expected suffixed name, got %q", updated.Name)
	}
	if !updated.StartDate.Equal(h.day(1)) {
		t.Fatalf("expected start %v, got %v", h.day(1), updated.StartDate)
	}

	h.newTask(project.ID, "inside")
	_, err = h.svc.UpdateProject(context.Background(), admin, project.ID, UpdateProjectInput{DueDate: ptr(h.day(5))})
	expectCode(t, err, apperr.CodeDatesOutside)

	team := h.newTeam("Core", "m1")
	if _, err := h.svc.AssignTeam(context.Background(), admin, project.ID, team.ID); err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}
	tasks, err := h.svc.ListTasks(context.Background(), admin, repository.TaskFilter{ProjectID: project.ID})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ListTasks returned %d tasks, err %v", len(tasks), err)
	}
	h.assign(tasks[0].ID, "m1")

	_, err = h.svc.UpdateProject(context.Background(), admin, project.ID, UpdateProjectInput{StartDate: ptr(h.day(3))})
	expectCode(t, err, apperr.CodeProjectStartLocked)
}

func TestUpdateProjectManager(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	h.seedUser("pm2", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")

	_, err := h.svc.UpdateProjectManager(context.Background(), admin, project.ID, "pm")
	expectCode(t, err, apperr.CodeProjectSameManager)

	updated, err := h.svc.UpdateProjectManager(context.Background(), admin, project.ID, "pm2")
	if err != nil {
		t.Fatalf("UpdateProjectManager returned error: %v", err)
	}
	if updated.ManagerID != "pm2" {
		t.Fatalf("expected pm2, got %s", updated.ManagerID)
	}

	pm := domain.Caller{UserID: "pm", Role: domain.RoleProjectManager}
	_, err = h.svc.UpdateProjectManager(context.Background(), pm, project.ID, "pm")
	expectCode(t, err, apperr.CodeForbidden)
}

func TestProjectManagerAuthorization(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	h.seedUser("pm2", domain.RoleProjectManager)
	pm := domain.Caller{UserID: "pm", Role: domain.RoleProjectManager}
	other := domain.Caller{UserID: "pm2", Role: domain.RoleProjectManager}

	project, err := h.svc.CreateProject(context.Background(), pm, CreateProjectInput{
		ManagerID: "pm", Name: "Own", StartDate: h.day(0), DueDate: h.day(10),
	})
	if err != nil {
		t.Fatalf("manager creating own project: %v", err)
	}
	_, err = h.svc.CreateProject(context.Background(), pm, CreateProjectInput{
		ManagerID: "pm2", Name: "Theirs", StartDate: h.day(0), DueDate: h.day(10),
	})
	expectCode(t, err, apperr.CodeForbidden)

	team := h.newTeam("Core")
	_, err = h.svc.AssignTeam(context.Background(), other, project.ID, team.ID)
	expectCode(t, err, apperr.CodeForbidden)
	if _, err := h.svc.AssignTeam(context.Background(), pm, project.ID, team.ID); err != nil {
		t.Fatalf("manager assigning team: %v", err)
	}

	member := domain.Caller{UserID: "m1", Role: domain.RoleTeamMember}
	_, err = h.svc.CreateProject(context.Background(), member, CreateProjectInput{
		ManagerID: "m1", Name: "Nope", StartDate: h.day(0), DueDate: h.day(10),
	})
	expectCode(t, err, apperr.CodeForbidden)
}

func ptr[T any](v T) *T {
	return &v
}
