package allocation

import (
	"context"
	"testing"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

type staffedProject struct {
	project *domain.Project
	team    *domain.Team
}

func (h *harness) staffedProject(members ...string) staffedProject {
	h.t.Helper()
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Apollo")
	team := h.newTeam("Core", members...)
	if _, err := h.svc.AssignTeam(context.Background(), admin, project.ID, team.ID); err != nil {
		h.t.Fatalf("assign team: %v", err)
	}
	return staffedProject{project: project, team: team}
}

func TestCreateTaskValidatesAgainstProject(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject()

	cases := []struct {
		name string
		in   CreateTaskInput
		want apperr.Code
	}{
		{"before project", CreateTaskInput{ProjectID: sp.project.ID, Name: "t", StartDate: h.day(-1), DueDate: h.day(3)}, apperr.CodeDatesOutside},
		{"after project", CreateTaskInput{ProjectID: sp.project.ID, Name: "t", StartDate: h.day(1), DueDate: h.day(61)}, apperr.CodeDatesOutside},
		{"reversed", CreateTaskInput{ProjectID: sp.project.ID, Name: "t", StartDate: h.day(5), DueDate: h.day(3)}, apperr.CodeInvalidDateRange},
		{"completed marker", CreateTaskInput{ProjectID: sp.project.ID, Name: "t", Priority: domain.PriorityCompleted, StartDate: h.day(1), DueDate: h.day(3)}, apperr.CodeValidation},
		{"missing project", CreateTaskInput{ProjectID: "nope", Name: "t", StartDate: h.day(1), DueDate: h.day(3)}, apperr.CodeProjectNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.CreateTask(context.Background(), admin, tc.in)
			expectCode(t, err, tc.want)
		})
	}
}

func TestTaskNamesAreScopedPerProject(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject()
	other := h.newProject("pm", "Gemini")

	h.newTask(sp.project.ID, "Design")
	second := h.newTask(sp.project.ID, "design")
	elsewhere := h.newTask(other.ID, "Design")

	if second.Name != "design (1)" {
		t.Fatalf("expected design (1), got %q", second.Name)
	}
	if elsewhere.Name != "Design" {
		t.Fatalf("expected name to be free in another project, got %q", elsewhere.Name)
	}
}

func TestCreateTaskDoesNotStartProject(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject()
	task := h.newTask(sp.project.ID, "Design")

	if task.Status != domain.StatusNotStarted || task.Assigned() {
		t.Fatalf("unexpected new task state %+v", task)
	}
	if got := h.storedProject(sp.project.ID); got.Status != domain.StatusNotStarted {
		t.Fatalf("expected project to stay NOT_STARTED, got %s", got.Status)
	}
}

func TestAssignTaskStartsTaskAndProject(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject("m1")
	task := h.assign(h.newTask(sp.project.ID, "Design").ID, "m1")

	if task.Status != domain.StatusInProgress || task.AssigneeID != "m1" {
		t.Fatalf("unexpected assigned task %+v", task)
	}
	if got := h.storedProject(sp.project.ID); got.Status != domain.StatusInProgress {
		t.Fatalf("expected project IN_PROGRESS, got %s", got.Status)
	}

	_, err := h.svc.AssignTask(context.Background(), admin, task.ID, "m1")
	expectCode(t, err, apperr.CodeTaskAlreadyAssigned)
}

func TestAssignTaskEligibility(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject("m1")
	h.newTeam("Elsewhere", "x1")
	h.seedUser("loner", domain.RoleTeamMember)
	h.seedUser("pm2", domain.RoleProjectManager)
	task := h.newTask(sp.project.ID, "Design")

	cases := []struct {
		user string
		want apperr.Code
	}{
		{"x1", apperr.CodeUserNotInProjectTeam},
		{"loner", apperr.CodeUserNotInProjectTeam},
		{"pm2", apperr.CodeUserNotTeamMember},
		{"ghost", apperr.CodeUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.user, func(t *testing.T) {
			_, err := h.svc.AssignTask(context.Background(), admin, task.ID, tc.user)
			expectCode(t, err, tc.want)
		})
	}
}

func TestAssignTaskRequiresProjectTeam(t *testing.T) {
	h := newHarness(t)
	h.seedUser("pm", domain.RoleProjectManager)
	project := h.newProject("pm", "Bare")
	h.newTeam("Core", "m1")
	task := h.newTask(project.ID, "Design")

	_, err := h.svc.AssignTask(context.Background(), admin, task.ID, "m1")
	expectCode(t, err, apperr.CodeProjectHasNoTeam)
}

func TestReassignTask(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject("m1", "m2")
	unassigned := h.newTask(sp.project.ID, "Spare")
	task := h.assign(h.newTask(sp.project.ID, "Design").ID, "m1")

	_, err := h.svc.ReassignTask(context.Background(), admin, task.ID, "m1")
	expectCode(t, err, apperr.CodeTaskSameAssignee)
	_, err = h.svc.ReassignTask(context.Background(), admin, unassigned.ID, "m2")
	expectCode(t, err, apperr.CodeTaskNotAssigned)

	moved, err := h.svc.ReassignTask(context.Background(), admin, task.ID, "m2")
	if err != nil {
		t.Fatalf("ReassignTask returned error: %v", err)
	}
	if moved.AssigneeID != "m2" || moved.Status != domain.StatusInProgress {
		t.Fatalf("unexpected reassigned task %+v", moved)
	}
}

func TestCompleteTask(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject("m1", "m2")
	task := h.assign(h.newTask(sp.project.ID, "Design").ID, "m1")

	stranger := domain.Caller{UserID: "m2", Role: domain.RoleTeamMember}
	_, err := h.svc.CompleteTask(context.Background(), stranger, task.ID)
	expectCode(t, err, apperr.CodeForbidden)

	owner := domain.Caller{UserID: "m1", Role: domain.RoleTeamMember}
	done, err := h.svc.CompleteTask(context.Background(), owner, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask returned error: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.Priority != domain.PriorityCompleted {
		t.Fatalf("unexpected completed task %+v", done)
	}
	if done.CompletionDate == nil || !done.CompletionDate.Equal(h.day(0)) {
		t.Fatalf("expected completion today, got %v", done.CompletionDate)
	}

	_, err = h.svc.CompleteTask(context.Background(), owner, task.ID)
	expectCode(t, err, apperr.CodeTaskAlreadyCompleted)
}

func TestRemoveTask(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject("m1")
	task := h.assign(h.newTask(sp.project.ID, "Design").ID, "m1")

	removed, err := h.svc.RemoveTask(context.Background(), admin, task.ID)
	if err != nil {
		t.Fatalf("RemoveTask returned error: %v", err)
	}
	if removed.Status != domain.StatusCancelled || removed.Assigned() {
		t.Fatalf("unexpected removed task %+v", removed)
	}
	if removed.ProjectID != sp.project.ID {
		t.Fatalf("expected task to keep its project reference")
	}

	_, err = h.svc.RemoveTask(context.Background(), admin, task.ID)
	expectCode(t, err, apperr.CodeTaskTerminal)
}

func TestUpdateTask(t *testing.T) {
	h := newHarness(t)
	sp := h.staffedProject()
	h.newTask(sp.project.ID, "Build")
	task := h.newTask(sp.project.ID, "Design")

	high := domain.PriorityHigh
	updated, err := h.svc.UpdateTask(context.Background(), admin, task.ID, UpdateTaskInput{
		Name:     ptr("build"),
		Priority: &high,
		DueDate:  ptr(h.day(20)),
	})
	if err != nil {
		t.Fatalf("UpdateTask returned error: %v", err)
	}
	if updated.Name != "build (1)" || updated.Priority != domain.PriorityHigh || !updated.DueDate.Equal(h.day(20)) {
		t.Fatalf("unexpected updated task %+v", updated)
	}

	_, err = h.svc.UpdateTask(context.Background(), admin, task.ID, UpdateTaskInput{DueDate: ptr(h.day(90))})
	expectCode(t, err, apperr.CodeDatesOutside)

	outsider := domain.Caller{UserID: "pm2", Role: domain.RoleProjectManager}
	_, err = h.svc.UpdateTask(context.Background(), outsider, task.ID, UpdateTaskInput{Description: ptr("x")})
	expectCode(t, err, apperr.CodeForbidden)
}
