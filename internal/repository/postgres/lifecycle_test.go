package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/esetaro2/progresso-backend-sub000/internal/app/migrate"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository/postgres"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"
)

// Runs against a real database only when DATABASE_URL is set.
func TestProjectLifecycleOnPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := migrate.New(pool, dsn, log)
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	if err := runner.Ensure(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	repo := postgres.New(pool)
	run := uuid.NewString()[:8]
	admin := domain.Caller{UserID: "admin-" + run, Role: domain.RoleAdmin}
	err = repo.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		now := time.Now().UTC()
		return store.CreateUser(ctx, &domain.User{
			ID: admin.UserID, Username: admin.UserID, Role: domain.RoleAdmin,
			Active: true, CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	svc := allocation.New(repo, log, allocation.Config{})
	pm, err := svc.CreateUser(ctx, admin, allocation.CreateUserInput{Username: "pm-" + run, Role: domain.RoleProjectManager})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	member, err := svc.CreateUser(ctx, admin, allocation.CreateUserInput{Username: "tm-" + run, Role: domain.RoleTeamMember})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	team, err := svc.CreateTeam(ctx, admin, "team-"+run)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := svc.AddTeamMembers(ctx, admin, team.ID, []string{member.ID}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	today := domain.DateOf(time.Now())
	project, err := svc.CreateProject(ctx, admin, allocation.CreateProjectInput{
		ManagerID: pm.ID,
		Name:      "project-" + run,
		StartDate: today,
		DueDate:   today.AddDate(0, 0, 30),
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := svc.AssignTeam(ctx, admin, project.ID, team.ID); err != nil {
		t.Fatalf("assign team: %v", err)
	}
	task, err := svc.CreateTask(ctx, admin, allocation.CreateTaskInput{
		ProjectID: project.ID,
		Name:      "task-" + run,
		Priority:  domain.PriorityMedium,
		StartDate: today.AddDate(0, 0, 1),
		DueDate:   today.AddDate(0, 0, 10),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := svc.AssignTask(ctx, admin, task.ID, member.ID); err != nil {
		t.Fatalf("assign task: %v", err)
	}

	done, err := svc.CompleteTask(ctx, domain.Caller{UserID: member.ID, Role: domain.RoleTeamMember}, task.ID)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.Priority != domain.PriorityCompleted {
		t.Fatalf("unexpected completed task %+v", done)
	}

	finished, err := svc.CompleteProject(ctx, admin, project.ID)
	if err != nil {
		t.Fatalf("complete project: %v", err)
	}
	if finished.Status != domain.StatusCompleted || finished.CompletionDate == nil {
		t.Fatalf("unexpected completed project %+v", finished)
	}

	stored, err := svc.GetTask(ctx, admin, task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if stored.Priority != domain.PriorityCompleted {
		t.Fatalf("expected persisted COMPLETED priority, got %s", stored.Priority)
	}
}
