// Package allocation orchestrates project, task, team and user operations.
// Each operation loads current state, runs it through the lifecycle and
// capacity guards, and persists every touched entity in one transaction.
package allocation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/lifecycle"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/naming"
)

const tracerName = "github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"

// Notifier receives events after their transaction commits. Implementations
// must not block.
type Notifier interface {
	Publish(event domain.Event)
}

// Config carries optional collaborators. Zero values select defaults.
type Config struct {
	Now      func() time.Time
	NewID    func() string
	Notifier Notifier
	Tracer   trace.Tracer
}

// Service implements the allocation engine.
type Service struct {
	gateway  repository.Transactor
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	notifier Notifier
	tracer   trace.Tracer
	metrics  *metrics
}

// New constructs a Service.
func New(gateway repository.Transactor, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Service{
		gateway:  gateway,
		logger:   logger,
		now:      cfg.Now,
		newID:    cfg.NewID,
		notifier: cfg.Notifier,
		tracer:   cfg.Tracer,
		metrics:  newMetrics(),
	}
}

// txn is the per-operation unit of work.
type txn struct {
	store  repository.Store
	caller domain.Caller
	now    time.Time
	today  time.Time
	events []domain.Event
}

func (t *txn) emit(event domain.Event) {
	event.ActorID = t.caller.UserID
	event.OccurredAt = t.now
	t.events = append(t.events, event)
}

// run executes fn inside one gateway transaction. Errors are normalized to
// *apperr.Error; events are published only once the transaction committed.
func (s *Service) run(ctx context.Context, op string, caller domain.Caller, fn func(ctx context.Context, t *txn) error) error {
	ctx, span := s.tracer.Start(ctx, "allocation."+op, trace.WithAttributes(
		attribute.String("caller.id", caller.UserID),
		attribute.String("caller.role", string(caller.Role)),
	))
	defer span.End()

	started := time.Now()
	var events []domain.Event
	err := s.gateway.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		now := s.now().UTC()
		t := &txn{store: store, caller: caller, now: now, today: domain.DateOf(now)}
		if err := checkPrincipal(ctx, store, caller); err != nil {
			return err
		}
		if err := fn(ctx, t); err != nil {
			return err
		}
		events = t.events
		return nil
	})

	if err != nil {
		appErr := apperr.From(err)
		s.metrics.observe(op, string(appErr.Code), time.Since(started))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(appErr.Code))
		if appErr.Code == apperr.CodeInternal {
			s.logger.Error("allocation operation failed", "operation", op, "caller_id", caller.UserID, "error", err)
		} else {
			s.logger.Warn("allocation operation rejected", "operation", op, "caller_id", caller.UserID, "code", appErr.Code, "reason", appErr.Message)
		}
		return appErr
	}

	s.metrics.observe(op, "OK", time.Since(started))
	span.SetAttributes(attribute.Int("allocation.events", len(events)))
	s.publish(events)
	return nil
}

func (s *Service) publish(events []domain.Event) {
	if s.notifier == nil {
		return
	}
	for _, event := range events {
		s.notifier.Publish(event)
	}
}

func notFound(err error, code apperr.Code, key, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.WithMetadata(code, strings.ToLower(strings.ReplaceAll(string(code), "_", " ")), map[string]string{key: id})
	}
	return err
}

func writeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(apperr.CodeNameConflict, "name is already taken", err)
	case errors.Is(err, repository.ErrInvalidArgument):
		return apperr.Wrap(apperr.CodeValidation, "invalid input", err)
	default:
		return err
	}
}

func (t *txn) user(ctx context.Context, id string) (*domain.User, error) {
	user, err := t.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeUserNotFound, "user_id", id)
	}
	return user, nil
}

func (t *txn) team(ctx context.Context, id string) (*domain.Team, error) {
	team, err := t.store.GetTeamByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeTeamNotFound, "team_id", id)
	}
	return team, nil
}

func (t *txn) project(ctx context.Context, id string) (*domain.Project, error) {
	project, err := t.store.GetProjectByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.CodeProjectNotFound, "project_id", id)
	}
	return project, nil
}

func (t *txn) task(ctx context.Context, id string) (*domain.Task, *domain.Project, error) {
	task, err := t.store.GetTaskByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, apperr.CodeTaskNotFound, "task_id", id)
	}
	project, err := t.project(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

// activeMembership returns nil when the user belongs to no team.
func (t *txn) activeMembership(ctx context.Context, userID string) (*domain.TeamMember, error) {
	membership, err := t.store.GetActiveMembership(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return membership, err
}

// unassignInProgress clears the assignee of every in-progress task matching
// filter unless keep says otherwise. Task status is left as it was.
func (t *txn) unassignInProgress(ctx context.Context, filter repository.TaskFilter, keep func(domain.Task) bool) error {
	filter.Statuses = []domain.Status{domain.StatusInProgress}
	tasks, err := t.store.ListTasks(ctx, filter)
	if err != nil {
		return err
	}
	for i := range tasks {
		task := tasks[i]
		if !task.Assigned() || (keep != nil && keep(task)) {
			continue
		}
		previous := task.AssigneeID
		lifecycle.UnassignTask(&task, t.now)
		if err := t.store.UpdateTask(ctx, &task); err != nil {
			return writeErr(err)
		}
		t.emit(domain.Event{Type: domain.EventTaskUnassigned, ProjectID: task.ProjectID, TaskID: task.ID, UserID: previous})
	}
	return nil
}

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation(field, field+" is required")
	}
	if utf8.RuneCountInString(name) > naming.MaxLength {
		return "", apperr.Validation(field, field+" is too long")
	}
	return name, nil
}

func validateDates(start, due time.Time) error {
	if start.IsZero() {
		return apperr.Validation("startDate", "start date is required")
	}
	if due.IsZero() {
		return apperr.Validation("dueDate", "due date is required")
	}
	return nil
}

func resolveName(ctx context.Context, candidate string, exists naming.ExistsFunc) (string, error) {
	name, err := naming.Resolve(ctx, candidate, exists, naming.MaxLength)
	if errors.Is(err, naming.ErrEmptyName) {
		return "", apperr.Validation("name", "name is required")
	}
	return name, err
}
