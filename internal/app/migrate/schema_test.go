package migrate

import (
	"regexp"
	"strings"
	"testing"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

var (
	createTablePattern = regexp.MustCompile(`(?s)CREATE TABLE (\w+) \((.*?)\n\);`)
	checkInPattern     = regexp.MustCompile(`(?m)^\s*(\w+) TEXT NOT NULL CHECK \(\w+ IN \(([^)]*)\)\)`)
)

// schemaChecks maps table -> column -> allowed values of its IN (...) check.
func schemaChecks(t *testing.T) map[string]map[string]map[string]bool {
	t.Helper()
	raw, err := migrationsFS.ReadFile(migrationsDir + "/00001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	up := string(raw)
	if idx := strings.Index(up, "-- +goose Down"); idx >= 0 {
		up = up[:idx]
	}

	out := make(map[string]map[string]map[string]bool)
	for _, table := range createTablePattern.FindAllStringSubmatch(up, -1) {
		columns := make(map[string]map[string]bool)
		for _, check := range checkInPattern.FindAllStringSubmatch(table[2], -1) {
			allowed := make(map[string]bool)
			for _, value := range strings.Split(check[2], ",") {
				allowed[strings.Trim(strings.TrimSpace(value), "'")] = true
			}
			columns[check[1]] = allowed
		}
		out[table[1]] = columns
	}
	return out
}

func expectAllowed(t *testing.T, checks map[string]map[string]map[string]bool, table, column string, values ...string) {
	t.Helper()
	allowed, ok := checks[table][column]
	if !ok {
		t.Fatalf("%s.%s has no CHECK list", table, column)
	}
	for _, value := range values {
		if !allowed[value] {
			t.Fatalf("%s.%s CHECK rejects %q", table, column, value)
		}
	}
}

func TestSchemaAcceptsLifecycleStatuses(t *testing.T) {
	checks := schemaChecks(t)
	statuses := []string{
		string(domain.StatusNotStarted),
		string(domain.StatusInProgress),
		string(domain.StatusCompleted),
		string(domain.StatusCancelled),
	}
	expectAllowed(t, checks, "projects", "status", statuses...)
	expectAllowed(t, checks, "tasks", "status", statuses...)
}

func TestSchemaAcceptsPriorities(t *testing.T) {
	checks := schemaChecks(t)
	assignable := []string{string(domain.PriorityLow), string(domain.PriorityMedium), string(domain.PriorityHigh)}
	expectAllowed(t, checks, "projects", "priority", assignable...)
	expectAllowed(t, checks, "tasks", "priority", assignable...)
	expectAllowed(t, checks, "tasks", "priority", string(domain.PriorityCompleted))

	if checks["projects"]["priority"][string(domain.PriorityCompleted)] {
		t.Fatalf("projects.priority should not accept %q", domain.PriorityCompleted)
	}
}

func TestSchemaAcceptsRoles(t *testing.T) {
	checks := schemaChecks(t)
	expectAllowed(t, checks, "users", "role",
		string(domain.RoleAdmin),
		string(domain.RoleProjectManager),
		string(domain.RoleTeamMember),
	)
}
