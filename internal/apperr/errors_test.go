package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", New(CodeTeamCapacityExceeded, "team already staffs a project"))
	if !errors.Is(err, New(CodeTeamCapacityExceeded, "")) {
		t.Fatalf("expected errors.Is to match by code, got %v", err)
	}
	if errors.Is(err, New(CodeManagerCapacityExceeded, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestFromWrapsForeignErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")
	got := From(cause)
	if got.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", got.Code)
	}
	if got.Message != "internal error" {
		t.Fatalf("expected generic message, got %q", got.Message)
	}
	if !errors.Is(got, cause) {
		t.Fatal("expected cause to stay reachable through Unwrap")
	}
	if From(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestKindHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		kind Kind
		want int
	}{
		{CodeProjectNotFound, KindNotFound, http.StatusNotFound},
		{CodeProjectTasksInProgress, KindInvalidState, http.StatusConflict},
		{CodeManagerCapacityExceeded, KindCapacityExceeded, http.StatusUnprocessableEntity},
		{CodeUserNotTeamMember, KindIneligibleRole, http.StatusBadRequest},
		{CodeInvalidDateRange, KindValidation, http.StatusBadRequest},
		{CodeUserAlreadyActive, KindAlreadyActive, http.StatusConflict},
		{CodeUserAlreadyInactive, KindAlreadyInactive, http.StatusConflict},
		{CodeForbidden, KindForbidden, http.StatusForbidden},
		{Code("SOMETHING_ELSE"), KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.Kind(); got != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.code, tc.kind, got)
		}
		if got := tc.kind.HTTPStatus(); got != tc.want {
			t.Fatalf("%s: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}
