// Package apperr defines the allocation engine's structured error taxonomy.
package apperr

import "net/http"

// Code is a stable machine-readable error code.
type Code string

const (
	CodeInternal Code = "INTERNAL"

	// Lookups
	CodeProjectNotFound    Code = "PROJECT_NOT_FOUND"
	CodeTaskNotFound       Code = "TASK_NOT_FOUND"
	CodeTeamNotFound       Code = "TEAM_NOT_FOUND"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeTeamMemberNotFound Code = "TEAM_MEMBER_NOT_FOUND"

	// Lifecycle
	CodeProjectTerminal         Code = "PROJECT_TERMINAL"
	CodeProjectAlreadyCancelled Code = "PROJECT_ALREADY_CANCELLED"
	CodeProjectHasTeam          Code = "PROJECT_HAS_TEAM"
	CodeProjectHasNoTeam        Code = "PROJECT_HAS_NO_TEAM"
	CodeProjectStartLocked      Code = "PROJECT_START_DATE_LOCKED"
	CodeProjectTasksInProgress  Code = "PROJECT_TASKS_IN_PROGRESS"
	CodeProjectSameTeam         Code = "PROJECT_SAME_TEAM"
	CodeProjectSameManager      Code = "PROJECT_SAME_MANAGER"
	CodeTaskTerminal            Code = "TASK_TERMINAL"
	CodeTaskAlreadyCompleted    Code = "TASK_ALREADY_COMPLETED"
	CodeTaskAlreadyAssigned     Code = "TASK_ALREADY_ASSIGNED"
	CodeTaskNotAssigned         Code = "TASK_NOT_ASSIGNED"
	CodeTaskSameAssignee        Code = "TASK_SAME_ASSIGNEE"
	CodeTeamInactive            Code = "TEAM_INACTIVE"
	CodeTeamStaffsProject       Code = "TEAM_STAFFS_PROJECT"
	CodeUserInactive            Code = "USER_INACTIVE"
	CodeUserAlreadyInTeam       Code = "USER_ALREADY_IN_TEAM"
	CodeManagerHasProjects      Code = "MANAGER_HAS_ACTIVE_PROJECTS"
	CodeNameConflict            Code = "NAME_CONFLICT"

	// Ceilings
	CodeManagerCapacityExceeded Code = "MANAGER_CAPACITY_EXCEEDED"
	CodeTeamCapacityExceeded    Code = "TEAM_CAPACITY_EXCEEDED"

	// Eligibility
	CodeUserNotProjectManager Code = "USER_NOT_PROJECT_MANAGER"
	CodeUserNotTeamMember     Code = "USER_NOT_TEAM_MEMBER"
	CodeUserNotInProjectTeam  Code = "USER_NOT_IN_PROJECT_TEAM"

	// Input
	CodeValidation       Code = "VALIDATION_FAILED"
	CodeInvalidDateRange Code = "INVALID_DATE_RANGE"
	CodeStartDateInPast  Code = "START_DATE_IN_PAST"
	CodeDatesOutside     Code = "DATES_OUTSIDE_PROJECT"
	CodeImmutableField   Code = "IMMUTABLE_FIELD"
	CodeUsernameTaken    Code = "USERNAME_TAKEN"

	// Activation toggles
	CodeUserAlreadyActive   Code = "USER_ALREADY_ACTIVE"
	CodeUserAlreadyInactive Code = "USER_ALREADY_INACTIVE"
	CodeTeamAlreadyActive   Code = "TEAM_ALREADY_ACTIVE"
	CodeTeamAlreadyInactive Code = "TEAM_ALREADY_INACTIVE"

	CodeForbidden Code = "FORBIDDEN"
)

// Kind groups codes by how a caller should react to them.
type Kind string

const (
	KindInternal         Kind = "INTERNAL"
	KindNotFound         Kind = "NOT_FOUND"
	KindInvalidState     Kind = "INVALID_STATE"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindIneligibleRole   Kind = "INELIGIBLE_ROLE"
	KindValidation       Kind = "VALIDATION"
	KindAlreadyActive    Kind = "ALREADY_ACTIVE"
	KindAlreadyInactive  Kind = "ALREADY_INACTIVE"
	KindForbidden        Kind = "FORBIDDEN"
)

// Kind maps a code to its kind.
func (c Code) Kind() Kind {
	switch c {
	case CodeProjectNotFound,
		CodeTaskNotFound,
		CodeTeamNotFound,
		CodeUserNotFound,
		CodeTeamMemberNotFound:
		return KindNotFound

	case CodeProjectTerminal,
		CodeProjectAlreadyCancelled,
		CodeProjectHasTeam,
		CodeProjectHasNoTeam,
		CodeProjectStartLocked,
		CodeProjectTasksInProgress,
		CodeProjectSameTeam,
		CodeProjectSameManager,
		CodeTaskTerminal,
		CodeTaskAlreadyCompleted,
		CodeTaskAlreadyAssigned,
		CodeTaskNotAssigned,
		CodeTaskSameAssignee,
		CodeTeamInactive,
		CodeTeamStaffsProject,
		CodeUserInactive,
		CodeUserAlreadyInTeam,
		CodeManagerHasProjects,
		CodeNameConflict:
		return KindInvalidState

	case CodeManagerCapacityExceeded,
		CodeTeamCapacityExceeded:
		return KindCapacityExceeded

	case CodeUserNotProjectManager,
		CodeUserNotTeamMember,
		CodeUserNotInProjectTeam:
		return KindIneligibleRole

	case CodeValidation,
		CodeInvalidDateRange,
		CodeStartDateInPast,
		CodeDatesOutside,
		CodeImmutableField,
		CodeUsernameTaken:
		return KindValidation

	case CodeUserAlreadyActive, CodeTeamAlreadyActive:
		return KindAlreadyActive

	case CodeUserAlreadyInactive, CodeTeamAlreadyInactive:
		return KindAlreadyInactive

	case CodeForbidden:
		return KindForbidden

	default:
		return KindInternal
	}
}

// HTTPStatus maps a kind to the status code used by the HTTP surface.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindAlreadyActive, KindAlreadyInactive:
		return http.StatusConflict
	case KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	case KindIneligibleRole, KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
