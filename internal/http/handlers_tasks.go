package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"
)

var immutableTaskFields = []string{"status", "assignee_id", "completion_date", "project_id"}

func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		StartDate   date   `json:"start_date"`
		DueDate     date   `json:"due_date"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	task, err := r.alloc.CreateTask(req.Context(), callerFromRequest(req), allocation.CreateTaskInput{
		ProjectID:   req.PathValue("id"),
		Name:        payload.Name,
		Description: payload.Description,
		Priority:    domain.Priority(strings.ToUpper(strings.TrimSpace(payload.Priority))),
		StartDate:   payload.StartDate.Time,
		DueDate:     payload.DueDate.Time,
	})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(*task))
}

func (r *Router) handleListProjectTasks(w http.ResponseWriter, req *http.Request) {
	r.listTasks(w, req, req.PathValue("id"))
}

func (r *Router) handleListTasks(w http.ResponseWriter, req *http.Request) {
	r.listTasks(w, req, strings.TrimSpace(req.URL.Query().Get("project_id")))
}

func (r *Router) listTasks(w http.ResponseWriter, req *http.Request, projectID string) {
	page, err := parsePage(req)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	statuses, err := parseStatuses(req)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	tasks, err := r.alloc.ListTasks(req.Context(), callerFromRequest(req), repository.TaskFilter{
		ProjectID:  projectID,
		AssigneeID: strings.TrimSpace(req.URL.Query().Get("assignee_id")),
		Statuses:   statuses,
		Page:       page,
	})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(tasks, toTaskResponse))
}

func (r *Router) handleGetTask(w http.ResponseWriter, req *http.Request) {
	task, err := r.alloc.GetTask(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (r *Router) handleUpdateTask(w http.ResponseWriter, req *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, req, &raw) {
		return
	}
	for _, field := range immutableTaskFields {
		if _, ok := raw[field]; ok {
			r.writeAppError(w, req, apperr.WithMetadata(apperr.CodeImmutableField,
				field+" cannot be changed through a task update", map[string]string{"field": field}))
			return
		}
	}
	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Priority    *string `json:"priority"`
		StartDate   *date   `json:"start_date"`
		DueDate     *date   `json:"due_date"`
	}
	if !remarshal(w, raw, &payload) {
		return
	}
	in := allocation.UpdateTaskInput{
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   datePtr(payload.StartDate),
		DueDate:     datePtr(payload.DueDate),
	}
	if payload.Priority != nil {
		priority := domain.Priority(strings.ToUpper(strings.TrimSpace(*payload.Priority)))
		in.Priority = &priority
	}
	task, err := r.alloc.UpdateTask(req.Context(), callerFromRequest(req), req.PathValue("id"), in)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (r *Router) handleRemoveTask(w http.ResponseWriter, req *http.Request) {
	task, err := r.alloc.RemoveTask(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (r *Router) handleAssignTask(w http.ResponseWriter, req *http.Request) {
	userID, ok := decodeID(w, req, "user_id")
	if !ok {
		return
	}
	task, err := r.alloc.AssignTask(req.Context(), callerFromRequest(req), req.PathValue("id"), userID)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (r *Router) handleReassignTask(w http.ResponseWriter, req *http.Request) {
	userID, ok := decodeID(w, req, "user_id")
	if !ok {
		return
	}
	task, err := r.alloc.ReassignTask(req.Context(), callerFromRequest(req), req.PathValue("id"), userID)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}

func (r *Router) handleCompleteTask(w http.ResponseWriter, req *http.Request) {
	task, err := r.alloc.CompleteTask(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(*task))
}
