package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"
)

// Fields a generic project edit may never touch. Each has a dedicated operation
// or is derived.
var immutableProjectFields = []string{"priority", "completion_date", "status", "tasks", "team_id", "manager_id", "comments"}

func (r *Router) handleCreateProject(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		ManagerID   string `json:"manager_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		StartDate   date   `json:"start_date"`
		DueDate     date   `json:"due_date"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	caller := callerFromRequest(req)
	if strings.TrimSpace(payload.ManagerID) == "" {
		payload.ManagerID = caller.UserID
	}
	project, err := r.alloc.CreateProject(req.Context(), caller, allocation.CreateProjectInput{
		ManagerID:   payload.ManagerID,
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   payload.StartDate.Time,
		DueDate:     payload.DueDate.Time,
	})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(*project))
}

func (r *Router) handleListProjects(w http.ResponseWriter, req *http.Request) {
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
	q := req.URL.Query()
	projects, err := r.alloc.ListProjects(req.Context(), callerFromRequest(req), repository.ProjectFilter{
		ManagerID: strings.TrimSpace(q.Get("manager_id")),
		TeamID:    strings.TrimSpace(q.Get("team_id")),
		Statuses:  statuses,
		Page:      page,
	})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(projects, toProjectResponse))
}

func (r *Router) handleGetProject(w http.ResponseWriter, req *http.Request) {
	project, err := r.alloc.GetProject(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

func (r *Router) handleUpdateProject(w http.ResponseWriter, req *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, req, &raw) {
		return
	}
	for _, field := range immutableProjectFields {
		if _, ok := raw[field]; ok {
			r.writeAppError(w, req, apperr.WithMetadata(apperr.CodeImmutableField,
				field+" cannot be changed through a project update", map[string]string{"field": field}))
			return
		}
	}
	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		StartDate   *date   `json:"start_date"`
		DueDate     *date   `json:"due_date"`
	}
	if !remarshal(w, raw, &payload) {
		return
	}
	project, err := r.alloc.UpdateProject(req.Context(), callerFromRequest(req), req.PathValue("id"), allocation.UpdateProjectInput{
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   datePtr(payload.StartDate),
		DueDate:     datePtr(payload.DueDate),
	})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

func (r *Router) handleRemoveProject(w http.ResponseWriter, req *http.Request) {
	project, err := r.alloc.RemoveProject(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

func (r *Router) handleAssignTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := decodeID(w, req, "team_id")
	if !ok {
		return
	}
	project, err := r.alloc.AssignTeam(req.Context(), callerFromRequest(req), req.PathValue("id"), teamID)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

func (r *Router) handleReassignTeam(w http.ResponseWriter, req *http.Request) {
	teamID, ok := decodeID(w, req, "team_id")
	if !ok {
		return
	}
	project, err := r.alloc.ReassignTeam(req.Context(), callerFromRequest(req), req.PathValue("id"), teamID)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

func (r *Router) handleUpdateProjectManager(w http.ResponseWriter, req *http.Request) {
	managerID, ok := decodeID(w, req, "manager_id")
	if !ok {
		return
	}
	project, err := r.alloc.UpdateProjectManager(req.Context(), callerFromRequest(req), req.PathValue("id"), managerID)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

func (r *Router) handleCompleteProject(w http.ResponseWriter, req *http.Request) {
	project, err := r.alloc.CompleteProject(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

// decodeID reads a single required identifier field from the JSON body.
func decodeID(w http.ResponseWriter, req *http.Request, field string) (string, bool) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, req, &raw) {
		return "", false
	}
	var id string
	if value, ok := raw[field]; ok {
		if err := json.Unmarshal(value, &id); err != nil {
			writeError(w, http.StatusBadRequest, apperr.CodeValidation, field+" must be a string")
			return "", false
		}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, field+" is required")
		return "", false
	}
	return id, true
}

// remarshal decodes an already parsed body into dst.
func remarshal(w http.ResponseWriter, raw map[string]json.RawMessage, dst any) bool {
	body, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(body, dst)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, err.Error())
		return false
	}
	return true
}
