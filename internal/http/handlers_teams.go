package httpx

import (
	"context"
	"net/http"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

type teamNamePayload struct {
	Name string `json:"name"`
}

type memberIDsPayload struct {
	UserIDs []string `json:"user_ids"`
}

func (r *Router) handleCreateTeam(w http.ResponseWriter, req *http.Request) {
	var payload teamNamePayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	team, err := r.alloc.CreateTeam(req.Context(), callerFromRequest(req), payload.Name)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamResponse(*team))
}

func (r *Router) handleListTeams(w http.ResponseWriter, req *http.Request) {
	page, err := parsePage(req)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	active, err := parseActive(req)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	teams, err := r.alloc.ListTeams(req.Context(), callerFromRequest(req), repository.TeamFilter{Active: active, Page: page})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(teams, toTeamResponse))
}

func (r *Router) handleGetTeam(w http.ResponseWriter, req *http.Request) {
	team, err := r.alloc.GetTeam(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(*team))
}

func (r *Router) handleUpdateTeam(w http.ResponseWriter, req *http.Request) {
	var payload teamNamePayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	team, err := r.alloc.UpdateTeam(req.Context(), callerFromRequest(req), req.PathValue("id"), payload.Name)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(*team))
}

func (r *Router) handleActivateTeam(w http.ResponseWriter, req *http.Request) {
	team, err := r.alloc.ActivateTeam(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(*team))
}

func (r *Router) handleDeactivateTeam(w http.ResponseWriter, req *http.Request) {
	team, err := r.alloc.DeactivateTeam(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(*team))
}

func (r *Router) handleListTeamMembers(w http.ResponseWriter, req *http.Request) {
	active, err := parseActive(req)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	activeOnly := active == nil || *active
	members, err := r.alloc.ListTeamMembers(req.Context(), callerFromRequest(req), req.PathValue("id"), activeOnly)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(members, toMemberResponse))
}

func (r *Router) handleAddTeamMembers(w http.ResponseWriter, req *http.Request) {
	r.changeMembers(w, req, http.StatusCreated, r.alloc.AddTeamMembers)
}

func (r *Router) handleRemoveTeamMembers(w http.ResponseWriter, req *http.Request) {
	r.changeMembers(w, req, http.StatusOK, r.alloc.RemoveTeamMembers)
}

type memberChange func(ctx context.Context, caller domain.Caller, teamID string, userIDs []string) ([]domain.TeamMember, error)

func (r *Router) changeMembers(w http.ResponseWriter, req *http.Request, status int, change memberChange) {
	var payload memberIDsPayload
	if !decodeJSON(w, req, &payload) {
		return
	}
	if len(payload.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "user_ids is required")
		return
	}
	members, err := change(req.Context(), callerFromRequest(req), req.PathValue("id"), payload.UserIDs)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, status, mapSlice(members, toMemberResponse))
}
