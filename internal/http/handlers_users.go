package httpx

import (
	"net/http"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"
)

func (r *Router) handleCreateUser(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Role      string `json:"role"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, err := r.alloc.CreateUser(req.Context(), callerFromRequest(req), allocation.CreateUserInput{
		Username:  payload.Username,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Role:      domain.Role(strings.ToUpper(strings.TrimSpace(payload.Role))),
	})
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
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
	filter := repository.UserFilter{Active: active, Page: page}
	if raw := strings.TrimSpace(req.URL.Query().Get("role")); raw != "" {
		filter.Role = domain.Role(strings.ToUpper(raw))
		if !filter.Role.Valid() {
			r.writeAppError(w, req, apperr.Validation("role", "unknown role "+raw))
			return
		}
	}
	users, err := r.alloc.ListUsers(req.Context(), callerFromRequest(req), filter)
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toUserResponse))
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.alloc.GetUser(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (r *Router) handleActivateUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.alloc.ActivateUser(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (r *Router) handleDeactivateUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.alloc.DeactivateUser(req.Context(), callerFromRequest(req), req.PathValue("id"))
	if err != nil {
		r.writeAppError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}
