package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/pkg/jwt"
)

type authContextKey string

type authInfo struct {
	UserID string
	Role   domain.Role
}

const contextKeyAuth authContextKey = "progresso-auth-info"

var errUnknownRole = errors.New("token carries unknown role")

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil && req.URL.Query().Has("access_token") {
		// Browsers cannot set headers on websocket or EventSource requests.
		token, err = strings.TrimSpace(req.URL.Query().Get("access_token")), nil
	}
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return req.Context(), authInfo{}, false
	}
	info, err := r.authorize(token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication failed")
		return req.Context(), authInfo{}, false
	}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

func (r *Router) authorize(token string) (authInfo, error) {
	claims, err := jwt.Parse(token, r.jwtIssuer, r.jwtSecret)
	if err != nil {
		return authInfo{}, err
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return authInfo{}, errUnknownRole
	}
	return authInfo{UserID: claims.UserID, Role: role}, nil
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// callerFromRequest builds the principal handed to the allocation service.
func callerFromRequest(req *http.Request) domain.Caller {
	info, _ := authInfoFromContext(req.Context())
	return domain.Caller{UserID: info.UserID, Role: info.Role}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
