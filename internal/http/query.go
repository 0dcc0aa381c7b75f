package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/esetaro2/progresso-backend-sub000/internal/apperr"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func parsePage(req *http.Request) (repository.Page, error) {
	q := req.URL.Query()
	page := repository.Page{Limit: defaultPageLimit}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return page, apperr.Validation("limit", "limit must be a positive integer")
		}
		page.Limit = min(limit, maxPageLimit)
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return page, apperr.Validation("offset", "offset must be a non-negative integer")
		}
		page.Offset = offset
	}
	return page, nil
}

// parseStatuses reads a comma separated status list.
func parseStatuses(req *http.Request) ([]domain.Status, error) {
	raw := strings.TrimSpace(req.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	var out []domain.Status
	for _, part := range strings.Split(raw, ",") {
		status := domain.Status(strings.ToUpper(strings.TrimSpace(part)))
		if !status.Valid() {
			return nil, apperr.Validation("status", "unknown status "+part)
		}
		out = append(out, status)
	}
	return out, nil
}

func parseActive(req *http.Request) (*bool, error) {
	raw := strings.TrimSpace(req.URL.Query().Get("active"))
	if raw == "" {
		return nil, nil
	}
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("active", "active must be true or false")
	}
	return &active, nil
}
