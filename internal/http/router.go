package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"
	"github.com/esetaro2/progresso-backend-sub000/internal/ws"
)

// Router wires HTTP endpoints to the allocation service.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	alloc     *allocation.Service
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	jwtSecret string
	jwtIssuer string
	dbHealth  func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	eventStreams       *prometheus.GaugeVec
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Secret string
	Issuer string
}

const (
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 20 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, alloc *allocation.Service, hub *ws.Hub, limiter RateLimiter, auth AuthConfig, dbHealth func(context.Context) error) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		alloc:  alloc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:   limiter,
		jwtSecret: auth.Secret,
		jwtIssuer: strings.TrimSpace(auth.Issuer),
		dbHealth:  dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", promhttp.Handler())

	r.write("POST /projects", r.handleCreateProject)
	r.read("GET /projects", r.handleListProjects)
	r.read("GET /projects/{id}", r.handleGetProject)
	r.write("PATCH /projects/{id}", r.handleUpdateProject)
	r.write("DELETE /projects/{id}", r.handleRemoveProject)
	r.write("POST /projects/{id}/team", r.handleAssignTeam)
	r.write("PUT /projects/{id}/team", r.handleReassignTeam)
	r.write("PUT /projects/{id}/manager", r.handleUpdateProjectManager)
	r.write("POST /projects/{id}/complete", r.handleCompleteProject)
	r.write("POST /projects/{id}/tasks", r.handleCreateTask)
	r.read("GET /projects/{id}/tasks", r.handleListProjectTasks)

	r.read("GET /tasks", r.handleListTasks)
	r.read("GET /tasks/{id}", r.handleGetTask)
	r.write("PATCH /tasks/{id}", r.handleUpdateTask)
	r.write("DELETE /tasks/{id}", r.handleRemoveTask)
	r.write("POST /tasks/{id}/assignee", r.handleAssignTask)
	r.write("PUT /tasks/{id}/assignee", r.handleReassignTask)
	r.write("POST /tasks/{id}/complete", r.handleCompleteTask)

	r.write("POST /teams", r.handleCreateTeam)
	r.read("GET /teams", r.handleListTeams)
	r.read("GET /teams/{id}", r.handleGetTeam)
	r.write("PATCH /teams/{id}", r.handleUpdateTeam)
	r.write("POST /teams/{id}/activate", r.handleActivateTeam)
	r.write("POST /teams/{id}/deactivate", r.handleDeactivateTeam)
	r.read("GET /teams/{id}/members", r.handleListTeamMembers)
	r.write("POST /teams/{id}/members", r.handleAddTeamMembers)
	r.write("POST /teams/{id}/members/remove", r.handleRemoveTeamMembers)

	r.write("POST /users", r.handleCreateUser)
	r.read("GET /users", r.handleListUsers)
	r.read("GET /users/{id}", r.handleGetUser)
	r.write("POST /users/{id}/activate", r.handleActivateUser)
	r.write("POST /users/{id}/deactivate", r.handleDeactivateUser)

	r.mux.HandleFunc("GET /ws/events", r.audit(r.limited("GET /ws/events", streamPolicy, r.handleEventsWS)))
	r.mux.HandleFunc("GET /events", r.audit(r.limited("GET /events", streamPolicy, r.handleEventsSSE)))
}

func (r *Router) write(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.limited(pattern, writePolicy, h)))
}

func (r *Router) read(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, r.audit(r.limited(pattern, readPolicy, h)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "event stream disabled")
		return
	}
	topic := eventTopic(req)
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	done := r.trackStream("websocket")
	r.hub.Register(topic, client)
	go func() {
		defer func() {
			r.hub.Unregister(topic, client)
			client.Close()
			done()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "event stream disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeUnavailable, "streaming unsupported")
		return
	}
	topic := eventTopic(req)
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	defer r.trackStream("sse")()
	r.hub.Register(topic, client)
	defer r.hub.Unregister(topic, client)
	defer client.Close()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func eventTopic(req *http.Request) string {
	if projectID := strings.TrimSpace(req.URL.Query().Get("project_id")); projectID != "" {
		return projectID
	}
	return ws.AllTopic
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := req.Pattern
		if route == "" {
			route = req.URL.Path
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID, "role", string(info.Role))
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		if sr.status == 0 {
			sr.status = http.StatusSwitchingProtocols
		}
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}
