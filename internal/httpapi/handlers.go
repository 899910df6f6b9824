package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ems.org/internal/auth"
	"ems.org/internal/ems"
	"ems.org/internal/obs"
)

// ReadyProbe reports readiness (for example, a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	ems        *ems.Service
	readyProbe ReadyProbe
	version    string

	loginBurst  int
	loginPerSec int
}

func New(authSvc *auth.Service, emsSvc *ems.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:         http.NewServeMux(),
		auth:        authSvc,
		ems:         emsSvc,
		readyProbe:  rp,
		version:     version,
		loginBurst:  10,
		loginPerSec: 5,
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /api/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	// auth
	a.mux.Handle("POST /api/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), a.loginBurst, a.loginPerSec))
	a.mux.HandleFunc("POST /api/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("POST /api/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	a.mux.HandleFunc("GET /api/auth/me", a.handleMe)

	// employees
	a.mux.HandleFunc("GET /api/employees", a.handleListEmployees)
	a.mux.HandleFunc("POST /api/employees", a.handleCreateEmployee)
	a.mux.HandleFunc("GET /api/employees/{id}", a.handleGetEmployee)
	a.mux.HandleFunc("PUT /api/employees/{id}", a.handleUpdateEmployee)
	a.mux.HandleFunc("DELETE /api/employees/{id}", a.handleDeleteEmployee)

	// departments
	a.mux.HandleFunc("GET /api/departments", a.handleListDepartments)
	a.mux.HandleFunc("POST /api/departments", a.handleCreateDepartment)
	a.mux.HandleFunc("GET /api/departments/{id}", a.handleGetDepartment)
	a.mux.HandleFunc("PUT /api/departments/{id}", a.handleUpdateDepartment)
	a.mux.HandleFunc("DELETE /api/departments/{id}", a.handleDeleteDepartment)

	// notifications + dashboard
	a.mux.HandleFunc("GET /api/notifications", a.handleListNotifications)
	a.mux.HandleFunc("POST /api/notifications", a.handleCreateNotification)
	a.mux.HandleFunc("PUT /api/notifications/{id}/read", a.handleMarkNotificationRead)
	a.mux.HandleFunc("PUT /api/notifications/read-all", a.handleMarkAllNotificationsRead)
	a.mux.HandleFunc("GET /api/dashboard/summary", a.handleDashboardSummary)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not found")
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	h = Logging(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", map[string]any{
		"service": "ems-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeFailure(w, http.StatusServiceUnavailable, "not ready", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, "ready", nil)
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", map[string]any{
		"name":    "ems-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- envelope ---

// envelope is the uniform response shape: every endpoint, success or
// failure, returns this.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors"`
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: message, Data: data, Errors: []string{}})
}

func writeFailure(w http.ResponseWriter, code int, message string, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, code, envelope{Success: false, Message: message, Errors: errs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors onto statuses and the envelope. The
// message is the error text; internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeFailure(w, http.StatusBadRequest, "Invalid email or password")
	case errors.Is(err, auth.ErrInactiveAccount):
		writeFailure(w, http.StatusBadRequest, "Account is deactivated")
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		writeFailure(w, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, auth.ErrExpiredToken):
		w.Header().Set("Token-Expired", "true")
		writeFailure(w, http.StatusUnauthorized, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		writeFailure(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeFailure(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeFailure(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, ems.ErrEmailTaken):
		writeFailure(w, http.StatusConflict, "Email is already in use")
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, ems.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ems.ErrDepartmentSet):
		writeFailure(w, http.StatusConflict, "Department still has employees")
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, ems.ErrInvalidInput):
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
	default:
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// authorize wraps auth.Authorize with the envelope failure writing. It
// returns the principal and whether the handler may proceed.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, allowed auth.RoleSet) (auth.Principal, bool) {
	p, err := auth.Authorize(r.Context(), allowed)
	if err != nil {
		writeServiceError(w, err)
		return auth.Principal{}, false
	}
	return p, true
}
