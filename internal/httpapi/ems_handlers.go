package httpapi

import (
	"net/http"

	"ems.org/internal/audit"
	"ems.org/internal/auth"
	"ems.org/internal/ems"
)

// Employees ----------------------------------------------------------------

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, nil); !ok {
		return
	}
	q := r.URL.Query()
	f := ems.EmployeeFilter{
		DepartmentID: q.Get("departmentId"),
		ActiveOnly:   q.Get("active") == "true",
		Search:       q.Get("search"),
	}
	list, err := a.ems.ListEmployees(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", list)
}

func (a *API) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, nil); !ok {
		return
	}
	e, err := a.ems.GetEmployee(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", e)
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin, auth.RoleManager))
	if !ok {
		return
	}
	var in ems.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	e, err := a.ems.CreateEmployee(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "employee.created", map[string]any{
		"employee_id": e.ID,
		"by":          p.UserID,
	})
	writeSuccess(w, http.StatusCreated, "Employee created", e)
}

func (a *API) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin, auth.RoleManager))
	if !ok {
		return
	}
	var in ems.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	e, err := a.ems.UpdateEmployee(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "employee.updated", map[string]any{
		"employee_id": e.ID,
		"by":          p.UserID,
	})
	writeSuccess(w, http.StatusOK, "Employee updated", e)
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin))
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := a.ems.DeleteEmployee(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "employee.deleted", map[string]any{
		"employee_id": id,
		"by":          p.UserID,
	})
	writeSuccess(w, http.StatusOK, "Employee deleted", nil)
}

// Departments --------------------------------------------------------------

func (a *API) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, nil); !ok {
		return
	}
	list, err := a.ems.ListDepartments(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", list)
}

func (a *API) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, nil); !ok {
		return
	}
	d, err := a.ems.GetDepartment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", d)
}

func (a *API) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin)); !ok {
		return
	}
	var in ems.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	d, err := a.ems.CreateDepartment(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Department created", d)
}

func (a *API) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin)); !ok {
		return
	}
	var in ems.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	d, err := a.ems.UpdateDepartment(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Department updated", d)
}

func (a *API) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin)); !ok {
		return
	}
	if err := a.ems.DeleteDepartment(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Department deleted", nil)
}

// Notifications ------------------------------------------------------------

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, nil)
	if !ok {
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	list, err := a.ems.ListNotifications(r.Context(), p.UserID, unread)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", list)
}

type notifyRequest struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (a *API) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, auth.Roles(auth.RoleAdmin, auth.RoleManager)); !ok {
		return
	}
	var req notifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	n, err := a.ems.Notify(r.Context(), req.UserID, req.Title, req.Message, ems.NotificationType(req.Type))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Notification created", n)
}

func (a *API) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, nil)
	if !ok {
		return
	}
	if err := a.ems.MarkNotificationRead(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Notification marked read", nil)
}

func (a *API) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	p, ok := a.authorize(w, r, nil)
	if !ok {
		return
	}
	if err := a.ems.MarkAllNotificationsRead(r.Context(), p.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "All notifications marked read", nil)
}

// Dashboard ----------------------------------------------------------------

func (a *API) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, nil); !ok {
		return
	}
	sum, err := a.ems.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", sum)
}
