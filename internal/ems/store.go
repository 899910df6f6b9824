package ems

import "context"

// EmployeeFilter narrows ListEmployees. Zero value lists everything that is
// not soft-deleted.
type EmployeeFilter struct {
	DepartmentID string
	ActiveOnly   bool
	Search       string // matches name or email, case-insensitive
}

// Store is the persistence boundary for the domain records. Deletes are soft:
// rows are flagged, never removed, and flagged rows vanish from reads.
type Store interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context, f EmployeeFilter) ([]*Employee, error)
	UpdateEmployee(ctx context.Context, e *Employee) error
	DeleteEmployee(ctx context.Context, id string) error

	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id string) (*Department, error)
	ListDepartments(ctx context.Context) ([]*Department, error)
	UpdateDepartment(ctx context.Context, d *Department) error
	// DeleteDepartment fails with ErrDepartmentSet while employees still
	// reference the department.
	DeleteDepartment(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error

	Summary(ctx context.Context) (*DashboardSummary, error)
}
