// Package ems holds the employee-management domain: employees, departments,
// notifications, and the dashboard rollup.
package ems

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("ems: not found")
	ErrInvalidInput  = errors.New("ems: invalid input")
	ErrEmailTaken    = errors.New("ems: email is already in use")
	ErrDepartmentSet = errors.New("ems: department still has employees")
)

// Employee is a personnel record. It is distinct from the login account; an
// employee may or may not have a linked user id.
type Employee struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Position     string    `json:"position"`
	Salary       float64   `json:"salary"`
	HireDate     time.Time `json:"hireDate"`
	DepartmentID string    `json:"departmentId"`
	UserID       string    `json:"userId,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Department groups employees.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NotificationType is the closed set of notification severities.
type NotificationType string

const (
	NotificationInfo    NotificationType = "Info"
	NotificationSuccess NotificationType = "Success"
	NotificationWarning NotificationType = "Warning"
	NotificationError   NotificationType = "Error"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Notification is a per-user message shown in the client shell.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// DashboardSummary is the landing-page rollup.
type DashboardSummary struct {
	TotalEmployees  int            `json:"totalEmployees"`
	ActiveEmployees int            `json:"activeEmployees"`
	Departments     int            `json:"departments"`
	RecentHires     []*Employee    `json:"recentHires"`
	ByDepartment    map[string]int `json:"byDepartment"`
}
