package ems

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"ems.org/internal/ids"
)

// Service wraps the store with validation and the notification fan-out that
// accompanies personnel changes.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// EmployeeInput carries the writable employee fields.
type EmployeeInput struct {
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Position     string    `json:"position"`
	Salary       float64   `json:"salary"`
	HireDate     time.Time `json:"hireDate"`
	DepartmentID string    `json:"departmentId"`
	UserID       string    `json:"userId"`
	IsActive     *bool     `json:"isActive"`
}

func (in *EmployeeInput) validate() error {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if in.Salary < 0 {
		return fmt.Errorf("%w: salary cannot be negative", ErrInvalidInput)
	}
	if strings.TrimSpace(in.DepartmentID) == "" {
		return fmt.Errorf("%w: department is required", ErrInvalidInput)
	}
	return nil
}

// CreateEmployee validates the input, checks the department exists, stores
// the record, and leaves a welcome notification for the linked user account
// when there is one.
func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (*Employee, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetDepartment(ctx, in.DepartmentID); err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: unknown department", ErrInvalidInput)
		}
		return nil, err
	}

	now := s.now().UTC()
	hire := in.HireDate
	if hire.IsZero() {
		hire = now
	}
	e := &Employee{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		Position:     strings.TrimSpace(in.Position),
		Salary:       in.Salary,
		HireDate:     hire,
		DepartmentID: in.DepartmentID,
		UserID:       in.UserID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	if err := s.store.CreateEmployee(ctx, e); err != nil {
		return nil, err
	}
	if e.UserID != "" {
		s.notify(ctx, e.UserID, "Welcome aboard",
			fmt.Sprintf("Your employee profile in %s has been created.", e.Position),
			NotificationSuccess)
	}
	return e, nil
}

func (s *Service) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

func (s *Service) ListEmployees(ctx context.Context, f EmployeeFilter) ([]*Employee, error) {
	return s.store.ListEmployees(ctx, f)
}

// UpdateEmployee applies the input over the existing record.
func (s *Service) UpdateEmployee(ctx context.Context, id string, in EmployeeInput) (*Employee, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DepartmentID != e.DepartmentID {
		if _, err := s.store.GetDepartment(ctx, in.DepartmentID); err != nil {
			if err == ErrNotFound {
				return nil, fmt.Errorf("%w: unknown department", ErrInvalidInput)
			}
			return nil, err
		}
	}

	e.FirstName = strings.TrimSpace(in.FirstName)
	e.LastName = strings.TrimSpace(in.LastName)
	e.Email = strings.ToLower(strings.TrimSpace(in.Email))
	e.Phone = strings.TrimSpace(in.Phone)
	e.Position = strings.TrimSpace(in.Position)
	e.Salary = in.Salary
	if !in.HireDate.IsZero() {
		e.HireDate = in.HireDate
	}
	e.DepartmentID = in.DepartmentID
	if in.UserID != "" {
		e.UserID = in.UserID
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	e.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEmployee(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	return s.store.DeleteEmployee(ctx, id)
}

// DepartmentInput carries the writable department fields.
type DepartmentInput struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (in *DepartmentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: department name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: department code is required", ErrInvalidInput)
	}
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (*Department, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	d := &Department{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDepartment(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDepartment(ctx context.Context, id string) (*Department, error) {
	return s.store.GetDepartment(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context) ([]*Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, in DepartmentInput) (*Department, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	d, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Name = strings.TrimSpace(in.Name)
	d.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	d.Description = strings.TrimSpace(in.Description)
	d.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDepartment(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	return s.store.DeleteDepartment(ctx, id)
}

// Notify records a notification for a user. Failures are returned to the
// caller; the helpers below treat them as best-effort instead.
func (s *Service) Notify(ctx context.Context, userID, title, message string, typ NotificationType) (*Notification, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: user and title are required", ErrInvalidInput)
	}
	if !typ.Valid() {
		typ = NotificationInfo
	}
	n := &Notification{
		ID:        ids.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		Type:      typ,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// notify is the best-effort variant used for side-channel notifications;
// the primary operation never fails because a notification could not be
// written.
func (s *Service) notify(ctx context.Context, userID, title, message string, typ NotificationType) {
	_, _ = s.Notify(ctx, userID, title, message, typ)
}

func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return s.store.MarkNotificationRead(ctx, userID, id)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *Service) Summary(ctx context.Context) (*DashboardSummary, error) {
	return s.store.Summary(ctx)
}
