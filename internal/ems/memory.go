package ems

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and database-less runs.
type MemoryStore struct {
	mu            sync.RWMutex
	employees     map[string]*Employee
	departments   map[string]*Department
	notifications map[string]*Notification
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees:     make(map[string]*Employee),
		departments:   make(map[string]*Department),
		notifications: make(map[string]*Notification),
	}
}

func (s *MemoryStore) CreateEmployee(_ context.Context, e *Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.employees {
		if strings.EqualFold(other.Email, e.Email) {
			return ErrEmailTaken
		}
	}
	cp := *e
	s.employees[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) GetEmployee(_ context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) ListEmployees(_ context.Context, f EmployeeFilter) ([]*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Employee
	for _, e := range s.employees {
		if f.DepartmentID != "" && e.DepartmentID != f.DepartmentID {
			continue
		}
		if f.ActiveOnly && !e.IsActive {
			continue
		}
		if f.Search != "" && !employeeMatches(e, f.Search) {
			continue
		}
		cp := *e
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func employeeMatches(e *Employee, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(e.FirstName), q) ||
		strings.Contains(strings.ToLower(e.LastName), q) ||
		strings.Contains(strings.ToLower(e.Email), q)
}

func (s *MemoryStore) UpdateEmployee(_ context.Context, e *Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[e.ID]; !ok {
		return ErrNotFound
	}
	for id, other := range s.employees {
		if id != e.ID && strings.EqualFold(other.Email, e.Email) {
			return ErrEmailTaken
		}
	}
	cp := *e
	cp.UpdatedAt = time.Now().UTC()
	s.employees[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteEmployee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return ErrNotFound
	}
	delete(s.employees, id)
	return nil
}

func (s *MemoryStore) CreateDepartment(_ context.Context, d *Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.departments[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDepartment(_ context.Context, id string) (*Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.departments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDepartments(_ context.Context) ([]*Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Department, 0, len(s.departments))
	for _, d := range s.departments {
		cp := *d
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *MemoryStore) UpdateDepartment(_ context.Context, d *Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.departments[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	cp.UpdatedAt = time.Now().UTC()
	s.departments[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteDepartment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.departments[id]; !ok {
		return ErrNotFound
	}
	for _, e := range s.employees {
		if e.DepartmentID == id {
			return ErrDepartmentSet
		}
	}
	delete(s.departments, id)
	return nil
}

func (s *MemoryStore) CreateNotification(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		cp := *n
		res = append(res, &cp)
	}
	// Newest first; ULID ids sort by creation time.
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (s *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (s *MemoryStore) Summary(ctx context.Context) (*DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := &DashboardSummary{
		Departments:  len(s.departments),
		ByDepartment: make(map[string]int),
	}
	var recent []*Employee
	for _, e := range s.employees {
		sum.TotalEmployees++
		if e.IsActive {
			sum.ActiveEmployees++
		}
		if d, ok := s.departments[e.DepartmentID]; ok {
			sum.ByDepartment[d.Name]++
		}
		cp := *e
		recent = append(recent, &cp)
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].HireDate.After(recent[j].HireDate) })
	if len(recent) > 5 {
		recent = recent[:5]
	}
	sum.RecentHires = recent
	return sum, nil
}
