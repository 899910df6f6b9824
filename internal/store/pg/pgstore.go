// Package pg implements the domain store on PostgreSQL via the pgx stdlib
// driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ems.org/internal/ems"
)

const pgErrUniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ ems.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing connection, for callers that open the pool
// themselves.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Employees ----------------------------------------------------------------

const employeeColumns = `id, first_name, last_name, email, phone, position, salary,
	hire_date, department_id, user_id, is_active, created_at, updated_at`

func scanEmployee(sc interface{ Scan(...any) error }) (*ems.Employee, error) {
	var (
		e      ems.Employee
		phone  sql.NullString
		userID sql.NullString
	)
	err := sc.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &phone, &e.Position,
		&e.Salary, &e.HireDate, &e.DepartmentID, &userID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ems.ErrNotFound
		}
		return nil, err
	}
	e.Phone = phone.String
	e.UserID = userID.String
	return &e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e *ems.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		insert into employees(id, first_name, last_name, email, phone, position, salary,
			hire_date, department_id, user_id, is_active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.FirstName, e.LastName, e.Email, nullStr(e.Phone), e.Position, e.Salary,
		e.HireDate, e.DepartmentID, nullStr(e.UserID), e.IsActive,
	)
	if err != nil && isUniqueViolation(err) {
		return ems.ErrEmailTaken
	}
	return err
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*ems.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+employeeColumns+` from employees where id=$1 and is_deleted=false`, id)
	return scanEmployee(row)
}

func (s *Store) ListEmployees(ctx context.Context, f ems.EmployeeFilter) ([]*ems.Employee, error) {
	q := `select ` + employeeColumns + ` from employees where is_deleted=false`
	var args []any
	if f.DepartmentID != "" {
		args = append(args, f.DepartmentID)
		q += ` and department_id=$1`
	}
	if f.ActiveOnly {
		q += ` and is_active=true`
	}
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		p := placeholder(len(args))
		q += ` and (lower(first_name) like ` + p +
			` or lower(last_name) like ` + p +
			` or lower(email) like ` + p + `)`
	}
	q += ` order by created_at asc`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*ems.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s *Store) UpdateEmployee(ctx context.Context, e *ems.Employee) error {
	res, err := s.db.ExecContext(ctx, `
		update employees set first_name=$2, last_name=$3, email=$4, phone=$5, position=$6,
			salary=$7, hire_date=$8, department_id=$9, user_id=$10, is_active=$11, updated_at=now()
		where id=$1 and is_deleted=false`,
		e.ID, e.FirstName, e.LastName, e.Email, nullStr(e.Phone), e.Position,
		e.Salary, e.HireDate, e.DepartmentID, nullStr(e.UserID), e.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ems.ErrEmailTaken
		}
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update employees set is_deleted=true, updated_at=now() where id=$1 and is_deleted=false`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Departments --------------------------------------------------------------

func (s *Store) CreateDepartment(ctx context.Context, d *ems.Department) error {
	_, err := s.db.ExecContext(ctx, `
		insert into departments(id, name, code, description)
		values ($1,$2,$3,$4)`,
		d.ID, d.Name, d.Code, d.Description,
	)
	return err
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*ems.Department, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, code, description, created_at, updated_at
		from departments where id=$1 and is_deleted=false`, id)
	var d ems.Department
	if err := row.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ems.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]*ems.Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, code, description, created_at, updated_at
		from departments where is_deleted=false order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*ems.Department
	for rows.Next() {
		var d ems.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &d)
	}
	return res, rows.Err()
}

func (s *Store) UpdateDepartment(ctx context.Context, d *ems.Department) error {
	res, err := s.db.ExecContext(ctx, `
		update departments set name=$2, code=$3, description=$4, updated_at=now()
		where id=$1 and is_deleted=false`,
		d.ID, d.Name, d.Code, d.Description,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from employees where department_id=$1 and is_deleted=false`, id).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ems.ErrDepartmentSet
	}
	res, err := s.db.ExecContext(ctx,
		`update departments set is_deleted=true, updated_at=now() where id=$1 and is_deleted=false`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Notifications ------------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n *ems.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		insert into notifications(id, user_id, title, message, type, is_read, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.IsRead, n.CreatedAt,
	)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*ems.Notification, error) {
	q := `select id, user_id, title, message, type, is_read, created_at
		from notifications where user_id=$1`
	if unreadOnly {
		q += ` and is_read=false`
	}
	q += ` order by id desc`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*ems.Notification
	for rows.Next() {
		var (
			n   ems.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = ems.NotificationType(typ)
		res = append(res, &n)
	}
	return res, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update notifications set is_read=true where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update notifications set is_read=true where user_id=$1 and is_read=false`, userID)
	return err
}

// Dashboard ----------------------------------------------------------------

func (s *Store) Summary(ctx context.Context) (*ems.DashboardSummary, error) {
	sum := &ems.DashboardSummary{ByDepartment: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		select count(*),
			count(*) filter (where is_active),
			(select count(*) from departments where is_deleted=false)
		from employees where is_deleted=false`).
		Scan(&sum.TotalEmployees, &sum.ActiveEmployees, &sum.Departments)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select d.name, count(e.id)
		from employees e join departments d on d.id = e.department_id
		where e.is_deleted=false and d.is_deleted=false
		group by d.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		sum.ByDepartment[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hires, err := s.db.QueryContext(ctx,
		`select `+employeeColumns+` from employees where is_deleted=false order by hire_date desc limit 5`)
	if err != nil {
		return nil, err
	}
	defer hires.Close()
	for hires.Next() {
		e, err := scanEmployee(hires)
		if err != nil {
			return nil, err
		}
		sum.RecentHires = append(sum.RecentHires, e)
	}
	return sum, hires.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ems.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
