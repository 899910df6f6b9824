package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active,
	refresh_token, refresh_token_expiry, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var (
		u       User
		refresh sql.NullString
		expiry  sql.NullTime
		role    string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &u.IsActive, &refresh, &expiry, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	if refresh.Valid {
		u.RefreshToken = refresh.String
	}
	if expiry.Valid {
		u.RefreshTokenExpiry = expiry.Time
	}
	return &u, nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1 and is_deleted=false`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email)=lower($1) and is_deleted=false`, email)
	return scanUser(row)
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, first_name, last_name, role, is_active)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.IsActive,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *PGStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, refresh_token=null, refresh_token_expiry=null, updated_at=now()
		 where id=$1 and is_deleted=false`,
		id, passwordHash,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

func (s *PGStore) SaveRefreshToken(ctx context.Context, id, token string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set refresh_token=$2, refresh_token_expiry=$3, updated_at=now()
		 where id=$1 and is_deleted=false`,
		id, token, expiry,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

// RotateRefreshToken is a single-statement compare-and-swap: the where clause
// matches the stored token, so only one of two racing refreshes can win.
func (s *PGStore) RotateRefreshToken(ctx context.Context, id, current, next string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set refresh_token=$3, refresh_token_expiry=$4, updated_at=now()
		 where id=$1 and refresh_token=$2 and is_deleted=false`,
		id, current, next, expiry,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrInvalidRefreshToken)
}

func (s *PGStore) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set refresh_token=null, refresh_token_expiry=null, updated_at=now()
		 where id=$1 and is_deleted=false`,
		id,
	)
	return err
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
