package auth

import (
	"context"
	"database/sql"
	"errors"

	"collabnotes.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL through database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `u.id, u.email, u.password_hash, u.role_id, r.name, u.created_at, u.updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from app_users u join roles r on r.id = u.role_id where lower(u.email) = lower($1)`,
		email)
	return scanUser(row)
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from app_users u join roles r on r.id = u.role_id where u.id = $1`,
		id)
	return scanUser(row)
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into app_users(id, email, password_hash, role_id) values($1, $2, $3, $4)
		 returning created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.RoleID)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	return nil
}

// UpdatePassword is the single atomic write of the credential-change path.
func (s *PGStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update app_users set password_hash = $2, updated_at = now() where id = $1`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) PermissionsForRole(ctx context.Context, roleID int) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select p.id, p.name from permissions p
		 join role_permissions rp on rp.permission_id = p.id
		 where rp.role_id = $1 order by p.id`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
