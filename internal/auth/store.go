package auth

import "context"

// Store describes the persistence operations the auth core needs. Email
// lookups expect the caller to lowercase first; the store matches
// case-insensitively regardless.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	PermissionsForRole(ctx context.Context, roleID int) ([]Permission, error)
}
