package auth

import "time"

// User is the persisted identity record. The credential hash is opaque to
// everything except the password verifier; RoleName is resolved by the store
// via a join and is read-only here.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	RoleID       int
	RoleName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is static reference data; many users reference one role.
type Role struct {
	ID   int
	Name string
}

// Permission is a fine-grained capability a role may hold.
type Permission struct {
	ID   int
	Name string
}

// Identity is the resolved view attached to an authenticated request.
type Identity struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	RoleID int    `json:"-"`
}

func identityOf(u *User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.RoleName, RoleID: u.RoleID}
}
