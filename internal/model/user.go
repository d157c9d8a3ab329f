package model

import "time"

// User roles. Customers are created implicitly on their first booking and
// never log in; admins authenticate to manage system settings.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User mirrors the `users` table. PasswordHash is empty for customers,
// who are identified by email verification rather than credentials.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (unique, lower-case)
	Name         string    // users.name, optional display name
	PasswordHash string    // users.password_hash (bcrypt, admins only)
	Role         string    // users.role (CUSTOMER | ADMIN)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
