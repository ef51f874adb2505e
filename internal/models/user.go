package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleConvenor UserRole = "CONVENOR"
	RoleTutor    UserRole = "TUTOR"
	RoleStudent  UserRole = "STUDENT"
)

// User is the read model of a platform account; accounts are owned by the assessment platform.
type User struct {
	ID       string   `db:"id" json:"id"`
	Username string   `db:"username" json:"username"`
	Email    string   `db:"email" json:"email"`
	FullName string   `db:"full_name" json:"full_name"`
	Role     UserRole `db:"role" json:"role"`
}
