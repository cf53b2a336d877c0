package models

// RoleAdmin is the only role with elevated access in the portal.
const RoleAdmin = "admin"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserUpdate is the body of a profile update.
type UserUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PasswordChange is the body of a password update.
type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Registration is the body of a self-service sign up.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the body of a login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetConfirm completes a password reset with the code sent by email.
type PasswordResetConfirm struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
