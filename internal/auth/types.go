package auth

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the enumerated user roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is a credential store record. Email is stored lowercased and is
// unique under case-insensitive comparison.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	DisplayName   string
	Role          string
	EmailVerified bool
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Public returns the projection of the user exposed over the API.
// The password hash never leaves the service.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}

// PublicUser is the client-visible user shape.
type PublicUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"displayName"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Session is one row of the session ledger. At most one session per
// user is active at any time; prior active rows are deactivated in the
// same transaction that inserts the new one.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	Active    bool
	CreatedAt time.Time
}

// NewUser is the input for admin user provisioning.
type NewUser struct {
	Email       string
	DisplayName string
	Password    string
	Role        string
}

// Origin captures where a sign-in came from, recorded on the session.
type Origin struct {
	IPAddress string
	UserAgent string
}

// NormalizeEmail lowercases and trims an email for case-insensitive
// comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
