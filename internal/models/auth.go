package models

import (
	"math"

	"github.com/golang-jwt/jwt/v5"
)

// Role identifies the access level carried by a token.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePrincipal Role = "principal"
	RoleTeacher   Role = "teacher"
)

// LoginRequest holds credentials for authenticating a teacher account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the authenticated profile.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	Teacher     *TeacherInfo `json:"teacher"`
}

// TeacherInfo describes the authenticated teacher in login responses.
type TeacherInfo struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	SchoolID   string `json:"school_id"`
	SchoolName string `json:"school_name"`
	Subject    string `json:"subject"`
	Role       Role   `json:"role"`
}

// ChangePasswordRequest payload for a teacher updating their own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	SchoolID string `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes page metadata for a result set.
func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
