package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// RegisterDirectorRequest opens a new academy.
type RegisterDirectorRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"required"`
	Phone       string `json:"phone"`
	AcademyName string `json:"academy_name" validate:"required"`
}

// RegisterTeacherRequest self-registers a teacher with a director's onboarding code.
type RegisterTeacherRequest struct {
	Code     string `json:"code" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Role      UserRole `json:"role"`
	AcademyID string   `json:"academy_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	AcademyID string   `json:"academy_id,omitempty"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller resolved once per request.
type Principal struct {
	UserID    string
	Role      UserRole
	AcademyID string
	Email     string
	FullName  string
}

// Principal extracts the request principal from verified claims.
func (c *JWTClaims) Principal() *Principal {
	return &Principal{
		UserID:    c.UserID,
		Role:      c.Role,
		AcademyID: c.AcademyID,
		Email:     c.Email,
		FullName:  c.FullName,
	}
}

// IsDirector reports whether the principal owns an academy.
func (p *Principal) IsDirector() bool { return p != nil && p.Role == RoleDirector }

// IsTeacher reports whether the principal is a scoped teacher.
func (p *Principal) IsTeacher() bool { return p != nil && p.Role == RoleTeacher }

// IsAdmin reports whether the principal is a platform admin.
func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }
