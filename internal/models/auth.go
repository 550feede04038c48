package models

import "github.com/golang-jwt/jwt/v5"

// UserRole scopes what a token holder may do.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleProvider UserRole = "PROVIDER"
	RoleStaff    UserRole = "STAFF"
)

// JWTClaims are the access-token claims issued by the platform identity
// service and validated here.
type JWTClaims struct {
	UserID         string   `json:"uid"`
	OrganizationID string   `json:"org"`
	Role           UserRole `json:"role"`
	jwt.RegisteredClaims
}
