package model

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the claims carried in session tokens.
type JWTClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}
