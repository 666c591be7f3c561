package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"

	"github.com/edvin/inboxwatch/internal/model"
)

type AuthService struct {
	db        DB
	roles     *RoleService
	jwtSecret []byte
	jwtIssuer string
	jwtTTL    time.Duration
}

func NewAuthService(db DB, roles *RoleService, jwtSecret, jwtIssuer string, jwtTTL time.Duration) *AuthService {
	if jwtTTL <= 0 {
		jwtTTL = 24 * time.Hour
	}
	return &AuthService{
		db:        db,
		roles:     roles,
		jwtSecret: []byte(jwtSecret),
		jwtIssuer: jwtIssuer,
		jwtTTL:    jwtTTL,
	}
}

// Login authenticates a user by email and password, returning a JWT on success.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	user.Roles = roles

	token, err := s.IssueToken(&user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// IssueToken creates a signed HS256 JWT for the given user.
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := model.JWTClaims{
		Email: user.Email,
		Roles: user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*model.JWTClaims, error) {
	claims := &model.JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}
	return claims, nil
}

// GetUser loads a user with roles.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	roles, err := s.roles.RolesOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u.Roles = roles
	return &u, nil
}
