// Copyright 2026 Smeraldo Hotel
// SPDX-License-Identifier: Apache-2.0

package syncserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator resolves the caller's identity from an HTTP request.
type Authenticator interface {
	// Identity returns the staff user id and role, or an error when the
	// request carries no valid credentials.
	Identity(r *http.Request) (userID, role string, err error)
}

// JWTAuth authenticates staff requests with HS256 JWTs.
type JWTAuth struct {
	secret []byte
	issuer string
}

// NewJWTAuth creates a JWT authenticator over a shared secret.
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
		issuer: "staffsync",
	}
}

// Claims are the staff token claims. The user id rides in the standard
// 'sub' claim; the role is a custom claim checked per request.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues a token for a staff member.
func (j *JWTAuth) GenerateToken(userID, role string, expiration time.Duration) (string, error) {
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    j.issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken validates a token string and returns its claims.
func (j *JWTAuth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, fmt.Errorf("missing sub (user ID) in token")
		}
		if claims.Role == "" {
			return nil, fmt.Errorf("missing role in token")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// Identity implements Authenticator.
func (j *JWTAuth) Identity(r *http.Request) (string, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "", fmt.Errorf("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return "", "", fmt.Errorf("bearer token required")
	}

	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}

	return claims.Subject, claims.Role, nil
}
