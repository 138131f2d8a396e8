package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"inventory-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// Token types issued by this service
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var cfg *config.JWTConfig

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	UserID    uint   `json:"user_id"`
	ShopID    *uint  `json:"shop_id,omitempty"` // shop the user acts for, absent for unassigned users
	IsStaff   bool   `json:"is_staff,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Initialize stores the JWT configuration for token operations
func Initialize(jwtConfig *config.JWTConfig) {
	cfg = jwtConfig
}

// GenerateToken creates a short-lived access token with user and shop information
func GenerateToken(username, email string, userID uint, shopID *uint, isStaff bool) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT configuration not provided")
	}
	return generate(username, email, userID, shopID, isStaff, TokenTypeAccess,
		time.Duration(cfg.ExpirationHours)*time.Hour)
}

// GenerateRefreshToken creates a long-lived refresh token for the user
func GenerateRefreshToken(username, email string, userID uint, shopID *uint, isStaff bool) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT configuration not provided")
	}
	return generate(username, email, userID, shopID, isStaff, TokenTypeRefresh,
		time.Duration(cfg.RefreshExpirationHours)*time.Hour)
}

func generate(username, email string, userID uint, shopID *uint, isStaff bool, tokenType string, ttl time.Duration) (string, error) {
	claims := UserClaims{
		Username:  username,
		Email:     email,
		UserID:    userID,
		ShopID:    shopID,
		IsStaff:   isStaff,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SigningKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ValidateRefreshToken validates a token and ensures it is a refresh token
func ValidateRefreshToken(tokenString string) (*UserClaims, error) {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, errors.New("not a refresh token")
	}
	return claims, nil
}
