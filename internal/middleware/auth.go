package middleware

import (
	"net/http"
	"strings"

	"inventory-service/pkg/jwtutil"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Extract the token
		tokenString := parts[1]

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Refresh tokens carry no API access rights
		if claims.TokenType == jwtutil.TokenTypeRefresh {
			log.Error("Refresh token used for API access")
			prometheus.RecordAuthError("refresh_token_misuse")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh tokens cannot be used to access the API"})
		}

		// Store user info in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("email", claims.Email)
		c.Set("is_staff", claims.IsStaff)

		// Store shop information if the user is assigned to a shop
		if claims.ShopID != nil {
			c.Set("shop_id", *claims.ShopID)

			log.Debug("Request authenticated with shop context",
				zap.Uint("user_id", claims.UserID),
				zap.Uint("shop_id", *claims.ShopID))
		}

		// Token is valid, proceed with the request
		return next(c)
	}
}

// RequireShopContext ensures the acting user carries a shop assignment.
// Staff users pass regardless, they operate across all shops.
func RequireShopContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		if isStaff, ok := c.Get("is_staff").(bool); ok && isStaff {
			return next(c)
		}

		if _, ok := c.Get("shop_id").(uint); !ok {
			log.Warn("Request without shop context rejected")
			prometheus.RecordAuthError("missing_shop_context")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "user not assigned to any shop"})
		}

		return next(c)
	}
}

// StaffOnly restricts an endpoint to staff users
func StaffOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		if isStaff, ok := c.Get("is_staff").(bool); !ok || !isStaff {
			log.Warn("Non-staff access to staff endpoint rejected",
				zap.Any("user_id", c.Get("user_id")))
			prometheus.RecordAuthError("staff_required")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "staff access required"})
		}

		return next(c)
	}
}
