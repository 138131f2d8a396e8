package handler

import (
	"net/http"
	"time"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/jwtutil"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Register handles new user registration
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	// Parse request
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
		ShopID    *uint  `json:"shop_id,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		log.Error("Invalid registration data",
			zap.String("username", req.Username),
			zap.String("email", req.Email),
			zap.Bool("password_provided", req.Password != ""))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}

	if req.Password != req.Password2 {
		log.Error("Registration passwords do not match", zap.String("username", req.Username))
		prometheus.RecordAuthError("password_mismatch")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	if len(req.Password) < 8 {
		log.Error("Registration password too short", zap.String("username", req.Username))
		prometheus.RecordAuthError("password_too_short")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters long"})
	}

	// Check if username or email is already taken - track DB query
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	database.GetDB().Model(&model.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		log.Error("Username already taken", zap.String("username", req.Username))
		prometheus.RecordAuthError("username_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "this username is already taken"})
	}

	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Error("Email already registered", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "this email is already registered"})
	}

	// Validate the shop assignment if one was requested
	if req.ShopID != nil {
		var shop model.Shop
		if result := database.GetDB().First(&shop, *req.ShopID); result.Error != nil {
			log.Error("Registration references unknown shop",
				zap.Uint("shop_id", *req.ShopID),
				zap.Error(result.Error))
			prometheus.RecordAuthError("shop_not_found")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop not found"})
		}
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Create new user
	user := model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		ShopID:   req.ShopID,
		IsActive: true,
	}

	// Save to database - track DB insert operation
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("User registered",
		zap.String("username", user.Username),
		zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"shop_id":  user.ShopID,
		},
	})
}

// Login authenticates a user and issues an access/refresh token pair
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	// Parse request
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Find user in database - track DB operation duration
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("username = ?", req.Username).First(&user)
	if result.Error != nil {
		log.Error("User not found", zap.String("username", req.Username))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("username", req.Username))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
	}

	if !user.IsActive {
		log.Warn("Inactive user login rejected", zap.String("username", req.Username))
		prometheus.RecordAuthError("user_inactive")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is disabled"})
	}

	// Generate the token pair with shop information
	accessToken, err := jwtutil.GenerateToken(user.Username, user.Email, user.ID, user.ShopID, user.IsStaff)
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	refreshToken, err := jwtutil.GenerateRefreshToken(user.Username, user.Email, user.ID, user.ShopID, user.IsStaff)
	if err != nil {
		log.Error("Failed to generate refresh token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	// Increment active tokens gauge
	prometheus.IncreaseActiveTokens()

	if user.ShopID != nil {
		log.Info("User logged in with shop context",
			zap.String("username", user.Username),
			zap.Uint("shop_id", *user.ShopID))
	} else {
		log.Info("User logged in without shop assignment",
			zap.String("username", user.Username))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access":   accessToken,
		"refresh":  refreshToken,
		"username": user.Username,
		"email":    user.Email,
		"shop_id":  user.ShopID,
	})
}

// RefreshToken exchanges a valid refresh token for a new access token
func RefreshToken(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TokenRefreshCounter.Inc()

	var req struct {
		Refresh string `json:"refresh"`
	}

	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		log.Error("Failed to parse token refresh request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token is required"})
	}

	claims, err := jwtutil.ValidateRefreshToken(req.Refresh)
	if err != nil {
		log.Error("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	// Re-read the user so revoked accounts and shop reassignments take effect
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
		log.Error("Refresh token user no longer exists", zap.Uint("user_id", claims.UserID))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	if !user.IsActive {
		log.Warn("Refresh rejected for inactive user", zap.Uint("user_id", user.ID))
		prometheus.RecordAuthError("user_inactive")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is disabled"})
	}

	accessToken, err := jwtutil.GenerateToken(user.Username, user.Email, user.ID, user.ShopID, user.IsStaff)
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Access token refreshed", zap.String("username", user.Username))
	return c.JSON(http.StatusOK, echo.Map{"access": accessToken})
}

// MetricsHandler exposes the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
