package handler

import (
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UserUpdateRequest defines the structure for user update requests.
// All fields are optional, absent fields are left untouched.
type UserUpdateRequest struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	ShopID    *uint   `json:"shop_id,omitempty"`
}

// GetProfile returns the authenticated user's record
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("profile_access")

	userID, ok := actingUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Error("User not found", zap.Uint("user_id", userID), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateUser updates the authenticated user, or another user when a staff
// member provides an ID path parameter
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("profile_update")

	target, ok := resolveTargetUser(c)
	if !ok {
		return nil
	}

	var req UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user update request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Username and email stay unique across all users
	if req.Username != nil && *req.Username != target.Username {
		var count int64
		database.GetDB().Model(&model.User{}).
			Where("username = ? AND id != ?", *req.Username, target.ID).
			Count(&count)
		if count > 0 {
			log.Warn("Username already taken", zap.String("username", *req.Username))
			prometheus.RecordAuthError("username_already_exists")
			return c.JSON(http.StatusConflict, echo.Map{"error": "this username is already taken"})
		}
		target.Username = *req.Username
	}

	if req.Email != nil && *req.Email != target.Email {
		var count int64
		database.GetDB().Model(&model.User{}).
			Where("email = ? AND id != ?", *req.Email, target.ID).
			Count(&count)
		if count > 0 {
			log.Warn("Email already taken", zap.String("email", *req.Email))
			prometheus.RecordAuthError("email_already_exists")
			return c.JSON(http.StatusConflict, echo.Map{"error": "this email is already taken"})
		}
		target.Email = *req.Email
	}

	if req.FirstName != nil {
		target.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		target.LastName = *req.LastName
	}

	if req.ShopID != nil {
		var shop model.Shop
		if result := database.GetDB().First(&shop, *req.ShopID); result.Error != nil {
			log.Error("User update references unknown shop",
				zap.Uint("shop_id", *req.ShopID),
				zap.Error(result.Error))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop not found"})
		}
		target.ShopID = req.ShopID
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(target); result.Error != nil {
		log.Error("Failed to update user", zap.Uint("user_id", target.ID), zap.Error(result.Error))
		prometheus.RecordAuthError("user_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user update failed"})
	}

	log.Info("User updated",
		zap.Uint("user_id", target.ID),
		zap.String("username", target.Username))
	return c.JSON(http.StatusOK, target)
}

// DeleteUser deletes the authenticated user, or another user when a staff
// member provides an ID path parameter
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("user_delete")

	target, ok := resolveTargetUser(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(target); result.Error != nil {
		log.Error("Failed to delete user", zap.Uint("user_id", target.ID), zap.Error(result.Error))
		prometheus.RecordAuthError("user_delete_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user deletion failed"})
	}

	prometheus.DecreaseActiveTokens()

	log.Info("User deleted",
		zap.Uint("user_id", target.ID),
		zap.String("username", target.Username))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// ListUsers returns all users. Staff only.
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("user_list")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := database.GetDB().Order("id").Find(&users); result.Error != nil {
		log.Error("Failed to list users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	log.Info("Users listed", zap.Int("count", len(users)))
	return c.JSON(http.StatusOK, users)
}

// resolveTargetUser loads the user a profile operation acts on. Without a
// path parameter that is the acting user; with one it requires staff rights.
// On failure it writes the error response itself and reports false.
func resolveTargetUser(c echo.Context) (*model.User, bool) {
	log := logger.FromContext(c)

	userID, ok := actingUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		return nil, false
	}

	targetID := userID
	if idParam := c.Param("id"); idParam != "" {
		isStaff, _ := c.Get("is_staff").(bool)
		if !isStaff {
			log.Warn("Non-staff attempt to manage another user",
				zap.Uint("user_id", userID),
				zap.String("target_id", idParam))
			prometheus.RecordAuthError("staff_required")
			c.JSON(http.StatusForbidden, echo.Map{"error": "staff access required"})
			return nil, false
		}

		parsed, err := strconv.ParseUint(idParam, 10, 32)
		if err != nil {
			log.Error("Invalid user ID", zap.String("id", idParam), zap.Error(err))
			c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
			return nil, false
		}
		targetID = uint(parsed)
	}

	var user model.User
	if result := database.GetDB().First(&user, targetID); result.Error != nil {
		log.Error("User not found", zap.Uint("user_id", targetID), zap.Error(result.Error))
		c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		return nil, false
	}

	return &user, true
}
