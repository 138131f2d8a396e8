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

// CreateShop handles shop creation. The creating user becomes the owner and,
// when not yet assigned to a shop, is assigned to the new one.
func CreateShop(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordShopOperation("create")

	userID, ok := actingUserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	// Parse request
	var req struct {
		Name string `json:"name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse shop creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		log.Error("Invalid shop data", zap.String("name", req.Name))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	// Track DB operations
	defer prometheus.TrackDBOperation("insert")(time.Now())

	// Begin transaction: the shop and the owner's assignment change together
	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	shop := model.Shop{
		Name:    req.Name,
		OwnerID: userID,
		Active:  true,
	}

	if result := tx.Create(&shop); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create shop", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "shop creation failed"})
	}

	// Assign the owner to the new shop if they have no shop yet
	var owner model.User
	if result := tx.First(&owner, userID); result.Error != nil {
		tx.Rollback()
		log.Error("Shop owner not found", zap.Uint("user_id", userID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "shop creation failed"})
	}

	if owner.ShopID == nil {
		if result := tx.Model(&owner).Update("shop_id", shop.ID); result.Error != nil {
			tx.Rollback()
			log.Error("Failed to assign owner to shop", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "shop creation failed"})
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction commit failed"})
	}

	log.Info("Shop created",
		zap.String("name", shop.Name),
		zap.Uint("id", shop.ID),
		zap.Uint("owner_id", shop.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Shop created successfully",
		"shop":    shop,
	})
}

// ListShops returns the shops visible to the acting user: all shops for
// staff, only the assigned shop otherwise
func ListShops(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordShopOperation("list")

	shopID, isStaff := shopScope(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var shops []model.Shop

	query := database.GetDB().Order("id")
	if !isStaff {
		if shopID == nil {
			// Unassigned non-staff users see no shops
			return c.JSON(http.StatusOK, shops)
		}
		query = query.Where("id = ?", *shopID)
	}

	if result := query.Find(&shops); result.Error != nil {
		log.Error("Failed to list shops", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve shops"})
	}

	log.Info("Shops listed", zap.Int("count", len(shops)))
	return c.JSON(http.StatusOK, shops)
}

// GetShop retrieves shop details
func GetShop(c echo.Context) error {
	prometheus.RecordShopOperation("access")

	shop, ok := loadScopedShop(c)
	if !ok {
		return nil
	}

	return c.JSON(http.StatusOK, shop)
}

// UpdateShop updates a shop's details. Only the owner or staff may update.
func UpdateShop(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordShopOperation("update")

	shop, ok := loadScopedShop(c)
	if !ok {
		return nil
	}

	userID, _ := actingUserID(c)
	_, isStaff := shopScope(c)
	if !isStaff && shop.OwnerID != userID {
		log.Warn("Unauthorized shop update attempt",
			zap.Uint("user_id", userID),
			zap.Uint("shop_id", shop.ID),
			zap.Uint("owner_id", shop.OwnerID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the shop owner can update this shop"})
	}

	var req struct {
		Name   *string `json:"name,omitempty"`
		Active *bool   `json:"active,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse shop update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != nil {
		if *req.Name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		shop.Name = *req.Name
	}
	if req.Active != nil {
		shop.Active = *req.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(shop); result.Error != nil {
		log.Error("Failed to update shop", zap.Uint("shop_id", shop.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "shop update failed"})
	}

	log.Info("Shop updated",
		zap.Uint("shop_id", shop.ID),
		zap.String("name", shop.Name))
	return c.JSON(http.StatusOK, shop)
}

// DeleteShop soft deletes a shop. Only the owner or staff may delete, and
// only once the shop holds no products.
func DeleteShop(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordShopOperation("delete")

	shop, ok := loadScopedShop(c)
	if !ok {
		return nil
	}

	userID, _ := actingUserID(c)
	_, isStaff := shopScope(c)
	if !isStaff && shop.OwnerID != userID {
		log.Warn("Unauthorized shop delete attempt",
			zap.Uint("user_id", userID),
			zap.Uint("shop_id", shop.ID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the shop owner can delete this shop"})
	}

	// A shop with remaining products cannot be deleted
	var count int64
	database.GetDB().Model(&model.Product{}).Where("shop_id = ?", shop.ID).Count(&count)
	if count > 0 {
		log.Warn("Cannot delete shop with remaining products",
			zap.Uint("shop_id", shop.ID),
			zap.Int64("product_count", count))
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete a shop that still has products"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(shop); result.Error != nil {
		log.Error("Failed to delete shop", zap.Uint("shop_id", shop.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "shop deletion failed"})
	}

	log.Info("Shop deleted", zap.Uint("shop_id", shop.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Shop deleted successfully"})
}

// loadScopedShop loads the shop from the ID path parameter and enforces
// tenant isolation: non-staff users only reach their own shop. On failure
// it writes the error response itself and reports false.
func loadScopedShop(c echo.Context) (*model.Shop, bool) {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid shop ID", zap.Error(err))
		c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shop ID"})
		return nil, false
	}

	shopID, isStaff := shopScope(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var shop model.Shop
	if result := database.GetDB().First(&shop, id); result.Error != nil {
		log.Error("Shop not found", zap.Uint64("id", id), zap.Error(result.Error))
		c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		return nil, false
	}

	// Cross-shop access reads as not found to avoid leaking existence
	if !isStaff && (shopID == nil || *shopID != shop.ID) {
		log.Warn("Cross-shop access attempt",
			zap.Uint("requested_shop_id", shop.ID),
			zap.Uint("user_shop_id", nilSafeUint(shopID)))
		c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		return nil, false
	}

	return &shop, true
}
