package handler

import (
	"net/http"
	"strings"
	"time"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StockEntryRequest defines the structure for stock movement requests
type StockEntryRequest struct {
	ProductID  uint   `json:"product_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required"`
	ChangeType string `json:"change_type" validate:"required"`
	Notes      string `json:"notes"`
}

// ListStockEntries retrieves the stock ledger in scope, all shops for
// staff, newest first. Supports ?product_id= and ?change_type=
// filtering.
func ListStockEntries(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("stock", "list")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := scopedDB(database.GetDB(), shopID)

	if productID := c.QueryParam("product_id"); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if changeType := c.QueryParam("change_type"); changeType != "" {
		if !model.IsValidChangeType(changeType) {
			log.Warn("Invalid change_type filter", zap.String("change_type", changeType))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid change type",
			})
		}
		query = query.Where("change_type = ?", changeType)
	}

	var entries []model.StockEntry
	if result := query.Order("created_at DESC, id DESC").Find(&entries); result.Error != nil {
		log.Error("Failed to list stock entries",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stock entries",
		})
	}

	log.Info("Stock entries retrieved",
		zap.Int("count", len(entries)),
		zap.Uint("shop_id", nilSafeUint(shopID)))
	return c.JSON(http.StatusOK, entries)
}

// GetStockEntry retrieves a single ledger entry by ID
func GetStockEntry(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("stock", "access")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var entry model.StockEntry
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&entry)
	if result.Error != nil {
		log.Error("Stock entry not found or does not belong to shop",
			zap.String("entry_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "stock entry not found",
		})
	}

	return c.JSON(http.StatusOK, entry)
}

// CreateStockEntry records a stock movement and applies it to the product
// quantity in one transaction. Additions add, removals subtract,
// adjustments set the absolute quantity. Returns and transfers are
// recorded without touching the quantity.
func CreateStockEntry(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("stock", "create")

	var req StockEntryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid request data",
		})
	}

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	if !model.IsValidChangeType(req.ChangeType) {
		log.Warn("Invalid change type",
			zap.String("change_type", req.ChangeType),
			zap.Uint("shop_id", nilSafeUint(shopID)))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid change type",
		})
	}
	if req.Quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "quantity cannot be negative",
		})
	}
	if req.Quantity == 0 && req.ChangeType != model.ChangeTypeAdjustment {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "quantity must be positive",
		})
	}

	userID, _ := actingUserID(c)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var product model.Product
	result := scopedDB(tx, shopID).Where("id = ?", req.ProductID).First(&product)
	if result.Error != nil {
		tx.Rollback()
		log.Error("Product not found or does not belong to shop",
			zap.Uint("product_id", req.ProductID),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "product not found",
		})
	}

	newQuantity := product.StockQuantity
	switch req.ChangeType {
	case model.ChangeTypeAddition, model.ChangeTypeInitialStock:
		newQuantity += req.Quantity
	case model.ChangeTypeRemoval:
		if req.Quantity > product.StockQuantity {
			tx.Rollback()
			log.Warn("Removal exceeds available stock",
				zap.Uint("product_id", product.ID),
				zap.Int("available", product.StockQuantity),
				zap.Int("requested", req.Quantity))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "cannot remove more stock than available",
			})
		}
		newQuantity -= req.Quantity
	case model.ChangeTypeAdjustment:
		newQuantity = req.Quantity
	case model.ChangeTypeReturn, model.ChangeTypeTransfer:
		// Recorded in the ledger only
	}

	entry := model.StockEntry{
		ShopID:     product.ShopID,
		ProductID:  product.ID,
		Quantity:   req.Quantity,
		ChangeType: req.ChangeType,
		Notes:      strings.TrimSpace(req.Notes),
		UserID:     &userID,
	}

	if result := tx.Create(&entry); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create stock entry",
			zap.Uint("product_id", product.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to create stock entry",
		})
	}

	if newQuantity != product.StockQuantity {
		if result := tx.Model(&product).Update("stock_quantity", newQuantity); result.Error != nil {
			tx.Rollback()
			log.Error("Failed to apply stock movement",
				zap.Uint("product_id", product.ID),
				zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "failed to apply stock movement",
			})
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction commit failed"})
	}

	prometheus.RecordStockMovement(req.ChangeType)
	log.Info("Stock entry recorded",
		zap.Uint("entry_id", entry.ID),
		zap.Uint("product_id", product.ID),
		zap.String("change_type", req.ChangeType),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock_quantity", newQuantity),
		zap.Uint("shop_id", product.ShopID))

	return c.JSON(http.StatusCreated, echo.Map{
		"entry":          entry,
		"stock_quantity": newQuantity,
	})
}
