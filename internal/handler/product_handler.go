package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	CategoryID    *uint    `json:"category_id"`
	Price         *float64 `json:"price"`
	VAT           *float64 `json:"vat"`
	StockQuantity *int     `json:"stock_quantity"`
}

// Column whitelist for the ordering query parameter
var productOrderings = map[string]string{
	"name":           "name",
	"price":          "price",
	"stock_quantity": "stock_quantity",
	"created_at":     "created_at",
}

// ListProducts retrieves the products in scope, all shops for staff.
// Supports ?category_id=, ?search= and ?ordering= (prefix with - for
// descending).
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("product", "list")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := scopedDB(database.GetDB(), shopID)

	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if search := strings.TrimSpace(c.QueryParam("search")); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	// Default to newest first; anything outside the whitelist is rejected
	order := "created_at DESC"
	if ordering := c.QueryParam("ordering"); ordering != "" {
		field := strings.TrimPrefix(ordering, "-")
		column, valid := productOrderings[field]
		if !valid {
			log.Warn("Invalid ordering parameter", zap.String("ordering", ordering))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid ordering field",
			})
		}
		order = column
		if strings.HasPrefix(ordering, "-") {
			order += " DESC"
		}
	}

	var products []model.Product
	if result := query.Order(order).Find(&products); result.Error != nil {
		log.Error("Failed to list products",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve products",
		})
	}

	log.Info("Products retrieved",
		zap.Int("count", len(products)),
		zap.Uint("shop_id", nilSafeUint(shopID)))
	return c.JSON(http.StatusOK, products)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("product", "access")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&product)
	if result.Error != nil {
		log.Error("Product not found or does not belong to shop",
			zap.String("product_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "product not found",
		})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct adds a new product to the acting user's shop. A positive
// initial stock quantity is recorded as an initial_stock ledger entry in
// the same transaction.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("product", "create")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid request data",
		})
	}

	shopID, ok := requireShopID(c)
	if !ok {
		return nil
	}

	req.Name = strings.TrimSpace(req.Name)
	if msg := validateProductRequest(&req, true); msg != "" {
		log.Warn("Product validation failed",
			zap.String("reason", msg),
			zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	// The category must exist and belong to the same shop
	if req.CategoryID != nil {
		if !categoryInShop(*req.CategoryID, shopID) {
			log.Warn("Category does not belong to shop",
				zap.Uint("category_id", *req.CategoryID),
				zap.Uint("shop_id", shopID))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "category does not belong to this shop",
			})
		}
	}

	stock := 0
	if req.StockQuantity != nil {
		stock = *req.StockQuantity
	}
	vat := 0.0
	if req.VAT != nil {
		vat = *req.VAT
	}

	product := model.Product{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		ShopID:        shopID,
		Price:         *req.Price,
		VAT:           vat,
		StockQuantity: stock,
	}

	userID, _ := actingUserID(c)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if result := tx.Create(&product); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create product",
			zap.String("name", req.Name),
			zap.Uint("shop_id", shopID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to create product",
		})
	}

	// Opening stock goes through the ledger so history starts at zero
	if product.StockQuantity > 0 {
		entry := model.StockEntry{
			ShopID:     shopID,
			ProductID:  product.ID,
			Quantity:   product.StockQuantity,
			ChangeType: model.ChangeTypeInitialStock,
			Notes:      "Initial stock on product creation",
			UserID:     &userID,
		}
		if result := tx.Create(&entry); result.Error != nil {
			tx.Rollback()
			log.Error("Failed to record initial stock entry",
				zap.Uint("product_id", product.ID),
				zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "failed to create product",
			})
		}
		prometheus.RecordStockMovement(model.ChangeTypeInitialStock)
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction commit failed"})
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Uint("shop_id", product.ShopID),
		zap.Int("stock_quantity", product.StockQuantity))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates an existing product. Stock quantity is not
// updatable here, it only moves through stock entries.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("product", "update")
	id := c.Param("id")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data",
			zap.String("product_id", id),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid request data",
		})
	}

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	var product model.Product
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&product)
	if result.Error != nil {
		log.Error("Product not found or does not belong to shop",
			zap.String("product_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "product not found",
		})
	}

	req.Name = strings.TrimSpace(req.Name)
	if msg := validateProductRequest(&req, false); msg != "" {
		log.Warn("Product validation failed",
			zap.String("product_id", id),
			zap.String("reason", msg))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if req.StockQuantity != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "stock quantity can only be changed through stock entries",
		})
	}

	if req.CategoryID != nil {
		if !categoryInShop(*req.CategoryID, product.ShopID) {
			log.Warn("Category does not belong to shop",
				zap.Uint("category_id", *req.CategoryID),
				zap.Uint("shop_id", product.ShopID))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "category does not belong to this shop",
			})
		}
		product.CategoryID = req.CategoryID
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.VAT != nil {
		product.VAT = *req.VAT
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&product); result.Error != nil {
		log.Error("Failed to update product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to update product",
		})
	}

	log.Info("Product updated",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Uint("shop_id", product.ShopID))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct handles deleting a product (soft delete). Products with
// remaining stock cannot be deleted.
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("product", "delete")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	var product model.Product
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&product)
	if result.Error != nil {
		log.Warn("Product not found or does not belong to shop",
			zap.String("product_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "product not found",
		})
	}

	if product.StockQuantity > 0 {
		log.Warn("Cannot delete product with remaining stock",
			zap.Uint("product_id", product.ID),
			zap.Int("stock_quantity", product.StockQuantity))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "cannot delete a product that still has stock",
		})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&product); result.Error != nil {
		log.Error("Failed to delete product",
			zap.String("product_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to delete product",
		})
	}

	log.Info("Product deleted",
		zap.Uint("product_id", product.ID),
		zap.Uint("shop_id", product.ShopID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product deleted successfully",
	})
}

// LowStockProducts lists products with stock strictly below a
// threshold, ?threshold= overrides the default of 10
func LowStockProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("product", "low_stock")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	threshold := 10
	if raw := c.QueryParam("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			log.Warn("Invalid threshold parameter", zap.String("threshold", raw))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "threshold must be a non-negative integer",
			})
		}
		threshold = parsed
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := scopedDB(database.GetDB(), shopID).
		Where("stock_quantity < ?", threshold).
		Order("stock_quantity").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list low stock products",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve products",
		})
	}

	log.Info("Low stock products retrieved",
		zap.Int("count", len(products)),
		zap.Int("threshold", threshold),
		zap.Uint("shop_id", nilSafeUint(shopID)))
	return c.JSON(http.StatusOK, echo.Map{
		"threshold": threshold,
		"count":     len(products),
		"products":  products,
	})
}

// validateProductRequest checks field constraints shared by create and
// update. On create the name and price are mandatory. Returns an error
// message, empty when valid.
func validateProductRequest(req *ProductRequest, creating bool) string {
	if creating && req.Name == "" {
		return "name is required"
	}
	if creating && req.Price == nil {
		return "price is required"
	}
	if req.Price != nil && *req.Price < 0 {
		return "price cannot be negative"
	}
	if req.VAT != nil && (*req.VAT < 0 || *req.VAT > 100) {
		return "vat must be between 0 and 100"
	}
	if creating && req.StockQuantity != nil && *req.StockQuantity < 0 {
		return "stock quantity cannot be negative"
	}
	return ""
}

// categoryInShop reports whether the category exists and belongs to the shop
func categoryInShop(categoryID, shopID uint) bool {
	var count int64
	database.GetDB().Model(&model.Category{}).
		Where("id = ? AND shop_id = ?", categoryID, shopID).
		Count(&count)
	return count > 0
}
