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

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// CategoryWithCount is a category annotated with the number of products
// currently assigned to it
type CategoryWithCount struct {
	model.Category
	ProductsCount int64 `json:"products_count"`
}

// ListCategories retrieves the categories in scope, all shops for
// staff, each annotated with its product count. Supports ?search= name
// filtering.
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("category", "list")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	query := database.GetDB().Model(&model.Category{}).
		Select("categories.*, COUNT(products.id) AS products_count").
		Joins("LEFT JOIN products ON products.category_id = categories.id AND products.deleted_at IS NULL").
		Group("categories.id").
		Order("categories.name")
	if shopID != nil {
		query = query.Where("categories.shop_id = ?", *shopID)
	}

	if search := strings.TrimSpace(c.QueryParam("search")); search != "" {
		query = query.Where("categories.name LIKE ?", "%"+search+"%")
	}

	var categories []CategoryWithCount
	if result := query.Scan(&categories); result.Error != nil {
		log.Error("Failed to retrieve categories",
			zap.Error(result.Error),
			zap.Uint("shop_id", nilSafeUint(shopID)))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve categories",
		})
	}

	log.Info("Categories retrieved",
		zap.Int("count", len(categories)),
		zap.Uint("shop_id", nilSafeUint(shopID)))
	return c.JSON(http.StatusOK, categories)
}

// GetCategory retrieves a specific category by ID
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("category", "access")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var category model.Category
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&category)
	if result.Error != nil {
		log.Error("Category not found or does not belong to shop",
			zap.String("category_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "category not found",
		})
	}

	return c.JSON(http.StatusOK, category)
}

// CreateCategory adds a new category to the acting user's shop
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("category", "create")

	var req CategoryRequest
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
	if req.Name == "" {
		log.Warn("Category name missing", zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name is required",
		})
	}

	// Names are unique within a shop
	var count int64
	database.GetDB().Model(&model.Category{}).
		Where("name = ? AND shop_id = ?", req.Name, shopID).
		Count(&count)
	if count > 0 {
		log.Warn("Category with this name already exists for this shop",
			zap.String("name", req.Name),
			zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "category with this name already exists in this shop",
		})
	}

	category := model.Category{
		Name:   req.Name,
		ShopID: shopID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Error("Failed to create category",
			zap.String("name", req.Name),
			zap.Uint("shop_id", shopID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to create category",
		})
	}

	log.Info("Category created",
		zap.Uint("category_id", category.ID),
		zap.String("name", category.Name),
		zap.Uint("shop_id", category.ShopID))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory renames an existing category
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("category", "update")
	id := c.Param("id")

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data",
			zap.String("category_id", id),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid request data",
		})
	}

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name is required",
		})
	}

	var category model.Category
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&category)
	if result.Error != nil {
		log.Error("Category not found or does not belong to shop",
			zap.String("category_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "category not found",
		})
	}

	oldName := category.Name
	if req.Name != category.Name {
		var count int64
		database.GetDB().Model(&model.Category{}).
			Where("name = ? AND id != ? AND shop_id = ?", req.Name, id, category.ShopID).
			Count(&count)
		if count > 0 {
			log.Warn("Category with this name already exists for this shop",
				zap.String("name", req.Name),
				zap.Uint("shop_id", category.ShopID))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "category with this name already exists in this shop",
			})
		}
	}

	category.Name = req.Name

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&category); result.Error != nil {
		log.Error("Failed to update category",
			zap.String("category_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to update category",
		})
	}

	log.Info("Category updated",
		zap.String("category_id", id),
		zap.String("old_name", oldName),
		zap.String("new_name", category.Name),
		zap.Uint("shop_id", category.ShopID))
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory handles deleting a category (soft delete). Categories
// still referenced by products cannot be deleted.
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInventoryOperation("category", "delete")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	var category model.Category
	preResult := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&category)
	if preResult.Error != nil {
		log.Warn("Category not found or does not belong to shop",
			zap.String("category_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "category not found",
		})
	}

	var count int64
	database.GetDB().Model(&model.Product{}).
		Where("category_id = ? AND shop_id = ?", id, category.ShopID).
		Count(&count)
	if count > 0 {
		log.Warn("Cannot delete category that is being used by products",
			zap.String("category_id", id),
			zap.Uint("shop_id", category.ShopID),
			zap.Int64("product_count", count))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "cannot delete a category that is in use by products",
		})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&category); result.Error != nil {
		log.Error("Failed to delete category",
			zap.String("category_id", id),
			zap.Uint("shop_id", category.ShopID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to delete category",
		})
	}

	log.Info("Category deleted",
		zap.String("category_id", id),
		zap.Uint("shop_id", category.ShopID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Category deleted successfully",
	})
}
