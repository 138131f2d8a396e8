package handler

import (
	"net/http"
	"time"

	"inventory-service/internal/model"
	"inventory-service/pkg/database"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DashboardProduct is the per-product row of the dashboard view
type DashboardProduct struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	StockQuantity int     `json:"stock_quantity"`
	Price         float64 `json:"price"`
	CategoryID    *uint   `json:"category_id"`
	CategoryName  string  `json:"category_name"`
}

// CategorySummary aggregates stock and value per category
type CategorySummary struct {
	CategoryID   *uint   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	ProductCount int64   `json:"product_count"`
	TotalStock   int64   `json:"total_stock"`
	TotalValue   float64 `json:"total_value"`
}

// Dashboard returns the products in scope alongside per-category stock
// and value aggregates. Staff without a shop_id parameter see all shops
// and the response carries a null shop_id.
func Dashboard(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.DashboardRequestCounter.Inc()

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := database.GetDB()

	productQuery := db.Model(&model.Product{}).
		Select("products.id, products.name, products.stock_quantity, products.price, products.category_id, COALESCE(categories.name, '') AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id AND categories.deleted_at IS NULL").
		Order("products.name")
	if shopID != nil {
		productQuery = productQuery.Where("products.shop_id = ?", *shopID)
	}

	var products []DashboardProduct
	if result := productQuery.Scan(&products); result.Error != nil {
		log.Error("Failed to load dashboard products",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to load dashboard",
		})
	}

	summaryQuery := db.Model(&model.Product{}).
		Select("products.category_id, COALESCE(categories.name, '') AS category_name, COUNT(products.id) AS product_count, COALESCE(SUM(products.stock_quantity), 0) AS total_stock, COALESCE(SUM(products.stock_quantity * products.price), 0) AS total_value").
		Joins("LEFT JOIN categories ON categories.id = products.category_id AND categories.deleted_at IS NULL").
		Group("products.category_id, categories.name").
		Order("category_name")
	if shopID != nil {
		summaryQuery = summaryQuery.Where("products.shop_id = ?", *shopID)
	}

	var summaries []CategorySummary
	if result := summaryQuery.Scan(&summaries); result.Error != nil {
		log.Error("Failed to aggregate dashboard categories",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to load dashboard",
		})
	}

	log.Info("Dashboard served",
		zap.Int("products", len(products)),
		zap.Int("categories", len(summaries)),
		zap.Uint("shop_id", nilSafeUint(shopID)))

	return c.JSON(http.StatusOK, echo.Map{
		"shop_id":    shopID,
		"products":   products,
		"categories": summaries,
	})
}
