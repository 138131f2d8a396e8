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

const maxOrderItems = 10000

// OrderRequest defines the structure for order creation/update requests
type OrderRequest struct {
	CategoryID   *uint      `json:"category_id"`
	TotalItems   *int       `json:"total_items"`
	DeliveryDate *time.Time `json:"delivery_date"`
	Notes        *string    `json:"notes"`
}

// OrderWithStatus is an order annotated with its delivery status
type OrderWithStatus struct {
	model.Order
	Status string `json:"status"`
}

// ListOrders retrieves the orders in scope, all shops for staff,
// soonest delivery first
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("list")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orders []model.Order
	result := scopedDB(database.GetDB(), shopID).
		Order("delivery_date").
		Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list orders",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve orders",
		})
	}

	log.Info("Orders retrieved",
		zap.Int("count", len(orders)),
		zap.Uint("shop_id", nilSafeUint(shopID)))
	return c.JSON(http.StatusOK, orders)
}

// AllOrders retrieves every order in scope annotated with a past or
// upcoming delivery status. An order due today is still upcoming.
func AllOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("list_all")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orders []model.Order
	result := scopedDB(database.GetDB(), shopID).
		Order("delivery_date DESC").
		Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list orders",
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve orders",
		})
	}

	today := startOfDay(time.Now())
	annotated := make([]OrderWithStatus, 0, len(orders))
	for _, order := range orders {
		status := "upcoming"
		if startOfDay(order.DeliveryDate).Before(today) {
			status = "past"
		}
		annotated = append(annotated, OrderWithStatus{Order: order, Status: status})
	}

	log.Info("All orders retrieved",
		zap.Int("count", len(annotated)),
		zap.Uint("shop_id", nilSafeUint(shopID)))
	return c.JSON(http.StatusOK, annotated)
}

// GetOrder retrieves a single order by ID
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("access")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var order model.Order
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&order)
	if result.Error != nil {
		log.Error("Order not found or does not belong to shop",
			zap.String("order_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "order not found",
		})
	}

	return c.JSON(http.StatusOK, order)
}

// CreateOrder places a new order for the acting user's shop. Delivery
// must be at least 24 hours ahead and no more than one year out.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("create")

	var req OrderRequest
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

	if req.TotalItems == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_items is required"})
	}
	if req.DeliveryDate == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "delivery_date is required"})
	}
	if msg := validateOrderFields(&req); msg != "" {
		log.Warn("Order validation failed",
			zap.String("reason", msg),
			zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	now := time.Now()
	if req.DeliveryDate.Before(now.Add(24 * time.Hour)) {
		log.Warn("Delivery date too soon",
			zap.Time("delivery_date", *req.DeliveryDate),
			zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "delivery date must be at least 24 hours from now",
		})
	}
	if req.DeliveryDate.After(now.AddDate(1, 0, 0)) {
		log.Warn("Delivery date too far out",
			zap.Time("delivery_date", *req.DeliveryDate),
			zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "delivery date cannot be more than one year ahead",
		})
	}

	if req.CategoryID != nil && !categoryInShop(*req.CategoryID, shopID) {
		log.Warn("Category does not belong to shop",
			zap.Uint("category_id", *req.CategoryID),
			zap.Uint("shop_id", shopID))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "category does not belong to this shop",
		})
	}

	userID, _ := actingUserID(c)
	order := model.Order{
		ShopID:       shopID,
		UserID:       &userID,
		CategoryID:   req.CategoryID,
		TotalItems:   *req.TotalItems,
		DeliveryDate: *req.DeliveryDate,
	}
	if req.Notes != nil {
		order.Notes = strings.TrimSpace(*req.Notes)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&order); result.Error != nil {
		log.Error("Failed to create order",
			zap.Uint("shop_id", shopID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to create order",
		})
	}

	log.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Int("total_items", order.TotalItems),
		zap.Time("delivery_date", order.DeliveryDate),
		zap.Uint("shop_id", order.ShopID))
	return c.JSON(http.StatusCreated, order)
}

// UpdateOrder modifies an order that has not yet been delivered. An
// updated delivery date must stay in the future and within one year.
func UpdateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("update")
	id := c.Param("id")

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data",
			zap.String("order_id", id),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid request data",
		})
	}

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	var order model.Order
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&order)
	if result.Error != nil {
		log.Error("Order not found or does not belong to shop",
			zap.String("order_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)),
			zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "order not found",
		})
	}

	// Delivered orders are immutable
	if order.DeliveryDate.Before(time.Now()) {
		log.Warn("Attempt to update delivered order",
			zap.String("order_id", id),
			zap.Time("delivery_date", order.DeliveryDate))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "cannot modify an order past its delivery date",
		})
	}

	if msg := validateOrderFields(&req); msg != "" {
		log.Warn("Order validation failed",
			zap.String("order_id", id),
			zap.String("reason", msg))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if req.DeliveryDate != nil {
		now := time.Now()
		if req.DeliveryDate.Before(now) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "delivery date must be in the future",
			})
		}
		if req.DeliveryDate.After(now.AddDate(1, 0, 0)) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "delivery date cannot be more than one year ahead",
			})
		}
		order.DeliveryDate = *req.DeliveryDate
	}

	if req.CategoryID != nil {
		if !categoryInShop(*req.CategoryID, order.ShopID) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "category does not belong to this shop",
			})
		}
		order.CategoryID = req.CategoryID
	}
	if req.TotalItems != nil {
		order.TotalItems = *req.TotalItems
	}
	if req.Notes != nil {
		order.Notes = strings.TrimSpace(*req.Notes)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&order); result.Error != nil {
		log.Error("Failed to update order",
			zap.String("order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to update order",
		})
	}

	log.Info("Order updated",
		zap.Uint("order_id", order.ID),
		zap.Uint("shop_id", order.ShopID))
	return c.JSON(http.StatusOK, order)
}

// DeleteOrder cancels an upcoming order (soft delete). Non-staff users
// may only cancel orders they placed.
func DeleteOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrderOperation("delete")
	id := c.Param("id")

	shopID, ok := shopFilter(c)
	if !ok {
		return nil
	}

	var order model.Order
	result := scopedDB(database.GetDB(), shopID).Where("id = ?", id).First(&order)
	if result.Error != nil {
		log.Warn("Order not found or does not belong to shop",
			zap.String("order_id", id),
			zap.Uint("shop_id", nilSafeUint(shopID)))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "order not found",
		})
	}

	if order.DeliveryDate.Before(time.Now()) {
		log.Warn("Attempt to delete delivered order",
			zap.String("order_id", id),
			zap.Time("delivery_date", order.DeliveryDate))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "cannot delete an order past its delivery date",
		})
	}

	userID, _ := actingUserID(c)
	_, isStaff := shopScope(c)
	if !isStaff && (order.UserID == nil || *order.UserID != userID) {
		log.Warn("Unauthorized order delete attempt",
			zap.String("order_id", id),
			zap.Uint("user_id", userID))
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "you can only delete your own orders",
		})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&order); result.Error != nil {
		log.Error("Failed to delete order",
			zap.String("order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to delete order",
		})
	}

	log.Info("Order deleted",
		zap.Uint("order_id", order.ID),
		zap.Uint("shop_id", order.ShopID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Order deleted successfully",
	})
}

// startOfDay truncates a timestamp to midnight local time
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// validateOrderFields checks constraints shared by create and update.
// Returns an error message, empty when valid.
func validateOrderFields(req *OrderRequest) string {
	if req.TotalItems != nil {
		if *req.TotalItems <= 0 {
			return "total_items must be positive"
		}
		if *req.TotalItems > maxOrderItems {
			return "total_items cannot exceed 10000"
		}
	}
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		if trimmed != "" && len(trimmed) < 3 {
			return "notes must be at least 3 characters"
		}
	}
	return ""
}
