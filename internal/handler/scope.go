package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// actingUserID returns the authenticated user's ID from the context
func actingUserID(c echo.Context) (uint, bool) {
	userID, ok := c.Get("user_id").(uint)
	return userID, ok
}

// shopScope returns the acting user's shop assignment and staff flag.
// Staff users operate across all shops and may carry no assignment.
func shopScope(c echo.Context) (*uint, bool) {
	isStaff, _ := c.Get("is_staff").(bool)
	if shopID, ok := c.Get("shop_id").(uint); ok {
		id := shopID
		return &id, isStaff
	}
	return nil, isStaff
}

// queryShopID parses the optional shop_id query parameter. The second
// return is false when the parameter is present but malformed.
func queryShopID(c echo.Context) (*uint, bool) {
	raw := c.QueryParam("shop_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, false
	}
	shopID := uint(id)
	return &shopID, true
}

// shopFilter resolves the shop scope of a read. Non-staff users are
// bound to their assigned shop. Staff users see every shop and may
// narrow to one with the shop_id query parameter; a nil filter means
// unscoped. On failure it writes the error response itself and reports
// false.
func shopFilter(c echo.Context) (*uint, bool) {
	assigned, isStaff := shopScope(c)
	if isStaff {
		requested, ok := queryShopID(c)
		if !ok {
			c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shop_id parameter"})
			return nil, false
		}
		return requested, true
	}
	if assigned != nil {
		return assigned, true
	}
	c.JSON(http.StatusForbidden, echo.Map{"error": "user not assigned to any shop"})
	return nil, false
}

// requireShopID resolves the single shop a write targets. Non-staff
// users are bound to their assigned shop. For staff the shop_id query
// parameter takes precedence over their own assignment, and one of the
// two must be present. On failure it writes the error response itself
// and reports false.
func requireShopID(c echo.Context) (uint, bool) {
	assigned, isStaff := shopScope(c)
	if isStaff {
		requested, ok := queryShopID(c)
		if !ok {
			c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shop_id parameter"})
			return 0, false
		}
		if requested != nil {
			return *requested, true
		}
		if assigned != nil {
			return *assigned, true
		}
		c.JSON(http.StatusBadRequest, echo.Map{"error": "shop_id query parameter is required"})
		return 0, false
	}
	if assigned != nil {
		return *assigned, true
	}
	c.JSON(http.StatusForbidden, echo.Map{"error": "user not assigned to any shop"})
	return 0, false
}

// scopedDB narrows a query to one shop. A nil filter leaves the query
// unscoped for staff acting across all shops.
func scopedDB(query *gorm.DB, shopID *uint) *gorm.DB {
	if shopID != nil {
		return query.Where("shop_id = ?", *shopID)
	}
	return query
}

// Helper function to safely handle nil uint pointers for logging
func nilSafeUint(val *uint) uint {
	if val == nil {
		return 0
	}
	return *val
}
