package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"inventory-service/pkg/config"
	"inventory-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
)

func setupJWT() {
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:             "test-signing-key",
		ExpirationHours:        1,
		RefreshExpirationHours: 24,
	})
}

func runAuth(t *testing.T, authHeader string) (echo.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/products", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	reached := false
	AuthMiddleware(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})(c)
	return c, rec, reached
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	setupJWT()
	shopID := uint(7)
	token, err := jwtutil.GenerateToken("alice", "alice@example.com", 3, &shopID, false)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	c, _, reached := runAuth(t, "Bearer "+token)
	if !reached {
		t.Fatal("expected request to reach the handler")
	}
	if got, _ := c.Get("user_id").(uint); got != 3 {
		t.Errorf("expected user_id 3 in context, got %v", got)
	}
	if got, _ := c.Get("shop_id").(uint); got != 7 {
		t.Errorf("expected shop_id 7 in context, got %v", got)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	setupJWT()

	_, rec, reached := runAuth(t, "")
	if reached {
		t.Fatal("handler should not be reached without a token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareMalformedToken(t *testing.T) {
	setupJWT()

	_, rec, reached := runAuth(t, "Bearer not-a-jwt")
	if reached {
		t.Fatal("handler should not be reached with a bad token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	setupJWT()
	refresh, err := jwtutil.GenerateRefreshToken("alice", "alice@example.com", 3, nil, false)
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	_, rec, reached := runAuth(t, "Bearer "+refresh)
	if reached {
		t.Fatal("refresh tokens must not grant API access")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireShopContext(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	// Unassigned non-staff is rejected
	req := httptest.NewRequest(http.MethodGet, "/api/inventory/products", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("is_staff", false)
	RequireShopContext(next)(c)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for unassigned user, got %d", rec.Code)
	}

	// Staff passes without an assignment
	req = httptest.NewRequest(http.MethodGet, "/api/inventory/products", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("is_staff", true)
	RequireShopContext(next)(c)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for staff, got %d", rec.Code)
	}

	// Assigned user passes
	req = httptest.NewRequest(http.MethodGet, "/api/inventory/products", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("is_staff", false)
	c.Set("shop_id", uint(1))
	RequireShopContext(next)(c)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for assigned user, got %d", rec.Code)
	}
}

func TestStaffOnly(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user/list", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("is_staff", false)
	StaffOnly(next)(c)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-staff, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/user/list", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("is_staff", true)
	StaffOnly(next)(c)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for staff, got %d", rec.Code)
	}
}
