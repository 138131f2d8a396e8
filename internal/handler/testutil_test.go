package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"inventory-service/internal/model"
	"inventory-service/pkg/config"
	"inventory-service/pkg/database"
	"inventory-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Shop{},
		&model.Category{},
		&model.Product{},
		&model.StockEntry{},
		&model.Order{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	database.DB = db

	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:             "test-signing-key",
		ExpirationHours:        1,
		RefreshExpirationHours: 24,
	})

	return db
}

// newRequest builds an echo context for a handler call. The body, when
// not nil, is JSON encoded.
func newRequest(t *testing.T, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return c, rec
}

// asUser stamps the context the way the auth middleware would
func asUser(c echo.Context, user *model.User) {
	c.Set("user_id", user.ID)
	c.Set("username", user.Username)
	c.Set("email", user.Email)
	c.Set("is_staff", user.IsStaff)
	if user.ShopID != nil {
		c.Set("shop_id", *user.ShopID)
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username string, shopID *uint, isStaff bool) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		ShopID:   shopID,
		IsStaff:  isStaff,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestShop(t *testing.T, db *gorm.DB, name string, ownerID uint) *model.Shop {
	t.Helper()

	shop := &model.Shop{Name: name, OwnerID: ownerID, Active: true}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("failed to create test shop: %v", err)
	}
	return shop
}

func createTestCategory(t *testing.T, db *gorm.DB, name string, shopID uint) *model.Category {
	t.Helper()

	category := &model.Category{Name: name, ShopID: shopID}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

func createTestProduct(t *testing.T, db *gorm.DB, name string, shopID uint, categoryID *uint, price float64, stock int) *model.Product {
	t.Helper()

	product := &model.Product{
		Name:          name,
		ShopID:        shopID,
		CategoryID:    categoryID,
		Price:         price,
		StockQuantity: stock,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func uintParam(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()

	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
