package handler

import (
	"net/http"
	"testing"

	"inventory-service/internal/model"
)

func TestCreateCategory(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID

	c, rec := newRequest(t, http.MethodPost, "/api/inventory/categories", map[string]interface{}{
		"name": "Electronics",
	})
	asUser(c, owner)
	if err := CreateCategory(c); err != nil {
		t.Fatalf("CreateCategory returned error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	var category model.Category
	if err := db.Where("name = ? AND shop_id = ?", "Electronics", shop.ID).First(&category).Error; err != nil {
		t.Fatalf("created category not found: %v", err)
	}
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID
	createTestCategory(t, db, "Electronics", shop.ID)

	c, rec := newRequest(t, http.MethodPost, "/api/inventory/categories", map[string]interface{}{
		"name": "Electronics",
	})
	asUser(c, owner)
	CreateCategory(c)
	expectStatus(t, rec, http.StatusConflict)
}

func TestCreateCategorySameNameDifferentShops(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", nil, false)
	shopA := createTestShop(t, db, "Shop A", alice.ID)
	shopB := createTestShop(t, db, "Shop B", alice.ID)
	createTestCategory(t, db, "Electronics", shopA.ID)

	bob := createTestUser(t, db, "bob", &shopB.ID, false)

	c, rec := newRequest(t, http.MethodPost, "/api/inventory/categories", map[string]interface{}{
		"name": "Electronics",
	})
	asUser(c, bob)
	CreateCategory(c)
	expectStatus(t, rec, http.StatusCreated)
}

func TestListCategoriesWithProductCounts(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID

	electronics := createTestCategory(t, db, "Electronics", shop.ID)
	createTestCategory(t, db, "Books", shop.ID)
	createTestProduct(t, db, "Laptop", shop.ID, &electronics.ID, 999, 5)
	createTestProduct(t, db, "Phone", shop.ID, &electronics.ID, 499, 3)

	c, rec := newRequest(t, http.MethodGet, "/api/inventory/categories", nil)
	asUser(c, owner)
	if err := ListCategories(c); err != nil {
		t.Fatalf("ListCategories returned error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var categories []CategoryWithCount
	decodeInto(t, rec, &categories)
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	// Ordered by name: Books first
	if categories[0].Name != "Books" || categories[0].ProductsCount != 0 {
		t.Errorf("expected Books with 0 products, got %s with %d", categories[0].Name, categories[0].ProductsCount)
	}
	if categories[1].Name != "Electronics" || categories[1].ProductsCount != 2 {
		t.Errorf("expected Electronics with 2 products, got %s with %d", categories[1].Name, categories[1].ProductsCount)
	}
}

func TestListCategoriesSearch(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID
	createTestCategory(t, db, "Electronics", shop.ID)
	createTestCategory(t, db, "Books", shop.ID)

	c, rec := newRequest(t, http.MethodGet, "/api/inventory/categories?search=Elec", nil)
	asUser(c, owner)
	ListCategories(c)
	expectStatus(t, rec, http.StatusOK)

	var categories []CategoryWithCount
	decodeInto(t, rec, &categories)
	if len(categories) != 1 || categories[0].Name != "Electronics" {
		t.Fatalf("expected only Electronics, got %v", categories)
	}
}

func TestCategoryShopIsolation(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", nil, false)
	shopA := createTestShop(t, db, "Shop A", alice.ID)
	shopB := createTestShop(t, db, "Shop B", alice.ID)
	foreign := createTestCategory(t, db, "Foreign", shopB.ID)

	bob := createTestUser(t, db, "bob", &shopA.ID, false)

	c, rec := newRequest(t, http.MethodGet, "/api/inventory/categories/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(uintParam(foreign.ID))
	asUser(c, bob)
	GetCategory(c)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestDeleteCategoryInUse(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID
	category := createTestCategory(t, db, "Electronics", shop.ID)
	createTestProduct(t, db, "Laptop", shop.ID, &category.ID, 999, 0)

	c, rec := newRequest(t, http.MethodDelete, "/api/inventory/categories/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(uintParam(category.ID))
	asUser(c, owner)
	DeleteCategory(c)
	expectStatus(t, rec, http.StatusConflict)
}

func TestDeleteCategoryUnused(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID
	category := createTestCategory(t, db, "Electronics", shop.ID)

	c, rec := newRequest(t, http.MethodDelete, "/api/inventory/categories/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(uintParam(category.ID))
	asUser(c, owner)
	DeleteCategory(c)
	expectStatus(t, rec, http.StatusOK)

	var count int64
	db.Model(&model.Category{}).Where("id = ?", category.ID).Count(&count)
	if count != 0 {
		t.Error("expected category soft deleted")
	}
}
