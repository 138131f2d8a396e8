package handler

import (
	"net/http"
	"testing"

	"inventory-service/internal/model"
)

func TestCreateShopAssignsOwner(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", nil, false)

	c, rec := newRequest(t, http.MethodPost, "/api/shops", map[string]interface{}{
		"name": "Alice's Shop",
	})
	asUser(c, user)
	if err := CreateShop(c); err != nil {
		t.Fatalf("CreateShop returned error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	var shop model.Shop
	if err := db.Where("name = ?", "Alice's Shop").First(&shop).Error; err != nil {
		t.Fatalf("created shop not found: %v", err)
	}
	if shop.OwnerID != user.ID {
		t.Errorf("expected owner %d, got %d", user.ID, shop.OwnerID)
	}

	// The previously unassigned creator now belongs to the new shop
	var reloaded model.User
	db.First(&reloaded, user.ID)
	if reloaded.ShopID == nil || *reloaded.ShopID != shop.ID {
		t.Errorf("expected owner assigned to shop %d, got %v", shop.ID, reloaded.ShopID)
	}
}

func TestCreateShopKeepsExistingAssignment(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	existing := createTestShop(t, db, "First", owner.ID)
	db.Model(owner).Update("shop_id", existing.ID)
	owner.ShopID = &existing.ID

	c, rec := newRequest(t, http.MethodPost, "/api/shops", map[string]interface{}{
		"name": "Second",
	})
	asUser(c, owner)
	CreateShop(c)
	expectStatus(t, rec, http.StatusCreated)

	var reloaded model.User
	db.First(&reloaded, owner.ID)
	if reloaded.ShopID == nil || *reloaded.ShopID != existing.ID {
		t.Errorf("expected owner to stay assigned to shop %d, got %v", existing.ID, reloaded.ShopID)
	}
}

func TestListShopsScoping(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shopA := createTestShop(t, db, "Shop A", owner.ID)
	createTestShop(t, db, "Shop B", owner.ID)
	db.Model(owner).Update("shop_id", shopA.ID)
	owner.ShopID = &shopA.ID

	// Non-staff sees only the assigned shop
	c, rec := newRequest(t, http.MethodGet, "/api/shops", nil)
	asUser(c, owner)
	ListShops(c)
	expectStatus(t, rec, http.StatusOK)

	var shops []model.Shop
	decodeInto(t, rec, &shops)
	if len(shops) != 1 || shops[0].ID != shopA.ID {
		t.Fatalf("expected only shop %d, got %v", shopA.ID, shops)
	}

	// Staff sees everything
	staff := createTestUser(t, db, "admin", nil, true)
	c, rec = newRequest(t, http.MethodGet, "/api/shops", nil)
	asUser(c, staff)
	ListShops(c)
	expectStatus(t, rec, http.StatusOK)

	shops = nil
	decodeInto(t, rec, &shops)
	if len(shops) != 2 {
		t.Fatalf("expected 2 shops for staff, got %d", len(shops))
	}
}

func TestGetShopCrossShopHidden(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shopA := createTestShop(t, db, "Shop A", owner.ID)
	shopB := createTestShop(t, db, "Shop B", owner.ID)
	db.Model(owner).Update("shop_id", shopA.ID)
	owner.ShopID = &shopA.ID

	c, rec := newRequest(t, http.MethodGet, "/api/shops/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(uintParam(shopB.ID))
	asUser(c, owner)
	GetShop(c)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUpdateShopOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	db.Model(owner).Update("shop_id", shop.ID)
	owner.ShopID = &shop.ID

	other := createTestUser(t, db, "bob", &shop.ID, false)

	c, rec := newRequest(t, http.MethodPatch, "/api/shops/:id", map[string]interface{}{
		"name": "Renamed",
	})
	c.SetParamNames("id")
	c.SetParamValues(uintParam(shop.ID))
	asUser(c, other)
	UpdateShop(c)
	expectStatus(t, rec, http.StatusForbidden)

	c, rec = newRequest(t, http.MethodPatch, "/api/shops/:id", map[string]interface{}{
		"name": "Renamed",
	})
	c.SetParamNames("id")
	c.SetParamValues(uintParam(shop.ID))
	asUser(c, owner)
	UpdateShop(c)
	expectStatus(t, rec, http.StatusOK)

	var reloaded model.Shop
	db.First(&reloaded, shop.ID)
	if reloaded.Name != "Renamed" {
		t.Errorf("expected shop renamed, got %q", reloaded.Name)
	}
}

func TestDeleteShopBlockedByProducts(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	db.Model(owner).Update("shop_id", shop.ID)
	owner.ShopID = &shop.ID
	createTestProduct(t, db, "Widget", shop.ID, nil, 9.99, 0)

	c, rec := newRequest(t, http.MethodDelete, "/api/shops/:id", nil)
	c.SetParamNames("id")
	c.SetParamValues(uintParam(shop.ID))
	asUser(c, owner)
	DeleteShop(c)
	expectStatus(t, rec, http.StatusConflict)
}
